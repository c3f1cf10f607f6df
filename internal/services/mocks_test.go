package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/goldline/backend/internal/events"
	"github.com/goldline/backend/internal/gateway"
	"github.com/goldline/backend/internal/models"
	"github.com/goldline/backend/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

func (m *MockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0)
}

func (m *MockGateway) FetchPayment(ctx context.Context, paymentID string) (*gateway.PaymentDetails, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentDetails), args.Error(1)
}

func (m *MockGateway) ParseWebhook(rawPayload []byte, signatureHeader string) (*gateway.WebhookEvent, error) {
	args := m.Called(rawPayload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.WebhookEvent), args.Error(1)
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.SettlementEvent
	err    error
}

func (s *recordingSink) Publish(_ context.Context, e events.SettlementEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) published() []events.SettlementEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.SettlementEvent(nil), s.events...)
}

// faultyStore lets tests break a unit of work after fn has run, so the
// memory store discards everything fn staged. onConflict runs after each
// injected conflict, outside the unit of work, to move rows the way a
// competing writer would.
type faultyStore struct {
	*repository.MemoryStore

	mu         sync.Mutex
	failWith   error
	conflicts  int
	attempts   int
	onConflict func(*repository.MemoryStore)
}

func (s *faultyStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	err := s.unitOfWork(ctx, fn)
	if errors.Is(err, models.ErrConcurrencyConflict) {
		s.mu.Lock()
		hook := s.onConflict
		s.mu.Unlock()
		if hook != nil {
			hook(s.MemoryStore)
		}
	}
	return err
}

func (s *faultyStore) unitOfWork(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.MemoryStore.WithTx(ctx, func(tx repository.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.attempts++
		if s.conflicts > 0 {
			s.conflicts--
			return fmt.Errorf("injected: %w", models.ErrConcurrencyConflict)
		}
		return s.failWith
	})
}

func (s *faultyStore) set(failWith error, conflicts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = failWith
	s.conflicts = conflicts
	s.attempts = 0
}

func (s *faultyStore) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// ctxStateHook records whether each Redis command ran with a live context.
type ctxStateHook struct {
	mu   sync.Mutex
	errs map[string]error
}

func (h *ctxStateHook) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.errs == nil {
		h.errs = make(map[string]error)
	}
	h.errs[cmd.Name()] = ctx.Err()
	return ctx, nil
}

func (h *ctxStateHook) AfterProcess(context.Context, redis.Cmder) error {
	return nil
}

func (h *ctxStateHook) BeforeProcessPipeline(ctx context.Context, _ []redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h *ctxStateHook) AfterProcessPipeline(context.Context, []redis.Cmder) error {
	return nil
}

// issued reports whether the command ran and the context error it ran with.
func (h *ctxStateHook) issued(name string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	err, seen := h.errs[name]
	return seen, err
}
