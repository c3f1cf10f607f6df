package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goldline/backend/internal/models"
)

// MemoryStore is an in-process Store with the same uniqueness and
// version-check semantics as PostgresStore. Units of work are serialized and
// their writes are staged until fn returns nil.
type MemoryStore struct {
	mu          sync.Mutex
	loans       map[string]models.LoanBalance
	payments    map[string]models.PaymentRecord
	refIndex    map[string]string // gateway ref -> payment id
	numberIndex map[string]string // payment number -> payment id
	entries     []models.LedgerEntry
	history     []models.StatusChange
	nextEntryID int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		loans:       make(map[string]models.LoanBalance),
		payments:    make(map[string]models.PaymentRecord),
		refIndex:    make(map[string]string),
		numberIndex: make(map[string]string),
		nextEntryID: 1,
	}
}

// PutLoan seeds or replaces a loan row. Loan origination lives outside the
// ledger, so this is how loans enter the memory store.
func (s *MemoryStore) PutLoan(loan models.LoanBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loan.Recompute()
	s.loans[loan.LoanID] = loan
}

// StatusHistory returns the transitions recorded for paymentID.
func (s *MemoryStore) StatusHistory(paymentID string) []models.StatusChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StatusChange
	for _, c := range s.history {
		if c.PaymentID == paymentID {
			out = append(out, c)
		}
	}
	return out
}

func (s *MemoryStore) GetLoan(_ context.Context, loanID string) (*models.LoanBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loan, ok := s.loans[loanID]
	if !ok {
		return nil, fmt.Errorf("loan %s: %w", loanID, models.ErrLoanNotFound)
	}
	return &loan, nil
}

func (s *MemoryStore) GetPayment(_ context.Context, paymentID string) (*models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paymentLocked(paymentID)
}

func (s *MemoryStore) GetPaymentByNumber(_ context.Context, paymentNumber string) (*models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.numberIndex[paymentNumber]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", paymentNumber, models.ErrPaymentNotFound)
	}
	return s.paymentLocked(id)
}

func (s *MemoryStore) FindByTransactionRef(_ context.Context, ref string) (*models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.refIndex[ref]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", ref, models.ErrPaymentNotFound)
	}
	return s.paymentLocked(id)
}

func (s *MemoryStore) ListPaymentsForLoan(_ context.Context, loanID string, limit int) ([]*models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.PaymentRecord
	for _, p := range s.payments {
		if p.LoanID == loanID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListPendingOlderThan(_ context.Context, cutoff time.Time, limit int) ([]*models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.PaymentRecord
	for _, p := range s.payments {
		if p.Status == models.PaymentPending && p.CreatedAt.Before(cutoff) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListLedgerEntries(_ context.Context, loanID string) ([]*models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range s.entries {
		if e.LoanID == loanID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		loans:    make(map[string]models.LoanBalance),
		payments: make(map[string]models.PaymentRecord),
		refs:     make(map[string]string),
		numbers:  make(map[string]string),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *MemoryStore) paymentLocked(id string) (*models.PaymentRecord, error) {
	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, models.ErrPaymentNotFound)
	}
	return &p, nil
}

type memTx struct {
	store    *MemoryStore
	loans    map[string]models.LoanBalance
	payments map[string]models.PaymentRecord
	refs     map[string]string
	numbers  map[string]string
	entries  []models.LedgerEntry
	history  []models.StatusChange
}

func (t *memTx) GetLoan(_ context.Context, loanID string) (*models.LoanBalance, error) {
	if loan, ok := t.loans[loanID]; ok {
		return &loan, nil
	}
	loan, ok := t.store.loans[loanID]
	if !ok {
		return nil, fmt.Errorf("loan %s: %w", loanID, models.ErrLoanNotFound)
	}
	return &loan, nil
}

func (t *memTx) GetPayment(_ context.Context, paymentID string) (*models.PaymentRecord, error) {
	p, ok := t.payment(paymentID)
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", paymentID, models.ErrPaymentNotFound)
	}
	return &p, nil
}

func (t *memTx) CreatePayment(_ context.Context, p *models.PaymentRecord) error {
	if _, exists := t.payment(p.ID); exists {
		return fmt.Errorf("payment id %s already exists", p.ID)
	}
	if t.numberTaken(p.PaymentNumber) {
		return fmt.Errorf("payment number %s already exists", p.PaymentNumber)
	}
	if p.GatewayRef != nil {
		if t.refTaken(*p.GatewayRef) {
			return fmt.Errorf("%s: %w", *p.GatewayRef, models.ErrDuplicateTransactionRef)
		}
		t.refs[*p.GatewayRef] = p.ID
	}
	t.numbers[p.PaymentNumber] = p.ID
	t.payments[p.ID] = *p
	return nil
}

func (t *memTx) SetTransactionRef(_ context.Context, paymentID, ref string) error {
	p, ok := t.payment(paymentID)
	if !ok {
		return fmt.Errorf("payment %s: %w", paymentID, models.ErrPaymentNotFound)
	}
	if p.Status != models.PaymentPending {
		return models.ErrInvalidTransition
	}
	if owner, taken := t.refOwner(ref); taken && owner != paymentID {
		return fmt.Errorf("%s: %w", ref, models.ErrDuplicateTransactionRef)
	}
	p.GatewayRef = &ref
	t.refs[ref] = paymentID
	t.payments[paymentID] = p
	return nil
}

func (t *memTx) SetGatewayResponse(_ context.Context, paymentID string, response json.RawMessage) error {
	p, ok := t.payment(paymentID)
	if !ok {
		return fmt.Errorf("payment %s: %w", paymentID, models.ErrPaymentNotFound)
	}
	if p.Status != models.PaymentPending {
		return models.ErrInvalidTransition
	}
	if len(response) > 0 {
		p.GatewayResponse = response
	}
	t.payments[paymentID] = p
	return nil
}

func (t *memTx) TransitionPayment(_ context.Context, paymentID string, to models.PaymentStatus, f models.TransitionFields) (bool, error) {
	p, ok := t.payment(paymentID)
	if !ok {
		return false, fmt.Errorf("payment %s: %w", paymentID, models.ErrPaymentNotFound)
	}
	if p.Status != models.PaymentPending {
		return false, nil
	}
	f.Apply(&p, to)
	t.payments[paymentID] = p
	return true, nil
}

func (t *memTx) UpdateLoanBalance(ctx context.Context, loan *models.LoanBalance, expectedVersion int) error {
	current, err := t.GetLoan(ctx, loan.LoanID)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("loan %s at version %d: %w", loan.LoanID, expectedVersion, models.ErrConcurrencyConflict)
	}
	loan.Version = expectedVersion + 1
	t.loans[loan.LoanID] = *loan
	return nil
}

func (t *memTx) AppendLedgerEntry(_ context.Context, e *models.LedgerEntry) error {
	t.entries = append(t.entries, *e)
	return nil
}

func (t *memTx) AppendStatusChange(_ context.Context, c *models.StatusChange) error {
	t.history = append(t.history, *c)
	return nil
}

func (t *memTx) payment(id string) (models.PaymentRecord, bool) {
	if p, ok := t.payments[id]; ok {
		return p, true
	}
	p, ok := t.store.payments[id]
	return p, ok
}

func (t *memTx) refOwner(ref string) (string, bool) {
	if id, ok := t.refs[ref]; ok {
		return id, true
	}
	id, ok := t.store.refIndex[ref]
	return id, ok
}

func (t *memTx) refTaken(ref string) bool {
	_, taken := t.refOwner(ref)
	return taken
}

func (t *memTx) numberTaken(number string) bool {
	if _, ok := t.numbers[number]; ok {
		return true
	}
	_, ok := t.store.numberIndex[number]
	return ok
}

func (t *memTx) commit() {
	s := t.store
	for id, loan := range t.loans {
		s.loans[id] = loan
	}
	for id, p := range t.payments {
		s.payments[id] = p
	}
	for ref, id := range t.refs {
		s.refIndex[ref] = id
	}
	for number, id := range t.numbers {
		s.numberIndex[number] = id
	}
	for _, e := range t.entries {
		e.ID = s.nextEntryID
		s.nextEntryID++
		s.entries = append(s.entries, e)
	}
	s.history = append(s.history, t.history...)
}
