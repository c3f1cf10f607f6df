package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goldline/backend/internal/audit"
	"github.com/goldline/backend/internal/config"
	"github.com/goldline/backend/internal/events"
	"github.com/goldline/backend/internal/gateway"
	"github.com/goldline/backend/internal/models"
	"github.com/goldline/backend/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const sweepBatchSize = 200

type InitiateRequest struct {
	LoanID  string
	Amount  decimal.Decimal
	Method  models.PaymentMethod
	Purpose models.PaymentPurpose
	Actor   models.Actor
}

// InitiateResult carries the PENDING record and the gateway order the client
// completes checkout against. Order is nil when the gateway could not be reached.
type InitiateResult struct {
	Payment *models.PaymentRecord `json:"payment"`
	Order   *gateway.Order        `json:"order,omitempty"`
}

// Verification is what the client receives from gateway checkout.
type Verification struct {
	OrderID   string
	PaymentID string
	Signature string
}

type OfflineRequest struct {
	LoanID  string
	Amount  decimal.Decimal
	Method  models.PaymentMethod
	Purpose models.PaymentPurpose
	Actor   models.Actor
	Proof   models.CollectionProof
}

type WebhookOutcome string

const (
	WebhookSettled      WebhookOutcome = "settled"
	WebhookFailed       WebhookOutcome = "failed"
	WebhookAlreadyFinal WebhookOutcome = "already_final"
	WebhookUnbookable   WebhookOutcome = "unbookable"
	WebhookDuplicate    WebhookOutcome = "duplicate"
	WebhookUnknownRef   WebhookOutcome = "unknown_reference"
	WebhookRejected     WebhookOutcome = "rejected"
	WebhookIgnored      WebhookOutcome = "ignored"
	WebhookError        WebhookOutcome = "error"
)

type WebhookResult struct {
	Outcome WebhookOutcome        `json:"outcome"`
	Payment *models.PaymentRecord `json:"-"`
}

type SweepResult struct {
	Cutoff  time.Time `json:"cutoff"`
	Scanned int       `json:"scanned"`
	Expired int       `json:"expired"`
	Skipped int       `json:"skipped"`
}

// ReconciliationEngine is the only component that transitions payment
// records and mutates loan balances. Completion of a payment and its ledger
// debit always commit in the same unit of work.
type ReconciliationEngine struct {
	store    repository.Store
	payments *PaymentRecordStore
	ledger   *LoanLedger
	gateway  gateway.Client
	sink     events.SettlementSink
	dedupe   *events.WebhookDeduper
	audit    *audit.AuditLogger
	logger   *logrus.Logger
	cfg      *config.LedgerConfig
	now      func() time.Time
}

func NewReconciliationEngine(
	store repository.Store,
	gw gateway.Client,
	sink events.SettlementSink,
	dedupe *events.WebhookDeduper,
	auditLogger *audit.AuditLogger,
	logger *logrus.Logger,
	cfg *config.LedgerConfig,
) *ReconciliationEngine {
	return &ReconciliationEngine{
		store:    store,
		payments: NewPaymentRecordStore(store),
		ledger:   NewLoanLedger(store, cfg.BillingCycleMonths),
		gateway:  gw,
		sink:     sink,
		dedupe:   dedupe,
		audit:    auditLogger,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// InitiateOnline creates a PENDING payment and asks the gateway for an order.
// If the gateway cannot be reached the record stays PENDING and the error
// wraps ErrGatewayUnavailable; RetryOrder resumes it.
func (e *ReconciliationEngine) InitiateOnline(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("amount %s: %w", req.Amount, models.ErrInvalidAmount)
	}
	if !req.Method.IsOnline() {
		return nil, fmt.Errorf("method %s: %w", req.Method, models.ErrInvalidMethod)
	}

	loan, err := e.ledger.Snapshot(ctx, req.LoanID)
	if err != nil {
		return nil, err
	}
	if !loan.Status.AcceptsPayments() {
		return nil, fmt.Errorf("loan %s is %s: %w", loan.LoanNumber, loan.Status, models.ErrLoanNotActive)
	}
	if req.Amount.GreaterThan(loan.TotalOutstanding) {
		return nil, fmt.Errorf("amount %s exceeds outstanding %s: %w", req.Amount, loan.TotalOutstanding, models.ErrInvalidAmount)
	}

	at := e.now()
	p := &models.PaymentRecord{
		ID:                 uuid.NewString(),
		PaymentNumber:      documentNumber(e.cfg.PaymentPrefix, at),
		LoanID:             loan.LoanID,
		Amount:             req.Amount,
		Method:             req.Method,
		Purpose:            purposeOrDefault(req.Purpose),
		Status:             models.PaymentPending,
		VerificationStatus: models.VerificationPending,
		CreatedBy:          req.Actor.ID,
		CreatedAt:          at,
		StatusChangedAt:    at,
	}
	err = e.store.WithTx(ctx, func(tx repository.Tx) error {
		return e.payments.Create(ctx, tx, p, req.Actor.ID)
	})
	if err != nil {
		return nil, err
	}

	e.logFor(p).WithField("actor", req.Actor.ID).Info("online payment initiated")
	e.audit.LogPayment(audit.EventInitiated, p.PaymentNumber, p.LoanID, p.Amount, string(p.Status), req.Actor.ID,
		map[string]string{"method": string(p.Method), "purpose": string(p.Purpose)})

	return e.requestOrder(ctx, p)
}

// RetryOrder requests a gateway order for a PENDING payment whose first
// attempt failed. A payment that already has an order returns it unchanged.
func (e *ReconciliationEngine) RetryOrder(ctx context.Context, paymentID string) (*InitiateResult, error) {
	p, err := e.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentPending {
		return &InitiateResult{Payment: p}, fmt.Errorf("payment %s is %s: %w", p.PaymentNumber, p.Status, models.ErrInvalidTransition)
	}
	if p.GatewayRef != nil {
		return &InitiateResult{Payment: p, Order: &gateway.Order{
			ID:       *p.GatewayRef,
			Amount:   p.Amount,
			Currency: e.cfg.Currency,
			Status:   "created",
		}}, nil
	}
	return e.requestOrder(ctx, p)
}

func (e *ReconciliationEngine) requestOrder(ctx context.Context, p *models.PaymentRecord) (*InitiateResult, error) {
	order, err := e.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   p.Amount,
		Currency: e.cfg.Currency,
		Receipt:  p.PaymentNumber,
		Notes:    map[string]string{"payment_id": p.ID, "loan_id": p.LoanID},
	})
	if err != nil {
		e.logFor(p).WithError(err).Warn("gateway order creation failed, payment left pending")
		if !errors.Is(err, models.ErrGatewayUnavailable) {
			err = fmt.Errorf("%v: %w", err, models.ErrGatewayUnavailable)
		}
		return &InitiateResult{Payment: p}, err
	}

	err = e.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.SetTransactionRef(ctx, p.ID, order.ID)
	})
	if err != nil {
		config.LogError(e.logger, "ReconciliationEngine", "requestOrder", "storing gateway reference",
			map[string]string{"payment_number": p.PaymentNumber, "gateway_ref": order.ID}, err)
		return &InitiateResult{Payment: p}, err
	}
	p.GatewayRef = &order.ID
	return &InitiateResult{Payment: p, Order: order}, nil
}

// ConfirmOnline settles a payment from the client's checkout callback. A
// COMPLETED payment is returned as it stands. Verification failures move the
// payment to FAILED and are returned alongside it. A verified capture against
// a FAILED or CANCELLED payment cannot be booked and yields
// ErrInvalidTransition.
func (e *ReconciliationEngine) ConfirmOnline(ctx context.Context, paymentID string, v Verification, actor models.Actor) (*models.PaymentRecord, error) {
	p, err := e.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentCompleted {
		return p, nil
	}

	details, err := e.verify(ctx, p, v)
	if err != nil {
		if !models.IsVerificationFailure(err) {
			return p, err
		}
		var raw json.RawMessage
		if details != nil {
			raw = details.Raw
		}
		failed, changed, ferr := e.finish(ctx, p.ID, models.PaymentFailed, err.Error(), actor.ID, models.VerificationRejected, raw)
		if ferr != nil && !errors.Is(ferr, models.ErrInvalidTransition) {
			return nil, ferr
		}
		if !changed {
			return failed, err
		}
		e.audit.LogPayment(audit.EventFailed, failed.PaymentNumber, failed.LoanID, failed.Amount, string(failed.Status), actor.ID,
			map[string]string{"reason": err.Error()})
		return failed, err
	}

	record, _, err := e.settle(ctx, p.ID, completion{
		gatewayPaymentID: details.ID,
		response:         details.Raw,
		actor:            actor.ID,
		reason:           "confirmed by client",
	})
	return record, err
}

func (e *ReconciliationEngine) verify(ctx context.Context, p *models.PaymentRecord, v Verification) (*gateway.PaymentDetails, error) {
	if p.GatewayRef == nil || v.OrderID != *p.GatewayRef {
		return nil, fmt.Errorf("order %q does not belong to payment %s: %w", v.OrderID, p.PaymentNumber, models.ErrSignatureInvalid)
	}
	if !e.gateway.VerifySignature(*p.GatewayRef, v.PaymentID, v.Signature) {
		return nil, fmt.Errorf("payment %s: %w", p.PaymentNumber, models.ErrSignatureInvalid)
	}

	details, err := e.gateway.FetchPayment(ctx, v.PaymentID)
	if err != nil {
		if !errors.Is(err, models.ErrGatewayUnavailable) {
			err = fmt.Errorf("%v: %w", err, models.ErrGatewayUnavailable)
		}
		return nil, err
	}
	return details, e.checkCapture(p, details.OrderID, details.Amount, details.Status)
}

func (e *ReconciliationEngine) checkCapture(p *models.PaymentRecord, orderID string, amount decimal.Decimal, status string) error {
	if orderID != "" && p.GatewayRef != nil && orderID != *p.GatewayRef {
		return fmt.Errorf("gateway order %s does not match %s: %w", orderID, *p.GatewayRef, models.ErrSignatureInvalid)
	}
	if amount.Sub(p.Amount).Abs().GreaterThan(e.cfg.AmountTolerance) {
		return fmt.Errorf("captured %s, expected %s: %w", amount, p.Amount, models.ErrAmountMismatch)
	}
	if status != gateway.StatusCaptured {
		return fmt.Errorf("gateway status %q: %w", status, models.ErrNotCaptured)
	}
	return nil
}

type completion struct {
	gatewayPaymentID string
	response         json.RawMessage
	actor            string
	reason           string
}

// settle allocates against a fresh loan snapshot, completes the payment and
// debits the loan in one unit of work, retrying on version conflicts. The
// bool reports whether this call performed the settlement.
func (e *ReconciliationEngine) settle(ctx context.Context, paymentID string, c completion) (*models.PaymentRecord, bool, error) {
	var result *models.PaymentRecord
	var settled bool

	err := e.commit(ctx, func(tx repository.Tx) error {
		result, settled = nil, false

		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == models.PaymentCompleted {
			result = p
			return nil
		}
		if p.Status != models.PaymentPending {
			result = p
			return fmt.Errorf("payment %s is %s, cannot book capture %s: %w",
				p.PaymentNumber, p.Status, c.gatewayPaymentID, models.ErrInvalidTransition)
		}

		loan, err := tx.GetLoan(ctx, p.LoanID)
		if err != nil {
			return err
		}
		alloc, err := e.ledger.AllocationFor(loan, p.Amount)
		if err != nil {
			return err
		}
		at := e.now()
		after := e.ledger.Debit(*loan, alloc, p.Purpose, at)

		outstanding := after.TotalOutstanding
		receipt := documentNumber(e.cfg.ReceiptPrefix, at)
		fields := models.TransitionFields{
			Allocation:         &alloc,
			OutstandingAfter:   &outstanding,
			GatewayResponse:    c.response,
			ReceiptNumber:      &receipt,
			VerificationStatus: models.VerificationVerified,
			At:                 at,
		}
		if c.gatewayPaymentID != "" {
			fields.GatewayPaymentID = &c.gatewayPaymentID
		}

		current, changed, err := e.payments.Transition(ctx, tx, p.ID, models.PaymentCompleted, fields, c.reason, c.actor)
		result = current
		if err != nil || !changed {
			return err
		}

		if _, err := e.ledger.ApplyPayment(ctx, tx, loan, &after, p.ID, alloc); err != nil {
			return err
		}
		if !loan.Status.AcceptsPayments() {
			e.logFor(current).WithField("loan_status", loan.Status).Warn("captured payment on inactive loan booked as penalty")
		}
		settled = true
		return nil
	})

	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) && result != nil {
			e.logFor(result).WithError(err).WithFields(logrus.Fields{
				"status":             result.Status,
				"gateway_payment_id": c.gatewayPaymentID,
				"actor":              c.actor,
			}).Error("captured payment cannot be settled")
			e.audit.LogError(result.PaymentNumber, result.LoanID, err)
			return result, false, err
		}
		config.LogError(e.logger, "ReconciliationEngine", "settle", "settlement commit failed",
			map[string]string{"payment_id": paymentID}, err)
		return nil, false, err
	}

	if settled {
		e.afterSettlement(ctx, result, c.actor)
	}
	return result, settled, nil
}

// finish moves a PENDING payment to a terminal status without touching the
// ledger. When the payment is already final the current record is returned
// with changed == false, plus ErrInvalidTransition if it is in a different
// status than `to`.
func (e *ReconciliationEngine) finish(ctx context.Context, paymentID string, to models.PaymentStatus, reason, actor string, verification models.VerificationStatus, response json.RawMessage) (*models.PaymentRecord, bool, error) {
	var result *models.PaymentRecord
	var changed bool

	err := e.store.WithTx(ctx, func(tx repository.Tx) error {
		fields := models.TransitionFields{
			GatewayResponse:    response,
			VerificationStatus: verification,
			At:                 e.now(),
		}
		if to == models.PaymentFailed {
			fields.FailureReason = &reason
		}
		var err error
		result, changed, err = e.payments.Transition(ctx, tx, paymentID, to, fields, reason, actor)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) && result != nil {
			return result, false, err
		}
		return nil, false, err
	}
	if changed {
		e.logFor(result).WithFields(logrus.Fields{"status": to, "reason": reason, "actor": actor}).Info("payment closed")
	}
	return result, changed, nil
}

// HandleWebhook processes a gateway notification. It never returns an error:
// the gateway treats any non-2xx as a retry, so every outcome is acknowledged
// and reported through the result and the logs.
func (e *ReconciliationEngine) HandleWebhook(ctx context.Context, raw []byte, signature string) WebhookResult {
	ev, err := e.gateway.ParseWebhook(raw, signature)
	if err != nil {
		e.logger.WithError(err).Warn("gateway webhook rejected")
		e.audit.LogPayment(audit.EventWebhookDiscarded, "", "", decimal.Zero, string(WebhookRejected), models.GatewayWebhookActor,
			map[string]string{"error": err.Error()})
		return WebhookResult{Outcome: WebhookRejected}
	}

	log := e.logger.WithFields(logrus.Fields{
		"event":              ev.Event,
		"gateway_ref":        ev.OrderID,
		"gateway_payment_id": ev.PaymentID,
		"actor":              models.GatewayWebhookActor,
	})

	switch ev.Event {
	case gateway.EventPaymentCaptured, gateway.EventOrderPaid, gateway.EventPaymentFailed:
	default:
		log.Info("ignoring unhandled gateway event")
		return WebhookResult{Outcome: WebhookIgnored}
	}

	if !e.dedupe.FirstDelivery(ctx, ev.Event, ev.PaymentID) {
		log.Info("duplicate webhook delivery dropped")
		return WebhookResult{Outcome: WebhookDuplicate}
	}

	result := e.applyWebhook(ctx, ev, log)
	if result.Outcome == WebhookError {
		// the request may already be cancelled; the marker must still go
		e.dedupe.Forget(context.WithoutCancel(ctx), ev.Event, ev.PaymentID)
	}
	log.WithField("outcome", result.Outcome).Info("gateway webhook processed")
	return result
}

func (e *ReconciliationEngine) applyWebhook(ctx context.Context, ev *gateway.WebhookEvent, log *logrus.Entry) WebhookResult {
	p, err := e.payments.FindByTransactionRef(ctx, ev.OrderID)
	if errors.Is(err, models.ErrPaymentNotFound) {
		log.Warn("webhook for unknown transaction reference discarded")
		e.audit.LogPayment(audit.EventWebhookDiscarded, "", "", ev.Amount, string(WebhookUnknownRef), models.GatewayWebhookActor,
			map[string]string{"gateway_ref": ev.OrderID, "event": ev.Event})
		return WebhookResult{Outcome: WebhookUnknownRef}
	}
	if err != nil {
		log.WithError(err).Error("webhook payment lookup failed")
		return WebhookResult{Outcome: WebhookError}
	}
	if p.Status == models.PaymentCompleted {
		return WebhookResult{Outcome: WebhookAlreadyFinal, Payment: p}
	}

	if ev.Event == gateway.EventPaymentFailed {
		if p.Status.IsTerminal() {
			return WebhookResult{Outcome: WebhookAlreadyFinal, Payment: p}
		}
		return e.recordFailedAttempt(ctx, p, ev, log)
	}

	if err := e.checkCapture(p, ev.OrderID, ev.Amount, ev.Status); err != nil {
		failed, changed, ferr := e.finish(ctx, p.ID, models.PaymentFailed, err.Error(), models.GatewayWebhookActor, models.VerificationRejected, ev.Raw)
		switch {
		case errors.Is(ferr, models.ErrInvalidTransition):
			return WebhookResult{Outcome: WebhookAlreadyFinal, Payment: failed}
		case ferr != nil:
			log.WithError(ferr).Error("failed to record gateway failure")
			return WebhookResult{Outcome: WebhookError}
		case !changed:
			return WebhookResult{Outcome: WebhookAlreadyFinal, Payment: failed}
		}
		e.audit.LogPayment(audit.EventFailed, failed.PaymentNumber, failed.LoanID, failed.Amount, string(failed.Status),
			models.GatewayWebhookActor, map[string]string{"reason": err.Error()})
		return WebhookResult{Outcome: WebhookFailed, Payment: failed}
	}

	record, settled, err := e.settle(ctx, p.ID, completion{
		gatewayPaymentID: ev.PaymentID,
		response:         ev.Raw,
		actor:            models.GatewayWebhookActor,
		reason:           "captured webhook " + ev.Event,
	})
	switch {
	case errors.Is(err, models.ErrInvalidTransition):
		return WebhookResult{Outcome: WebhookUnbookable, Payment: record}
	case err != nil:
		return WebhookResult{Outcome: WebhookError}
	case !settled:
		return WebhookResult{Outcome: WebhookAlreadyFinal, Payment: record}
	}
	return WebhookResult{Outcome: WebhookSettled, Payment: record}
}

// recordFailedAttempt notes a declined checkout attempt on a PENDING payment.
// The customer may retry on the same order, so the payment stays open until a
// capture settles it, verification rejects it or the expiry sweep closes it.
func (e *ReconciliationEngine) recordFailedAttempt(ctx context.Context, p *models.PaymentRecord, ev *gateway.WebhookEvent, log *logrus.Entry) WebhookResult {
	reason := ev.ErrorDesc
	if reason == "" {
		reason = "payment failed at gateway"
	}
	reason = fmt.Sprintf("attempt %s failed: %s", ev.PaymentID, reason)

	var current *models.PaymentRecord
	err := e.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		current, err = e.payments.RecordFailedAttempt(ctx, tx, p.ID, ev.Raw, reason, models.GatewayWebhookActor, e.now())
		return err
	})
	switch {
	case errors.Is(err, models.ErrInvalidTransition):
		return WebhookResult{Outcome: WebhookAlreadyFinal, Payment: current}
	case err != nil:
		log.WithError(err).Error("failed to record declined attempt")
		return WebhookResult{Outcome: WebhookError}
	}

	e.logFor(current).WithField("reason", reason).Warn("gateway attempt failed, payment stays pending")
	e.audit.LogPayment(audit.EventAttemptFailed, current.PaymentNumber, current.LoanID, ev.Amount, string(current.Status),
		models.GatewayWebhookActor, map[string]string{"reason": reason, "gateway_payment_id": ev.PaymentID})
	return WebhookResult{Outcome: WebhookFailed, Payment: current}
}

// RecordOffline books a field collection. The record is created COMPLETED and
// VERIFIED in the same unit of work as the ledger debit.
func (e *ReconciliationEngine) RecordOffline(ctx context.Context, req OfflineRequest) (*models.PaymentRecord, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("amount %s: %w", req.Amount, models.ErrInvalidAmount)
	}

	var record *models.PaymentRecord
	err := e.commit(ctx, func(tx repository.Tx) error {
		record = nil

		loan, err := tx.GetLoan(ctx, req.LoanID)
		if err != nil {
			return err
		}
		if !loan.Status.AcceptsPayments() {
			return fmt.Errorf("loan %s is %s: %w", loan.LoanNumber, loan.Status, models.ErrLoanNotActive)
		}

		alloc, err := e.ledger.AllocationFor(loan, req.Amount)
		if err != nil {
			return err
		}
		at := e.now()
		after := e.ledger.Debit(*loan, alloc, purposeOrDefault(req.Purpose), at)

		proof := req.Proof
		if proof.CollectorID == "" {
			proof.CollectorID = req.Actor.ID
		}
		outstanding := after.TotalOutstanding
		receipt := documentNumber(e.cfg.ReceiptPrefix, at)
		settledAt := at
		p := &models.PaymentRecord{
			ID:                 uuid.NewString(),
			PaymentNumber:      documentNumber(e.cfg.PaymentPrefix, at),
			LoanID:             loan.LoanID,
			Amount:             req.Amount,
			Method:             req.Method,
			Purpose:            purposeOrDefault(req.Purpose),
			Status:             models.PaymentCompleted,
			VerificationStatus: models.VerificationVerified,
			Allocation:         &alloc,
			OutstandingAfter:   &outstanding,
			Collection:         &proof,
			ReceiptNumber:      &receipt,
			CreatedBy:          req.Actor.ID,
			CreatedAt:          at,
			StatusChangedAt:    at,
			SettledAt:          &settledAt,
		}
		if err := e.payments.Create(ctx, tx, p, req.Actor.ID); err != nil {
			return err
		}
		if _, err := e.ledger.ApplyPayment(ctx, tx, loan, &after, p.ID, alloc); err != nil {
			return err
		}
		record = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.afterSettlement(ctx, record, req.Actor.ID)
	return record, nil
}

// Cancel abandons a PENDING online payment. Nothing was committed to the
// ledger, so nothing is reversed.
func (e *ReconciliationEngine) Cancel(ctx context.Context, paymentID string, actor models.Actor) (*models.PaymentRecord, error) {
	p, err := e.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentCancelled {
		return p, nil
	}

	cancelled, changed, err := e.finish(ctx, p.ID, models.PaymentCancelled, "cancelled by "+actor.ID, actor.ID, "", nil)
	if err != nil {
		return cancelled, err
	}
	if changed {
		e.audit.LogPayment(audit.EventCancelled, cancelled.PaymentNumber, cancelled.LoanID, cancelled.Amount,
			string(cancelled.Status), actor.ID, nil)
	}
	return cancelled, nil
}

// FailExpiredPending moves PENDING payments older than olderThan to FAILED.
// Payments settled concurrently are skipped, never overwritten.
func (e *ReconciliationEngine) FailExpiredPending(ctx context.Context, olderThan time.Duration) (*SweepResult, error) {
	if olderThan <= 0 {
		olderThan = e.cfg.PendingExpiry
	}
	result := &SweepResult{Cutoff: e.now().Add(-olderThan)}
	reason := fmt.Sprintf("expired: no confirmation within %s", olderThan)

	for {
		batch, err := e.payments.ListStalePending(ctx, result.Cutoff, sweepBatchSize)
		if err != nil {
			return result, err
		}

		progressed := false
		for _, p := range batch {
			result.Scanned++
			expired, changed, err := e.finish(ctx, p.ID, models.PaymentFailed, reason, models.SystemActor, "", nil)
			if err != nil && !errors.Is(err, models.ErrInvalidTransition) {
				return result, err
			}
			progressed = true
			if !changed {
				result.Skipped++
				continue
			}
			result.Expired++
			e.audit.LogPayment(audit.EventExpired, expired.PaymentNumber, expired.LoanID, expired.Amount,
				string(expired.Status), models.SystemActor, map[string]string{"reason": reason})
		}

		if len(batch) < sweepBatchSize || !progressed {
			break
		}
	}

	e.logger.WithFields(logrus.Fields{
		"cutoff":  result.Cutoff,
		"scanned": result.Scanned,
		"expired": result.Expired,
		"skipped": result.Skipped,
	}).Info("pending payment sweep finished")
	return result, nil
}

// GetPayment resolves a payment by internal id or payment number.
func (e *ReconciliationEngine) GetPayment(ctx context.Context, idOrNumber string) (*models.PaymentRecord, error) {
	return e.payments.Lookup(ctx, idOrNumber)
}

func (e *ReconciliationEngine) LoanBalance(ctx context.Context, loanID string) (*models.LoanBalance, error) {
	return e.ledger.Snapshot(ctx, loanID)
}

func (e *ReconciliationEngine) ListPayments(ctx context.Context, loanID string, limit int) ([]*models.PaymentRecord, error) {
	return e.payments.ListForLoan(ctx, loanID, limit)
}

func (e *ReconciliationEngine) LedgerEntries(ctx context.Context, loanID string) ([]*models.LedgerEntry, error) {
	return e.ledger.Entries(ctx, loanID)
}

// commit runs fn in a unit of work, starting over from a fresh snapshot when
// the loan version moved underneath it.
func (e *ReconciliationEngine) commit(ctx context.Context, fn func(tx repository.Tx) error) error {
	attempts := e.cfg.MaxCommitRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = e.store.WithTx(ctx, fn)
		if !errors.Is(err, models.ErrConcurrencyConflict) {
			return err
		}
		e.logger.WithField("attempt", attempt).Warn("loan balance changed during commit, retrying")
	}
	return err
}

func (e *ReconciliationEngine) afterSettlement(ctx context.Context, p *models.PaymentRecord, actor string) {
	e.logFor(p).WithFields(logrus.Fields{"actor": actor, "method": p.Method}).Info("payment settled")
	e.audit.LogPayment(audit.EventSettled, p.PaymentNumber, p.LoanID, p.Amount, string(p.Status), actor, p.Allocation)

	if e.sink == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.SettlementTimeout)
	defer cancel()
	if err := e.sink.Publish(pubCtx, events.NewSettlementEvent(p)); err != nil {
		config.LogError(e.logger, "ReconciliationEngine", "afterSettlement", "settlement event not delivered",
			map[string]string{"payment_number": p.PaymentNumber, "loan_id": p.LoanID}, err)
	}
}

func (e *ReconciliationEngine) logFor(p *models.PaymentRecord) *logrus.Entry {
	fields := logrus.Fields{
		"payment_number": p.PaymentNumber,
		"loan_id":        p.LoanID,
	}
	if p.GatewayRef != nil {
		fields["gateway_ref"] = *p.GatewayRef
	}
	return e.logger.WithFields(fields)
}

func purposeOrDefault(p models.PaymentPurpose) models.PaymentPurpose {
	if p == "" {
		return models.PurposeEMI
	}
	return p
}
