package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goldline/backend/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	uniqueViolation = "23505"
	gatewayRefIndex = "uq_loan_payments_gateway_ref"
)

const paymentColumns = `id, payment_number, loan_id, amount, method, purpose, status, verification_status,
		interest_paid, principal_paid, penalty_paid, outstanding_after,
		gateway_transaction_ref, gateway_payment_id, gateway_response, collection,
		receipt_number, failure_reason, created_by, created_at, status_changed_at, settled_at`

const loanColumns = `id, loan_number, outstanding_principal, accrued_interest, total_outstanding,
		status, last_payment_date, next_due_date, version, updated_at`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresStore implements Store on top of lib/pq.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLoan(ctx context.Context, loanID string) (*models.LoanBalance, error) {
	return getLoan(ctx, s.db, loanID)
}

func (s *PostgresStore) GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	return getPaymentWhere(ctx, s.db, "id = $1", paymentID)
}

func (s *PostgresStore) GetPaymentByNumber(ctx context.Context, paymentNumber string) (*models.PaymentRecord, error) {
	return getPaymentWhere(ctx, s.db, "payment_number = $1", paymentNumber)
}

func (s *PostgresStore) FindByTransactionRef(ctx context.Context, ref string) (*models.PaymentRecord, error) {
	return getPaymentWhere(ctx, s.db, "gateway_transaction_ref = $1", ref)
}

func (s *PostgresStore) ListPaymentsForLoan(ctx context.Context, loanID string, limit int) ([]*models.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM loan_payments
		WHERE loan_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, loanID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (s *PostgresStore) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*models.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM loan_payments
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (s *PostgresStore) ListLedgerEntries(ctx context.Context, loanID string) ([]*models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loan_id, payment_id, interest_paid, principal_paid, penalty_paid,
			outstanding_before, outstanding_after, loan_version, created_at
		FROM loan_ledger_entries
		WHERE loan_id = $1
		ORDER BY id`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.LoanID, &e.PaymentID, &e.InterestPaid, &e.PrincipalPaid, &e.PenaltyPaid,
			&e.OutstandingBefore, &e.OutstandingAfter, &e.LoanVersion, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

type pgTx struct {
	q querier
}

func (t *pgTx) GetLoan(ctx context.Context, loanID string) (*models.LoanBalance, error) {
	return getLoan(ctx, t.q, loanID)
}

func (t *pgTx) GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	return getPaymentWhere(ctx, t.q, "id = $1", paymentID)
}

func (t *pgTx) CreatePayment(ctx context.Context, p *models.PaymentRecord) error {
	var collection any
	if p.Collection != nil {
		data, err := json.Marshal(p.Collection)
		if err != nil {
			return err
		}
		collection = string(data)
	}

	var interest, principal, penalty any
	if p.Allocation != nil {
		interest, principal, penalty = p.Allocation.Interest, p.Allocation.Principal, p.Allocation.Penalty
	}

	_, err := t.q.ExecContext(ctx, `
		INSERT INTO loan_payments (id, payment_number, loan_id, amount, method, purpose, status, verification_status,
			interest_paid, principal_paid, penalty_paid, outstanding_after,
			gateway_transaction_ref, gateway_payment_id, gateway_response, collection,
			receipt_number, failure_reason, created_by, created_at, status_changed_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		p.ID, p.PaymentNumber, p.LoanID, p.Amount, p.Method, p.Purpose, p.Status, p.VerificationStatus,
		interest, principal, penalty, nullableDecimal(p.OutstandingAfter),
		nullableString(p.GatewayRef), nullableString(p.GatewayPaymentID), nullableJSON(p.GatewayResponse), collection,
		nullableString(p.ReceiptNumber), nullableString(p.FailureReason), p.CreatedBy, p.CreatedAt, p.StatusChangedAt, nullableTime(p.SettledAt))
	return mapWriteError(err)
}

func (t *pgTx) SetTransactionRef(ctx context.Context, paymentID, ref string) error {
	result, err := t.q.ExecContext(ctx, `
		UPDATE loan_payments SET gateway_transaction_ref = $1
		WHERE id = $2 AND status = 'PENDING'`, ref, paymentID)
	if err != nil {
		return mapWriteError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

func (t *pgTx) SetGatewayResponse(ctx context.Context, paymentID string, response json.RawMessage) error {
	result, err := t.q.ExecContext(ctx, `
		UPDATE loan_payments SET gateway_response = COALESCE($1::jsonb, gateway_response)
		WHERE id = $2 AND status = 'PENDING'`, nullableJSON(response), paymentID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

func (t *pgTx) TransitionPayment(ctx context.Context, paymentID string, to models.PaymentStatus, f models.TransitionFields) (bool, error) {
	var interest, principal, penalty any
	if f.Allocation != nil {
		interest, principal, penalty = f.Allocation.Interest, f.Allocation.Principal, f.Allocation.Penalty
	}
	var settledAt any
	if to == models.PaymentCompleted {
		settledAt = f.At
	}

	result, err := t.q.ExecContext(ctx, `
		UPDATE loan_payments SET
			status = $1,
			status_changed_at = $2,
			verification_status = COALESCE(NULLIF($3::text, ''), verification_status),
			interest_paid = COALESCE($4::numeric, interest_paid),
			principal_paid = COALESCE($5::numeric, principal_paid),
			penalty_paid = COALESCE($6::numeric, penalty_paid),
			outstanding_after = COALESCE($7::numeric, outstanding_after),
			gateway_payment_id = COALESCE($8::text, gateway_payment_id),
			gateway_response = COALESCE($9::jsonb, gateway_response),
			receipt_number = COALESCE($10::text, receipt_number),
			failure_reason = COALESCE($11::text, failure_reason),
			settled_at = COALESCE($12::timestamptz, settled_at)
		WHERE id = $13 AND status = 'PENDING'`,
		to, f.At, string(f.VerificationStatus),
		interest, principal, penalty, nullableDecimal(f.OutstandingAfter),
		nullableString(f.GatewayPaymentID), nullableJSON(f.GatewayResponse),
		nullableString(f.ReceiptNumber), nullableString(f.FailureReason), settledAt,
		paymentID)
	if err != nil {
		return false, mapWriteError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (t *pgTx) UpdateLoanBalance(ctx context.Context, loan *models.LoanBalance, expectedVersion int) error {
	result, err := t.q.ExecContext(ctx, `
		UPDATE loans
		SET outstanding_principal = $1, accrued_interest = $2, total_outstanding = $3, status = $4,
			last_payment_date = $5, next_due_date = $6, version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9`,
		loan.OutstandingPrincipal, loan.AccruedInterest, loan.TotalOutstanding, loan.Status,
		nullableTime(loan.LastPaymentDate), nullableTime(loan.NextDueDate), loan.UpdatedAt,
		loan.LoanID, expectedVersion)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("loan %s at version %d: %w", loan.LoanID, expectedVersion, models.ErrConcurrencyConflict)
	}

	loan.Version = expectedVersion + 1
	return nil
}

func (t *pgTx) AppendLedgerEntry(ctx context.Context, e *models.LedgerEntry) error {
	return t.q.QueryRowContext(ctx, `
		INSERT INTO loan_ledger_entries (loan_id, payment_id, interest_paid, principal_paid, penalty_paid,
			outstanding_before, outstanding_after, loan_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		e.LoanID, e.PaymentID, e.InterestPaid, e.PrincipalPaid, e.PenaltyPaid,
		e.OutstandingBefore, e.OutstandingAfter, e.LoanVersion, e.CreatedAt).Scan(&e.ID)
}

func (t *pgTx) AppendStatusChange(ctx context.Context, c *models.StatusChange) error {
	from := sql.NullString{String: string(c.From), Valid: c.From != ""}
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO payment_status_history (payment_id, from_status, to_status, reason, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.PaymentID, from, c.To, c.Reason, c.Actor, c.CreatedAt)
	return err
}

func getLoan(ctx context.Context, q querier, loanID string) (*models.LoanBalance, error) {
	var loan models.LoanBalance
	var lastPayment, nextDue sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT `+loanColumns+`
		FROM loans
		WHERE id = $1`, loanID).Scan(
		&loan.LoanID, &loan.LoanNumber, &loan.OutstandingPrincipal, &loan.AccruedInterest, &loan.TotalOutstanding,
		&loan.Status, &lastPayment, &nextDue, &loan.Version, &loan.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %s: %w", loanID, models.ErrLoanNotFound)
	}
	if err != nil {
		return nil, err
	}
	loan.LastPaymentDate = timePtr(lastPayment)
	loan.NextDueDate = timePtr(nextDue)
	return &loan, nil
}

func getPaymentWhere(ctx context.Context, q querier, where string, arg any) (*models.PaymentRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM loan_payments
		WHERE `+where, arg)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %v: %w", arg, models.ErrPaymentNotFound)
	}
	return p, err
}

func scanPayments(rows *sql.Rows) ([]*models.PaymentRecord, error) {
	var payments []*models.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	var interest, principal, penalty, outstandingAfter decimal.NullDecimal
	var gatewayRef, gatewayPaymentID, receipt, failure sql.NullString
	var gatewayResponse, collection []byte
	var settledAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.PaymentNumber, &p.LoanID, &p.Amount, &p.Method, &p.Purpose, &p.Status, &p.VerificationStatus,
		&interest, &principal, &penalty, &outstandingAfter,
		&gatewayRef, &gatewayPaymentID, &gatewayResponse, &collection,
		&receipt, &failure, &p.CreatedBy, &p.CreatedAt, &p.StatusChangedAt, &settledAt)
	if err != nil {
		return nil, err
	}

	if interest.Valid || principal.Valid || penalty.Valid {
		p.Allocation = &models.Allocation{
			Interest:  interest.Decimal,
			Principal: principal.Decimal,
			Penalty:   penalty.Decimal,
		}
	}
	if outstandingAfter.Valid {
		d := outstandingAfter.Decimal
		p.OutstandingAfter = &d
	}
	p.GatewayRef = stringPtr(gatewayRef)
	p.GatewayPaymentID = stringPtr(gatewayPaymentID)
	p.ReceiptNumber = stringPtr(receipt)
	p.FailureReason = stringPtr(failure)
	p.SettledAt = timePtr(settledAt)
	if len(gatewayResponse) > 0 {
		p.GatewayResponse = json.RawMessage(gatewayResponse)
	}
	if len(collection) > 0 {
		var proof models.CollectionProof
		if err := json.Unmarshal(collection, &proof); err != nil {
			return nil, fmt.Errorf("decode collection proof: %w", err)
		}
		p.Collection = &proof
	}
	return &p, nil
}

func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == gatewayRefIndex {
		return fmt.Errorf("%s: %w", pqErr.Constraint, models.ErrDuplicateTransactionRef)
	}
	return err
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
