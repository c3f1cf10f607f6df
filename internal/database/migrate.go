package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently at startup. loans rows are owned by the
// origination service; the ledger only updates the balance columns.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		loan_number TEXT NOT NULL UNIQUE,
		outstanding_principal NUMERIC(18,2) NOT NULL CHECK (outstanding_principal >= 0),
		accrued_interest NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (accrued_interest >= 0),
		total_outstanding NUMERIC(18,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		last_payment_date TIMESTAMPTZ,
		next_due_date TIMESTAMPTZ,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT loans_total_matches CHECK (total_outstanding = outstanding_principal + accrued_interest)
	)`,
	`CREATE TABLE IF NOT EXISTS loan_payments (
		id TEXT PRIMARY KEY,
		payment_number TEXT NOT NULL UNIQUE,
		loan_id TEXT NOT NULL REFERENCES loans(id),
		amount NUMERIC(18,2) NOT NULL CHECK (amount > 0),
		method TEXT NOT NULL,
		purpose TEXT NOT NULL,
		status TEXT NOT NULL,
		verification_status TEXT NOT NULL,
		interest_paid NUMERIC(18,2),
		principal_paid NUMERIC(18,2),
		penalty_paid NUMERIC(18,2),
		outstanding_after NUMERIC(18,2),
		gateway_transaction_ref TEXT,
		gateway_payment_id TEXT,
		gateway_response JSONB,
		collection JSONB,
		receipt_number TEXT UNIQUE,
		failure_reason TEXT,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		status_changed_at TIMESTAMPTZ NOT NULL,
		settled_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_loan_payments_gateway_ref
		ON loan_payments (gateway_transaction_ref)
		WHERE gateway_transaction_ref IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_loan_payments_pending
		ON loan_payments (created_at)
		WHERE status = 'PENDING'`,
	`CREATE INDEX IF NOT EXISTS idx_loan_payments_loan
		ON loan_payments (loan_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS loan_ledger_entries (
		id BIGSERIAL PRIMARY KEY,
		loan_id TEXT NOT NULL REFERENCES loans(id),
		payment_id TEXT NOT NULL UNIQUE REFERENCES loan_payments(id),
		interest_paid NUMERIC(18,2) NOT NULL,
		principal_paid NUMERIC(18,2) NOT NULL,
		penalty_paid NUMERIC(18,2) NOT NULL,
		outstanding_before NUMERIC(18,2) NOT NULL,
		outstanding_after NUMERIC(18,2) NOT NULL,
		loan_version INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payment_status_history (
		id BIGSERIAL PRIMARY KEY,
		payment_id TEXT NOT NULL REFERENCES loan_payments(id),
		from_status TEXT,
		to_status TEXT NOT NULL,
		reason TEXT,
		actor TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate applies the ledger schema inside one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}
