package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition may leave s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentCancelled
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodUPI          PaymentMethod = "UPI"
	MethodCard         PaymentMethod = "CARD"
	MethodNetBanking   PaymentMethod = "NET_BANKING"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodWallet       PaymentMethod = "WALLET"
	MethodCheque       PaymentMethod = "CHEQUE"
)

// IsOnline reports whether the method settles through the payment gateway.
func (m PaymentMethod) IsOnline() bool {
	switch m {
	case MethodUPI, MethodCard, MethodNetBanking, MethodWallet:
		return true
	}
	return false
}

// PaymentPurpose classifies what the customer intends the payment for.
type PaymentPurpose string

const (
	PurposeEMI         PaymentPurpose = "EMI"
	PurposePartPayment PaymentPurpose = "PART_PAYMENT"
	PurposeClosure     PaymentPurpose = "CLOSURE"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Allocation is the waterfall split of a payment amount.
type Allocation struct {
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	Penalty   decimal.Decimal `json:"penalty"`
}

func (a Allocation) Total() decimal.Decimal {
	return a.Interest.Add(a.Principal).Add(a.Penalty)
}

// Location represents where an offline collection happened.
type Location struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Address   string  `json:"address,omitempty"`
}

// CollectionProof is the field agent's evidence for an offline payment.
type CollectionProof struct {
	CollectorID   string    `json:"collector_id"`
	Location      *Location `json:"location,omitempty"`
	ProofRefs     []string  `json:"proof_refs,omitempty"`
	ReferenceNote string    `json:"reference_note,omitempty"`
}

// PaymentRecord is one payment attempt against a loan. Records are never deleted.
type PaymentRecord struct {
	ID                 string             `json:"id" db:"id"`
	PaymentNumber      string             `json:"payment_number" db:"payment_number"`
	LoanID             string             `json:"loan_id" db:"loan_id"`
	Amount             decimal.Decimal    `json:"amount" db:"amount"`
	Method             PaymentMethod      `json:"method" db:"method"`
	Purpose            PaymentPurpose     `json:"purpose" db:"purpose"`
	Status             PaymentStatus      `json:"status" db:"status"`
	VerificationStatus VerificationStatus `json:"verification_status" db:"verification_status"`
	Allocation         *Allocation        `json:"allocation,omitempty"`
	OutstandingAfter   *decimal.Decimal   `json:"outstanding_after,omitempty" db:"outstanding_after"`
	GatewayRef         *string            `json:"gateway_ref,omitempty" db:"gateway_transaction_ref"`
	GatewayPaymentID   *string            `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`
	GatewayResponse    json.RawMessage    `json:"gateway_response,omitempty" db:"gateway_response"`
	Collection         *CollectionProof   `json:"collection,omitempty" db:"collection"`
	ReceiptNumber      *string            `json:"receipt_number,omitempty" db:"receipt_number"`
	FailureReason      *string            `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedBy          string             `json:"created_by" db:"created_by"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	StatusChangedAt    time.Time          `json:"status_changed_at" db:"status_changed_at"`
	SettledAt          *time.Time         `json:"settled_at,omitempty" db:"settled_at"`
}

// TransitionFields carries the columns written together with a status change.
type TransitionFields struct {
	Allocation         *Allocation
	OutstandingAfter   *decimal.Decimal
	GatewayPaymentID   *string
	GatewayResponse    json.RawMessage
	ReceiptNumber      *string
	FailureReason      *string
	VerificationStatus VerificationStatus
	At                 time.Time
}

// Apply copies the transition onto p.
func (f TransitionFields) Apply(p *PaymentRecord, to PaymentStatus) {
	p.Status = to
	p.StatusChangedAt = f.At
	if f.Allocation != nil {
		p.Allocation = f.Allocation
	}
	if f.OutstandingAfter != nil {
		p.OutstandingAfter = f.OutstandingAfter
	}
	if f.GatewayPaymentID != nil {
		p.GatewayPaymentID = f.GatewayPaymentID
	}
	if len(f.GatewayResponse) > 0 {
		p.GatewayResponse = f.GatewayResponse
	}
	if f.ReceiptNumber != nil {
		p.ReceiptNumber = f.ReceiptNumber
	}
	if f.FailureReason != nil {
		p.FailureReason = f.FailureReason
	}
	if f.VerificationStatus != "" {
		p.VerificationStatus = f.VerificationStatus
	}
	if to == PaymentCompleted {
		at := f.At
		p.SettledAt = &at
	}
}

// StatusChange is an append-only audit row.
type StatusChange struct {
	PaymentID string        `json:"payment_id" db:"payment_id"`
	From      PaymentStatus `json:"from_status" db:"from_status"`
	To        PaymentStatus `json:"to_status" db:"to_status"`
	Reason    string        `json:"reason,omitempty" db:"reason"`
	Actor     string        `json:"actor" db:"actor"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// Actor is the authenticated principal that triggered an operation.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

const (
	RoleCustomer        = "CUSTOMER"
	RoleCollectionAgent = "COLLECTION_AGENT"
	RoleBranchManager   = "BRANCH_MANAGER"
	RoleAdmin           = "ADMIN"
	SystemActor         = "system"
	GatewayWebhookActor = "gateway-webhook"
)

// CanCollect reports whether the role may record offline collections.
func (a Actor) CanCollect() bool {
	switch a.Role {
	case RoleCollectionAgent, RoleBranchManager, RoleAdmin:
		return true
	}
	return false
}
