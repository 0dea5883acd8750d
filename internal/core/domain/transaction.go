package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeDeposit       TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal    TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer      TransactionType = "TRANSFER"
	TransactionTypeEscrowHold    TransactionType = "ESCROW_HOLD"
	TransactionTypeEscrowRelease TransactionType = "ESCROW_RELEASE"
	TransactionTypePayout        TransactionType = "PAYOUT"
	TransactionTypeFee           TransactionType = "FEE"
	TransactionTypeRefund        TransactionType = "REFUND"
	TransactionTypeAdjustment    TransactionType = "ADJUSTMENT"
)

// KnownTransactionType reports whether t is a recognized ledger entry type.
func KnownTransactionType(t TransactionType) bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer,
		TransactionTypeEscrowHold, TransactionTypeEscrowRelease, TransactionTypePayout,
		TransactionTypeFee, TransactionTypeRefund, TransactionTypeAdjustment:
		return true
	}
	return false
}

// RelatedEntityTransaction marks related_entity_id as pointing at another
// ledger entry (the opposite leg of a transfer).
const RelatedEntityTransaction = "transaction"

// Transaction is an immutable, append-only ledger entry. Amount is a signed
// integer in the currency's minor unit and is never zero. Once written a
// transaction is never mutated or deleted.
type Transaction struct {
	ID                uuid.UUID       `json:"id"`
	WalletID          uuid.UUID       `json:"wallet_id"`
	Amount            int64           `json:"amount"` // minor units, signed
	Currency          Currency        `json:"currency"`
	Type              TransactionType `json:"type"`
	Description       *string         `json:"description,omitempty"`
	IdempotencyKey    *string         `json:"idempotency_key,omitempty"`
	RelatedEntityType *string         `json:"related_entity_type,omitempty"`
	RelatedEntityID   *string         `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	CreatedBy         string          `json:"created_by"`
}

// IsDebit reports whether the entry removes funds from its wallet.
func (t *Transaction) IsDebit() bool {
	return t.Amount < 0
}
