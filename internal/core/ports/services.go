package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// Status distinguishes a genuinely new effect from an idempotent replay.
type Status string

const (
	StatusOK               Status = "ok"
	StatusAlreadyProcessed Status = "already_processed"
)

// LedgerService is the transaction coordinator: it composes the ledger
// store, balance projection and idempotency guard into atomic operations.
type LedgerService interface {
	CreateWallet(ctx context.Context, req CreateWalletRequest) (*domain.Wallet, error)
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*TransactionResult, error)
	TransferBetweenWallets(ctx context.Context, req TransferRequest) (*TransferResult, error)
	GetBalancesForOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.WalletBalance, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID) ([]domain.Transaction, error)
}

// CreateWalletRequest holds validated input for wallet creation.
type CreateWalletRequest struct {
	OwnerID   uuid.UUID
	Currency  domain.Currency
	CreatedBy string
}

// CreateTransactionRequest holds validated input for a single-wallet
// ledger entry.
type CreateTransactionRequest struct {
	WalletID       uuid.UUID
	Amount         int64
	Currency       domain.Currency
	Type           domain.TransactionType
	Description    *string
	IdempotencyKey *string
	CreatedBy      string
}

// TransactionResult is the deterministic response of CreateTransaction.
// Idempotent replays return the original transaction id and balance with
// Status set to StatusAlreadyProcessed.
type TransactionResult struct {
	Status        Status    `json:"status"`
	TransactionID uuid.UUID `json:"transaction_id"`
	NewBalance    int64     `json:"new_balance"`
}

// TransferRequest holds validated input for a two-wallet transfer.
type TransferRequest struct {
	FromOwnerID    uuid.UUID
	ToOwnerID      uuid.UUID
	Currency       domain.Currency
	Amount         int64 // positive; the debit leg is negated
	Description    *string
	IdempotencyKey *string
	CreatedBy      string
}

// TransferResult is the deterministic response of TransferBetweenWallets.
type TransferResult struct {
	Status      Status    `json:"status"`
	DebitTxID   uuid.UUID `json:"debit_tx_id"`
	CreditTxID  uuid.UUID `json:"credit_tx_id"`
	FromBalance int64     `json:"from_balance"`
	ToBalance   int64     `json:"to_balance"`
}

// ReconciliationService detects and repairs drift between the balance
// projection and the ledger ground truth. It never mutates the ledger.
type ReconciliationService interface {
	// Reconcile scans the given wallets (all wallets when walletIDs is empty).
	// Per-wallet failures are collected into the result; ctx cancellation
	// stops the batch after the in-flight wallet completes.
	Reconcile(ctx context.Context, walletIDs []uuid.UUID, dryRun bool) (*domain.ReconciliationResult, error)
	// EmergencyReconcile forces a single wallet back to ground truth,
	// recording the operator-supplied reason.
	EmergencyReconcile(ctx context.Context, walletID uuid.UUID, reason string, requestedBy string) (*domain.EmergencyFixResult, error)
}

// AuditService emits structured audit facts to the external audit sink.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// ResultCache is the best-effort fast path in front of the durable
// idempotency records. A miss or error always falls through to storage.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil, nil on miss
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TokenService validates bearer tokens issued by the platform identity
// service and yields the authenticated principal.
type TokenService interface {
	Generate(principalID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed token claims.
type TokenClaims struct {
	PrincipalID uuid.UUID
}
