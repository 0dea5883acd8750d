package ports

import (
	"context"
	"errors"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrDuplicateKey is returned by repositories when an insert violates a
// uniqueness constraint (idempotency key, owner/currency pair). The storage
// layer is the sole arbiter of uniqueness under concurrency; callers detect
// this sentinel with errors.Is and read back the winning record.
var ErrDuplicateKey = errors.New("duplicate key")

// WalletRepository defines persistence operations for wallets.
type WalletRepository interface {
	// Create inserts a wallet. Returns ErrDuplicateKey when a wallet for the
	// same (owner, currency) already exists.
	Create(ctx context.Context, w *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID, currency domain.Currency) (*domain.Wallet, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Wallet, error)
	// ListIDs returns the ids of all wallets, for batch reconciliation scans.
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// LedgerRepository defines persistence for the append-only transaction log.
// Entries are never updated or deleted.
type LedgerRepository interface {
	// Append inserts a ledger entry inside a storage transaction. Returns
	// ErrDuplicateKey when the entry's idempotency key already exists.
	Append(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	// ListForWallet returns a wallet's entries in commit order.
	ListForWallet(ctx context.Context, walletID uuid.UUID) ([]domain.Transaction, error)
	// SumForWallet recomputes the ground-truth balance by summation.
	SumForWallet(ctx context.Context, walletID uuid.UUID) (int64, error)
	// SumForWalletTx is SumForWallet executed inside a storage transaction,
	// used by reconciliation to re-diff under the balance row lock.
	SumForWalletTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
}

// BalanceRepository defines persistence for the wallet balance projection.
// Rows are only written by the coordinator's guarded delta application and by
// reconciliation fixes; no other path mutates them.
type BalanceRepository interface {
	Get(ctx context.Context, walletID uuid.UUID) (*domain.WalletBalance, error)
	// GetForUpdate locks the balance row for the rest of the transaction.
	// Returns nil when the wallet has no projection row yet.
	GetForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.WalletBalance, error)
	// ApplyDelta adds delta to the cached balance (insert-or-add) and returns
	// the new balance. Must run in the same transaction as the ledger append.
	ApplyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency domain.Currency, delta int64, at time.Time) (int64, error)
	// SetBalance overwrites the cached balance (insert-or-set), used only by
	// reconciliation fixes.
	SetBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency domain.Currency, balance int64) error
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.WalletBalance, error)
}

// IdempotencyRepository persists deterministic operation results keyed by
// idempotency key. Create participates in the operation's transaction.
type IdempotencyRepository interface {
	// Create returns ErrDuplicateKey when the key is already recorded.
	Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management. All multi-record
// atomic units (ledger append + balance update + idempotency record) run
// inside one transaction obtained here.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
