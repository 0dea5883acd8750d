package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository over the wallet_balances
// projection table.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

const balanceColumns = `wallet_id, currency, balance, last_transaction_at, last_updated`

// Get fetches a wallet's cached balance (non-locking read).
func (r *BalanceRepo) Get(ctx context.Context, walletID uuid.UUID) (*domain.WalletBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM wallet_balances WHERE wallet_id = $1`
	return scanBalance(r.pool.QueryRow(ctx, query, walletID))
}

// GetForUpdate fetches a wallet's cached balance with pessimistic locking.
// This MUST be called within a transaction. Returns nil when the wallet has
// no projection row yet.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.WalletBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM wallet_balances WHERE wallet_id = $1 FOR UPDATE`
	return scanBalance(tx.QueryRow(ctx, query, walletID))
}

// ApplyDelta adds delta to the cached balance, creating the row on a
// wallet's first transaction, and returns the new balance. The additive
// ON CONFLICT update makes concurrent first-transaction races safe.
func (r *BalanceRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency domain.Currency, delta int64, at time.Time) (int64, error) {
	query := `INSERT INTO wallet_balances (wallet_id, currency, balance, last_transaction_at, last_updated)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (wallet_id) DO UPDATE
		SET balance = wallet_balances.balance + $3, last_transaction_at = $4, last_updated = NOW()
		RETURNING balance`

	var newBalance int64
	if err := tx.QueryRow(ctx, query, walletID, currency, delta, at).Scan(&newBalance); err != nil {
		return 0, fmt.Errorf("apply balance delta: %w", err)
	}
	return newBalance, nil
}

// SetBalance overwrites the cached balance with the recomputed ground truth.
// Reconciliation is the only caller.
func (r *BalanceRepo) SetBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency domain.Currency, balance int64) error {
	query := `INSERT INTO wallet_balances (wallet_id, currency, balance, last_updated)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (wallet_id) DO UPDATE
		SET balance = $3, last_updated = NOW()`

	if _, err := tx.Exec(ctx, query, walletID, currency, balance); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

// ListForOwner fetches all cached balances for an owner's wallets.
func (r *BalanceRepo) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.WalletBalance, error) {
	query := `SELECT b.wallet_id, b.currency, b.balance, b.last_transaction_at, b.last_updated
		FROM wallet_balances b
		JOIN wallets w ON w.id = b.wallet_id
		WHERE w.owner_id = $1 ORDER BY b.currency`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list balances for owner: %w", err)
	}
	defer rows.Close()

	var balances []domain.WalletBalance
	for rows.Next() {
		b := domain.WalletBalance{}
		if err := rows.Scan(&b.WalletID, &b.Currency, &b.Balance, &b.LastTransactionAt, &b.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance rows: %w", err)
	}
	return balances, nil
}

func scanBalance(row pgx.Row) (*domain.WalletBalance, error) {
	b := &domain.WalletBalance{}
	err := row.Scan(&b.WalletID, &b.Currency, &b.Balance, &b.LastTransactionAt, &b.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan balance: %w", err)
	}
	return b, nil
}
