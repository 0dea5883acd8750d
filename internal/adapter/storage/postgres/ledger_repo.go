package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository over the append-only
// transactions table.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

const txColumns = `id, wallet_id, amount, currency, type, description,
	idempotency_key, related_entity_type, related_entity_id, created_at, created_by`

// Append inserts a ledger entry within a database transaction. The UNIQUE
// index on idempotency_key is the concurrency-safety mechanism for duplicate
// submissions; violations surface as ports.ErrDuplicateKey.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + txColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.Amount, t.Currency, t.Type, t.Description,
		t.IdempotencyKey, t.RelatedEntityType, t.RelatedEntityID,
		t.CreatedAt, t.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListForWallet returns a wallet's ledger entries in commit order.
func (r *LedgerRepo) ListForWallet(ctx context.Context, walletID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions
		WHERE wallet_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.WalletID, &t.Amount, &t.Currency, &t.Type, &t.Description,
			&t.IdempotencyKey, &t.RelatedEntityType, &t.RelatedEntityID,
			&t.CreatedAt, &t.CreatedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

// SumForWallet recomputes the ground-truth balance by summation over the
// ledger. Pure read, no side effects.
func (r *LedgerRepo) SumForWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	return sumForWallet(ctx, r.pool, walletID)
}

// SumForWalletTx recomputes the ground-truth balance inside an open
// transaction, so reconciliation can re-diff under the balance row lock.
func (r *LedgerRepo) SumForWalletTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error) {
	return sumForWallet(ctx, tx, walletID)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func sumForWallet(ctx context.Context, q rowQuerier, walletID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE wallet_id = $1`

	var sum int64
	if err := q.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return sum, nil
}

// FindByIdempotencyKey fetches the ledger entry recorded under key.
func (r *LedgerRepo) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE idempotency_key = $1`

	t := &domain.Transaction{}
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&t.ID, &t.WalletID, &t.Amount, &t.Currency, &t.Type, &t.Description,
		&t.IdempotencyKey, &t.RelatedEntityType, &t.RelatedEntityID,
		&t.CreatedAt, &t.CreatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find transaction by idempotency key: %w", err)
	}
	return t, nil
}
