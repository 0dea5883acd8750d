package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.OwnerID == w.OwnerID && existing.Currency == w.Currency {
			return ports.ErrDuplicateKey
		}
	}
	r.wallets[w.ID] = w
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	return w, nil
}

func (r *inMemoryWalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID, currency domain.Currency) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.OwnerID == ownerID && w.Currency == currency {
			return w, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Wallet
	for _, w := range r.wallets {
		if w.OwnerID == ownerID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *inMemoryWalletRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.wallets))
	for id := range r.wallets {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *inMemoryWalletRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Active = false
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []*domain.Transaction
	byKey   map[string]*domain.Transaction
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{byKey: make(map[string]*domain.Transaction)}
}

func (r *inMemoryLedgerRepo) Append(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.IdempotencyKey != nil {
		if _, ok := r.byKey[*t.IdempotencyKey]; ok {
			return ports.ErrDuplicateKey
		}
		r.byKey[*t.IdempotencyKey] = t
	}
	r.entries = append(r.entries, t)
	return nil
}

func (r *inMemoryLedgerRepo) ListForWallet(ctx context.Context, walletID uuid.UUID) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for _, t := range r.entries {
		if t.WalletID == walletID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *inMemoryLedgerRepo) SumForWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, t := range r.entries {
		if t.WalletID == walletID {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (r *inMemoryLedgerRepo) SumForWalletTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (int64, error) {
	return r.SumForWallet(ctx, walletID)
}

func (r *inMemoryLedgerRepo) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byKey[key]
	if !ok {
		return nil, nil
	}
	return t, nil
}

// --- In-Memory Balance Repo ---

type inMemoryBalanceRepo struct {
	mu       sync.RWMutex
	balances map[uuid.UUID]*domain.WalletBalance
	wallets  *inMemoryWalletRepo
}

func newInMemoryBalanceRepo(wallets *inMemoryWalletRepo) *inMemoryBalanceRepo {
	return &inMemoryBalanceRepo{
		balances: make(map[uuid.UUID]*domain.WalletBalance),
		wallets:  wallets,
	}
}

func (r *inMemoryBalanceRepo) Get(ctx context.Context, walletID uuid.UUID) (*domain.WalletBalance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.balances[walletID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *inMemoryBalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (*domain.WalletBalance, error) {
	return r.Get(ctx, walletID)
}

func (r *inMemoryBalanceRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency domain.Currency, delta int64, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[walletID]
	if !ok {
		b = &domain.WalletBalance{WalletID: walletID, Currency: currency}
		r.balances[walletID] = b
	}
	b.Balance += delta
	b.LastTransactionAt = &at
	b.LastUpdated = at
	return b.Balance, nil
}

func (r *inMemoryBalanceRepo) SetBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, currency domain.Currency, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[walletID]
	if !ok {
		b = &domain.WalletBalance{WalletID: walletID, Currency: currency}
		r.balances[walletID] = b
	}
	b.Balance = balance
	b.LastUpdated = time.Now().UTC()
	return nil
}

func (r *inMemoryBalanceRepo) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.WalletBalance, error) {
	wallets, err := r.wallets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WalletBalance
	for _, w := range wallets {
		if b, ok := r.balances[w.ID]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.IdempotencyRecord
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{records: make(map[string]*domain.IdempotencyRecord)}
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.Key]; ok {
		return ports.ErrDuplicateKey
	}
	r.records[rec.Key] = rec
	return nil
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes transactions with a global lock, standing in
// for the row locks the real store takes. Begin blocks until the previous
// transaction commits or rolls back.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &serialTx{release: t.mu.Unlock}, nil
}

// serialTx releases the transactor lock exactly once, on Commit or on the
// deferred Rollback, whichever comes first.
type serialTx struct {
	noopTx
	once    sync.Once
	release func()
}

func (t *serialTx) Commit(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

func (t *serialTx) Rollback(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
