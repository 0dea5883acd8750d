package postgres

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	rec := &domain.IdempotencyRecord{
		Key:          "op-123",
		ResponseJSON: []byte(`{"status":"ok"}`),
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_results").
		WithArgs(rec.Key, rec.ResponseJSON, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Create_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	rec := &domain.IdempotencyRecord{
		Key:          "op-123",
		ResponseJSON: []byte(`{"status":"ok"}`),
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_results").
		WithArgs(rec.Key, rec.ResponseJSON, rec.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, rec)
	assert.ErrorIs(t, err, ports.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM idempotency_results WHERE key").
		WithArgs("op-123").
		WillReturnRows(pgxmock.NewRows([]string{"key", "response_json", "created_at"}).
			AddRow("op-123", []byte(`{"status":"ok"}`), now))

	result, err := repo.Get(context.Background(), "op-123")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "op-123", result.Key)
	assert.JSONEq(t, `{"status":"ok"}`, string(result.ResponseJSON))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM idempotency_results WHERE key").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"key", "response_json", "created_at"}))

	result, err := repo.Get(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
