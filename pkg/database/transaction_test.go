package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTx records commit/rollback; other pgx.Tx methods are never called here.
type stubTx struct {
	pgx.Tx
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *stubTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type stubBeginner struct {
	tx  *stubTx
	err error
}

func (b *stubBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestWithTransaction_Commit(t *testing.T) {
	db := &stubBeginner{tx: &stubTx{}}

	err := WithTransaction(context.Background(), db, func(tx pgx.Tx) error { return nil })

	require.NoError(t, err)
	assert.True(t, db.tx.committed)
	assert.False(t, db.tx.rolledBack)
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := &stubBeginner{tx: &stubTx{}}
	boom := errors.New("insert failed")

	err := WithTransaction(context.Background(), db, func(tx pgx.Tx) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, db.tx.committed)
	assert.True(t, db.tx.rolledBack)
}

func TestWithTransaction_RollbackOnPanic(t *testing.T) {
	db := &stubBeginner{tx: &stubTx{}}

	assert.Panics(t, func() {
		_ = WithTransaction(context.Background(), db, func(tx pgx.Tx) error { panic("boom") })
	})
	assert.True(t, db.tx.rolledBack)
}

func TestWithTransaction_CommitFailure(t *testing.T) {
	db := &stubBeginner{tx: &stubTx{commitErr: errors.New("conn reset")}}

	err := WithTransaction(context.Background(), db, func(tx pgx.Tx) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.True(t, db.tx.rolledBack)
}

func TestWithTransaction_BeginFailure(t *testing.T) {
	db := &stubBeginner{err: errors.New("pool closed")}

	err := WithTransaction(context.Background(), db, func(tx pgx.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})

	assert.ErrorContains(t, err, "failed to begin transaction")
}

func TestWithTransactionResult(t *testing.T) {
	db := &stubBeginner{tx: &stubTx{}}

	got, err := WithTransactionResult(context.Background(), db, func(tx pgx.Tx) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	db = &stubBeginner{tx: &stubTx{}}
	got, err = WithTransactionResult(context.Background(), db, func(tx pgx.Tx) (int, error) { return 7, errors.New("x") })
	assert.Error(t, err)
	assert.Zero(t, got)
}
