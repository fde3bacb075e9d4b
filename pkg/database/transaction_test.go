package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	open       bool
	committed  bool
	rolledBack bool
}

func (f *fakeTx) IsOpen() bool { return f.open }

func (f *fakeTx) Commit(_ context.Context) error {
	f.committed = true
	f.open = false
	return nil
}

func (f *fakeTx) Rollback(_ context.Context) error {
	f.rolledBack = true
	f.open = false
	return nil
}

func (f *fakeTx) DriverName() string { return "postgres" }

func (f *fakeTx) ExecContext(_ context.Context, _ string, _ ...any) (sql.Result, error) {
	return nil, nil
}

func (f *fakeTx) GetContext(_ context.Context, _ any, _ string, _ ...any) error { return nil }

func (f *fakeTx) SelectContext(_ context.Context, _ any, _ string, _ ...any) error { return nil }

func (f *fakeTx) QueryxContext(_ context.Context, _ string, _ ...any) (*sqlx.Rows, error) {
	return nil, nil
}

func (f *fakeTx) Rebind(query string) string { return query }

func ctxWithTx(tx Tx) context.Context {
	ctx := context.WithValue(context.Background(), txStatusKey, "open")
	return context.WithValue(ctx, txKey, tx)
}

func TestExecutor_FallsBackToPool(t *testing.T) {
	db := &DatabaseInstance{}

	got := Executor(context.Background(), db)

	assert.Same(t, db, got)
}

func TestExecutor_UsesOpenContextTransaction(t *testing.T) {
	db := &DatabaseInstance{}
	tx := &fakeTx{open: true}

	got := Executor(ctxWithTx(tx), db)

	assert.Same(t, tx, got)
}

func TestExecutor_IgnoresClosedTransaction(t *testing.T) {
	db := &DatabaseInstance{}
	tx := &fakeTx{open: false}

	got := Executor(ctxWithTx(tx), db)

	assert.Same(t, db, got)
}

func TestWithTransaction_JoinsOpenTransaction(t *testing.T) {
	tx := &fakeTx{open: true}
	ran := false

	// The open transaction belongs to the caller; joining must not settle it.
	err := WithTransaction(ctxWithTx(tx), &DatabaseInstance{}, func(ctx context.Context) error {
		ran = true
		assert.Same(t, tx, Executor(ctx, &DatabaseInstance{}))
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, tx.committed)
	assert.False(t, tx.rolledBack)
}
