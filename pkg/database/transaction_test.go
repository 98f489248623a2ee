package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriverTx struct {
	execErr     error
	commits     int
	rollbacks   int
	executed    []string
	rollbackErr error
}

func (f *fakeDriverTx) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	f.executed = append(f.executed, query)
	return nil, f.execErr
}

func (f *fakeDriverTx) GetContext(_ context.Context, _ any, query string, _ ...any) error {
	f.executed = append(f.executed, query)
	return f.execErr
}

func (f *fakeDriverTx) SelectContext(_ context.Context, _ any, query string, _ ...any) error {
	f.executed = append(f.executed, query)
	return f.execErr
}

func (f *fakeDriverTx) Commit() error {
	f.commits++
	return nil
}

func (f *fakeDriverTx) Rollback() error {
	f.rollbacks++
	return f.rollbackErr
}

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestTransaction_Commit(t *testing.T) {
	ctx := context.Background()
	driver := &fakeDriverTx{}
	tx := NewTx(driver, silentLogger())

	_, err := tx.ExecContext(ctx, "INSERT 1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.Equal(t, TxCommitted, tx.State())
	assert.False(t, tx.IsOpen())
	assert.Equal(t, 1, driver.commits)

	t.Run("terminal state rejects statements", func(t *testing.T) {
		_, err := tx.ExecContext(ctx, "INSERT 2")
		assert.ErrorIs(t, err, ErrTxDone)
		assert.ErrorIs(t, tx.GetContext(ctx, nil, "SELECT"), ErrTxDone)
		assert.Equal(t, []string{"INSERT 1"}, driver.executed)
	})

	t.Run("second commit fails", func(t *testing.T) {
		assert.ErrorIs(t, tx.Commit(ctx), ErrTxDone)
		assert.Equal(t, 1, driver.commits)
	})

	t.Run("rollback after commit is a no-op", func(t *testing.T) {
		assert.NoError(t, tx.Rollback(ctx))
		assert.Equal(t, TxCommitted, tx.State())
		assert.Equal(t, 0, driver.rollbacks)
	})
}

func TestTransaction_RollbackIsIdempotent(t *testing.T) {
	ctx := context.Background()
	driver := &fakeDriverTx{}
	tx := NewTx(driver, silentLogger())

	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, TxRolledBack, tx.State())
	assert.Equal(t, 1, driver.rollbacks)
	assert.ErrorIs(t, tx.Commit(ctx), ErrTxDone)
	assert.Equal(t, 0, driver.commits)
}

func TestTransaction_RollbackSwallowsDriverError(t *testing.T) {
	ctx := context.Background()
	driver := &fakeDriverTx{rollbackErr: errors.New("connection reset")}
	tx := NewTx(driver, silentLogger())

	assert.NoError(t, tx.Rollback(ctx))
	assert.Equal(t, TxRolledBack, tx.State())
}

func TestTransaction_FailedStatementAbortsCommit(t *testing.T) {
	ctx := context.Background()
	driver := &fakeDriverTx{execErr: errors.New("boom")}
	tx := NewTx(driver, silentLogger())

	_, err := tx.ExecContext(ctx, "DELETE 1")
	require.Error(t, err)

	err = tx.Commit(ctx)
	assert.ErrorIs(t, err, ErrTxAborted)
	assert.Equal(t, TxRolledBack, tx.State())
	assert.Equal(t, 0, driver.commits)
	assert.Equal(t, 1, driver.rollbacks)
}

func TestTransaction_NoRowsDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	driver := &fakeDriverTx{execErr: sql.ErrNoRows}
	tx := NewTx(driver, silentLogger())

	err := tx.GetContext(ctx, nil, "SELECT 1")
	require.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, tx.Commit(ctx))
	assert.Equal(t, 1, driver.commits)
}

func TestScopedTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit leaves outer open", func(t *testing.T) {
		driver := &fakeDriverTx{}
		outer := NewTx(driver, silentLogger())
		ctx := context.WithValue(ctx, txKey, outer)

		_, inner, err := GetTx(ctx, silentLogger(), nil, nil)
		require.NoError(t, err)
		_, err = inner.ExecContext(ctx, "UPDATE 1")
		require.NoError(t, err)
		require.NoError(t, inner.Commit(ctx))
		require.NoError(t, inner.Rollback(ctx))

		assert.True(t, outer.IsOpen())
		assert.Equal(t, 0, driver.commits)
		require.NoError(t, outer.Commit(ctx))
		assert.Equal(t, 1, driver.commits)
	})

	t.Run("rollback dooms outer", func(t *testing.T) {
		driver := &fakeDriverTx{}
		outer := NewTx(driver, silentLogger())
		ctx := context.WithValue(ctx, txKey, outer)

		_, inner, err := GetTx(ctx, silentLogger(), nil, nil)
		require.NoError(t, err)
		require.NoError(t, inner.Rollback(ctx))

		assert.ErrorIs(t, outer.Commit(ctx), ErrTxAborted)
		assert.Equal(t, 0, driver.commits)
	})
}

func TestConn(t *testing.T) {
	ctx := context.Background()
	pool := &DatabaseInstance{}

	assert.Equal(t, Querier(pool), Conn(ctx, pool))

	tx := NewTx(&fakeDriverTx{}, silentLogger())
	txCtx := context.WithValue(ctx, txKey, tx)
	assert.Equal(t, Querier(tx), Conn(txCtx, pool))

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, Querier(pool), Conn(txCtx, pool))
}
