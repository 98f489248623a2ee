package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type TxContextKey string

const txKey = TxContextKey("tx-context-key")

var (
	// ErrTxDone is returned for any statement or commit issued after the unit of work ended.
	ErrTxDone = errors.New("transaction has already been committed or rolled back")
	// ErrTxAborted is returned by Commit when a statement inside the unit of work failed.
	ErrTxAborted = errors.New("transaction aborted")

	errScopeRolledBack = errors.New("nested scope rolled back")
)

type TxState int

const (
	TxOpen TxState = iota
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxOpen:
		return "open"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled-back"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

type Tx interface {
	Querier
	State() TxState
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// driverTx is the subset of *sqlx.Tx the coordinator drives.
type driverTx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Commit() error
	Rollback() error
}

type beginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Transaction is a unit of work with an explicit open/committed/rolled-back lifecycle.
type Transaction struct {
	tx      driverTx
	logger  ectologger.Logger
	mu      sync.Mutex
	state   TxState
	failure error
}

func NewTx(tx driverTx, logger ectologger.Logger) *Transaction {
	return &Transaction{
		tx:     tx,
		logger: logger,
		state:  TxOpen,
	}
}

// GetTx joins the open transaction carried by ctx, or begins a new one and stores it on the
// returned context. A joined transaction is returned as a nested scope: its Commit leaves the
// outer transaction open, its Rollback dooms the outer transaction.
func GetTx(ctx context.Context, logger ectologger.Logger, db beginner, opts *sql.TxOptions) (context.Context, Tx, error) {
	if outer, ok := ctx.Value(txKey).(*Transaction); ok && outer.IsOpen() {
		return ctx, &scopedTx{parent: outer, state: TxOpen}, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return ctx, nil, fmt.Errorf("error while beginning transaction: %w", err)
	}

	newTx := NewTx(tx, logger)
	return context.WithValue(ctx, txKey, newTx), newTx, nil
}

// TxFromContext returns the unit of work stored on ctx by GetTx.
func TxFromContext(ctx context.Context) (Tx, bool) {
	tx, ok := ctx.Value(txKey).(*Transaction)
	if !ok || tx == nil {
		return nil, false
	}
	return tx, true
}

// WithTx runs fn inside a unit of work, committing when fn succeeds and rolling back otherwise.
func WithTx(ctx context.Context, m TxManager, fn func(ctx context.Context) error) error {
	ctx, tx, err := m.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (t *Transaction) State() TxState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) IsOpen() bool {
	return t.State() == TxOpen
}

func (t *Transaction) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	t.recordFailure(err)
	return res, err
}

func (t *Transaction) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	if err := t.ensureOpen(); err != nil {
		return err
	}
	err := t.tx.GetContext(ctx, dest, query, args...)
	if !errors.Is(err, sql.ErrNoRows) {
		t.recordFailure(err)
	}
	return err
}

func (t *Transaction) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	if err := t.ensureOpen(); err != nil {
		return err
	}
	err := t.tx.SelectContext(ctx, dest, query, args...)
	t.recordFailure(err)
	return err
}

func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TxOpen {
		return ErrTxDone
	}

	if t.failure != nil {
		if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.logger.WithContext(ctx).WithError(err).Warn("error while rolling back failed transaction")
		}
		t.state = TxRolledBack
		return fmt.Errorf("%w: %v", ErrTxAborted, t.failure)
	}

	if err := t.tx.Commit(); err != nil {
		t.state = TxRolledBack
		t.logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return fmt.Errorf("error while committing transaction: %w", err)
	}

	t.state = TxCommitted
	return nil
}

// Rollback discards the unit of work. Calling it after Commit or a previous Rollback is a no-op.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TxOpen {
		return nil
	}

	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		t.logger.WithContext(ctx).WithError(err).Warn("error while rolling back transaction")
	}
	t.state = TxRolledBack
	return nil
}

func (t *Transaction) ensureOpen() error {
	if t.State() != TxOpen {
		return ErrTxDone
	}
	return nil
}

func (t *Transaction) recordFailure(err error) {
	if err == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failure == nil {
		t.failure = err
	}
}

type scopedTx struct {
	parent *Transaction
	mu     sync.Mutex
	state  TxState
}

func (s *scopedTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.State() != TxOpen {
		return nil, ErrTxDone
	}
	return s.parent.ExecContext(ctx, query, args...)
}

func (s *scopedTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	if s.State() != TxOpen {
		return ErrTxDone
	}
	return s.parent.GetContext(ctx, dest, query, args...)
}

func (s *scopedTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	if s.State() != TxOpen {
		return ErrTxDone
	}
	return s.parent.SelectContext(ctx, dest, query, args...)
}

func (s *scopedTx) State() TxState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *scopedTx) IsOpen() bool {
	return s.State() == TxOpen && s.parent.IsOpen()
}

func (s *scopedTx) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != TxOpen || !s.parent.IsOpen() {
		return ErrTxDone
	}
	s.state = TxCommitted
	return nil
}

func (s *scopedTx) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != TxOpen {
		return nil
	}
	s.state = TxRolledBack
	s.parent.recordFailure(errScopeRolledBack)
	return nil
}
