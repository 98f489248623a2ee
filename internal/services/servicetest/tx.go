// Package servicetest provides in-memory stand-ins for the persistence layer used by service tests.
package servicetest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/saikilaru/TAMcust/pkg/database"
)

var errNoSQL = errors.New("in-memory transaction does not execute SQL")

// Snapshotter is implemented by stores that can be restored when a unit of work rolls back.
type Snapshotter interface {
	Snapshot() (restore func())
}

type txKey struct{}

// TxManager is an in-memory database.TxManager. Every enlisted store is snapshotted when a unit of
// work begins and restored when it rolls back.
type TxManager struct {
	mu       sync.Mutex
	stores   []Snapshotter
	BeginErr error

	Begun      int
	Committed  int
	RolledBack int
}

func NewTxManager(stores ...Snapshotter) *TxManager {
	return &TxManager{stores: stores}
}

func (m *TxManager) Enlist(stores ...Snapshotter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores = append(m.stores, stores...)
}

func (m *TxManager) GetTx(ctx context.Context, _ *sql.TxOptions) (context.Context, database.Tx, error) {
	if outer, ok := ctx.Value(txKey{}).(*Tx); ok && outer.IsOpen() {
		return ctx, &scope{parent: outer, state: database.TxOpen}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BeginErr != nil {
		return ctx, nil, m.BeginErr
	}

	restores := make([]func(), len(m.stores))
	for i, store := range m.stores {
		restores[i] = store.Snapshot()
	}
	m.Begun++

	tx := &Tx{manager: m, restores: restores, state: database.TxOpen}
	return context.WithValue(ctx, txKey{}, tx), tx, nil
}

func (m *TxManager) Counts() (begun, committed, rolledBack int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Begun, m.Committed, m.RolledBack
}

// InTx reports whether ctx carries an open in-memory unit of work.
func InTx(ctx context.Context) bool {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return ok && tx.IsOpen()
}

type Tx struct {
	manager  *TxManager
	restores []func()
	mu       sync.Mutex
	state    database.TxState
	doomed   bool
}

func (t *Tx) ExecContext(context.Context, string, ...any) (sql.Result, error) { return nil, errNoSQL }
func (t *Tx) GetContext(context.Context, any, string, ...any) error          { return errNoSQL }
func (t *Tx) SelectContext(context.Context, any, string, ...any) error       { return errNoSQL }

func (t *Tx) State() database.TxState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tx) IsOpen() bool {
	return t.State() == database.TxOpen
}

func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.state != database.TxOpen {
		t.mu.Unlock()
		return database.ErrTxDone
	}
	doomed := t.doomed
	t.mu.Unlock()

	if doomed {
		_ = t.Rollback(ctx)
		return fmt.Errorf("%w: nested scope rolled back", database.ErrTxAborted)
	}

	t.mu.Lock()
	t.state = database.TxCommitted
	t.mu.Unlock()

	t.manager.mu.Lock()
	t.manager.Committed++
	t.manager.mu.Unlock()
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	t.mu.Lock()
	if t.state != database.TxOpen {
		t.mu.Unlock()
		return nil
	}
	t.state = database.TxRolledBack
	t.mu.Unlock()

	for i := len(t.restores) - 1; i >= 0; i-- {
		t.restores[i]()
	}

	t.manager.mu.Lock()
	t.manager.RolledBack++
	t.manager.mu.Unlock()
	return nil
}

type scope struct {
	parent *Tx
	state  database.TxState
}

func (s *scope) ExecContext(context.Context, string, ...any) (sql.Result, error) { return nil, errNoSQL }
func (s *scope) GetContext(context.Context, any, string, ...any) error          { return errNoSQL }
func (s *scope) SelectContext(context.Context, any, string, ...any) error       { return errNoSQL }
func (s *scope) State() database.TxState                                        { return s.state }
func (s *scope) IsOpen() bool                                                   { return s.state == database.TxOpen && s.parent.IsOpen() }

func (s *scope) Commit(context.Context) error {
	if !s.IsOpen() {
		return database.ErrTxDone
	}
	s.state = database.TxCommitted
	return nil
}

func (s *scope) Rollback(context.Context) error {
	if s.state != database.TxOpen {
		return nil
	}
	s.state = database.TxRolledBack
	s.parent.mu.Lock()
	s.parent.doomed = true
	s.parent.mu.Unlock()
	return nil
}

// SilentLogger discards every log line.
func SilentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}
