package sqlite

import (
	"context"
	"database/sql"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store"
)

// txStore is a Store scoped to one *sql.Tx. Every repo it hands out writes
// through the transaction, so nothing is visible until Commit.
type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // nothing to close; caller will commit/rollback and outer DB stays open

// Ping is a no-op for transactions. The connection is already held by the
// transaction, so there is nothing to check.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return sql.ErrTxDone
}

func (t *txStore) Applicants() store.Applicants     { return &applicantsRepo{db: t.tx} }
func (t *txStore) KeySlots() store.KeySlots         { return &keySlotsRepo{db: t.tx} }
func (t *txStore) BatchCounter() store.BatchCounter { return &batchCounterRepo{db: t.tx} }
func (t *txStore) Reports() store.Reports           { return &reportsRepo{db: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // no-op; migrations are applied before any tx is started
