package store

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey int

const (
	transactionKey contextKey = iota
)

var errTxNotStarted = errors.New("transaction not started")

// Tx is a gorm transaction carried in a context. Stores pick it up through FromContext,
// so the transcript and the analysis of a run are written together or not at all.
type Tx struct {
	id  int64
	tx  *gorm.DB
	log *zap.SugaredLogger
}

// Commit ends the transaction carried by ctx. A context without one is returned untouched.
func Commit(ctx context.Context) (context.Context, error) {
	return endTransaction(ctx, (*Tx).Commit)
}

// Rollback aborts the transaction carried by ctx. A context without one is returned untouched.
func Rollback(ctx context.Context) (context.Context, error) {
	return endTransaction(ctx, (*Tx).Rollback)
}

func endTransaction(ctx context.Context, end func(*Tx) error) (context.Context, error) {
	tx, ok := ctx.Value(transactionKey).(*Tx)
	if !ok || tx == nil {
		return ctx, nil
	}
	return context.WithValue(ctx, transactionKey, nil), end(tx)
}

// FromContext returns the open transaction of ctx or nil.
func FromContext(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(transactionKey).(*Tx)
	if !ok || tx == nil || tx.tx == nil {
		return nil
	}
	return tx.tx
}

func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	// nested calls join the transaction already open
	if tx, found := ctx.Value(transactionKey).(*Tx); found && tx != nil {
		return ctx, nil
	}

	tx := db.Session(&gorm.Session{Context: ctx}).Begin()
	if tx.Error != nil {
		return ctx, errors.Wrap(tx.Error, "beginning transaction")
	}

	var txid struct{ ID int64 }
	if db.Dialector.Name() == "postgres" {
		// only used to correlate logs; postgres recycles these ids
		tx.Raw("select txid_current() as id").Scan(&txid)
	}

	return context.WithValue(ctx, transactionKey, &Tx{
		id:  txid.ID,
		tx:  tx,
		log: zap.S().Named("store"),
	}), nil
}

func (t *Tx) Commit() error {
	if t.tx == nil {
		return errTxNotStarted
	}

	if err := t.tx.Commit().Error; err != nil {
		t.tx = nil
		t.log.Errorw("failed to commit transaction", "tx_id", t.id, "error", err)
		return errors.Wrap(err, "committing transaction")
	}
	t.tx = nil
	t.log.Debugw("transaction committed", "tx_id", t.id)
	return nil
}

func (t *Tx) Rollback() error {
	if t.tx == nil {
		return errTxNotStarted
	}

	if err := t.tx.Rollback().Error; err != nil {
		t.tx = nil
		t.log.Errorw("failed to rollback transaction", "tx_id", t.id, "error", err)
		return errors.Wrap(err, "rolling back transaction")
	}
	t.tx = nil
	t.log.Debugw("transaction rolled back", "tx_id", t.id)
	return nil
}
