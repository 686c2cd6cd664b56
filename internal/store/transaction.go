package store

import (
	"context"
	"errors"
	"math/rand"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey int

const (
	transactionKey contextKey = iota
)

type Tx struct {
	txId int64
	tx   *gorm.DB
}

func Commit(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(transactionKey).(*Tx)
	if !ok {
		return ctx, nil
	}

	newCtx := context.WithValue(ctx, transactionKey, nil)
	return newCtx, tx.Commit()
}

func Rollback(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(transactionKey).(*Tx)
	if !ok {
		return ctx, nil
	}

	newCtx := context.WithValue(ctx, transactionKey, nil)
	return newCtx, tx.Rollback()
}

func FromContext(ctx context.Context) *gorm.DB {
	if tx, found := ctx.Value(transactionKey).(*Tx); found && tx != nil {
		if dbTx, err := tx.Db(); err == nil {
			return dbTx
		}
	}
	return nil
}

func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	// reuse an already opened transaction if any
	if _, found := ctx.Value(transactionKey).(*Tx); found {
		return ctx, nil
	}

	conn := db.Session(&gorm.Session{Context: ctx})

	tx, err := newTransaction(conn)
	if err != nil {
		return ctx, err
	}

	return context.WithValue(ctx, transactionKey, tx), nil
}

func newTransaction(db *gorm.DB) (*Tx, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	txId := rand.Int63()
	zap.S().Named("store").Debugf("transaction %d started", txId)

	return &Tx{txId: txId, tx: tx}, nil
}

func (t *Tx) Db() (*gorm.DB, error) {
	if t.tx == nil {
		return nil, errors.New("transaction already closed")
	}
	return t.tx, nil
}

func (t *Tx) Commit() error {
	if t.tx == nil {
		return errors.New("transaction already closed")
	}

	err := t.tx.Commit().Error
	t.tx = nil
	zap.S().Named("store").Debugf("transaction %d committed", t.txId)
	return err
}

func (t *Tx) Rollback() error {
	if t.tx == nil {
		return errors.New("transaction already closed")
	}

	err := t.tx.Rollback().Error
	t.tx = nil
	zap.S().Named("store").Debugf("transaction %d rolled back", t.txId)
	return err
}
