package dbtx

import (
	"context"
	"database/sql"
)

// Runner scopes a unit of work. SQL stores run fn inside one transaction;
// document stores run it directly with a nil *sql.Tx.
type Runner interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type sqlRunner struct {
	db *sql.DB
}

func NewSQLRunner(db *sql.DB) Runner {
	return &sqlRunner{db: db}
}

func (r *sqlRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

type directRunner struct{}

// Direct returns a Runner that calls fn without a transaction.
func Direct() Runner {
	return directRunner{}
}

func (directRunner) WithinTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}
