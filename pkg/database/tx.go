package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	// txKey is the context key for storing an open transaction.
	txKey contextKey = "tx"
)

// Querier is the subset of pgx operations shared by connections and
// transactions. Repositories execute through it so the same methods work
// inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetTx retrieves an open transaction from context. Returns nil and false if
// no transaction is in progress.
func GetTx(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	return tx, ok
}

// setTx stores an open transaction in context.
func setTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// QuerierFromContext resolves the executor for the current context: the open
// transaction if one is in progress, otherwise the tenant-scoped connection.
func QuerierFromContext(ctx context.Context) (Querier, error) {
	if tx, ok := GetTx(ctx); ok {
		return tx, nil
	}
	scope, ok := GetTenantScope(ctx)
	if !ok || scope.Conn == nil {
		return nil, fmt.Errorf("no tenant scope in context")
	}
	return scope.Conn, nil
}

// RunInTx executes fn inside a transaction on the tenant-scoped connection.
// The transaction is stored in the context passed to fn so repository calls
// made within fn share it. The transaction commits if fn returns nil and
// rolls back otherwise. Nested calls reuse the outer transaction.
func RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := GetTx(ctx); ok {
		return fn(ctx)
	}

	scope, ok := GetTenantScope(ctx)
	if !ok || scope.Conn == nil {
		return fmt.Errorf("no tenant scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(setTx(ctx, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
