package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// NewDB opens a postgres connection pool and verifies it with a ping.
func NewDB(host, port, user, password, name string, maxOpenConns, maxIdleConns int, maxIdleTime time.Duration) (*sql.DB, error) {
	return connectDB(PostgresDSN(host, port, user, password, name), maxOpenConns, maxIdleConns, maxIdleTime)
}

func PostgresDSN(host, port, user, password, name string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
}

// connectDB connects to the database and returns the connection
func connectDB(URI string, maxOpenConns int, maxIdleConns int, maxIdleTime time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", URI)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// CloseDB closes the database connection
func CloseDB(db *sql.DB) error {
	return db.Close()
}

// UniqueViolation reports whether err is a postgres unique_violation raised by the named constraint.
func UniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == constraint
	}

	return false
}

// RollbackTx rolls back tx and returns err unchanged so callers can write `return RollbackTx(tx, err)`.
func RollbackTx(tx *sql.Tx, err error) error {
	_ = tx.Rollback()
	return err
}

// CountRows runs SELECT count(*) over from, a FROM clause with its joins and WHERE. List queries read their total from
// a window column, which is missing when the requested page lies past the last row.
func CountRows(ctx context.Context, db *sql.DB, from string, args ...any) (int, error) {
	var total int
	err := db.QueryRowContext(ctx, "SELECT count(*) "+from, args...).Scan(&total)
	return total, err
}
