//go:build postgres

package storage

import (
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

const defaultPostgresDSN = "postgres://localhost/omicsim?sslmode=disable"

type PostgresStore struct {
	sqlStore
}

func NewPostgresStore(dsn string) *PostgresStore {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	return &PostgresStore{sqlStore{
		dialect: dialect{driver: "pgx", payloadType: "BYTEA", bind: dollarBind},
		dsn:     dsn,
	}}
}

func newPostgresStore(dsn string) (Store, error) {
	return NewPostgresStore(dsn), nil
}
