//go:build sqlite

package storage

import (
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	sqlStore
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{sqlStore{
		dialect: dialect{driver: "sqlite", payloadType: "BLOB", bind: questionBind},
		dsn:     path,
	}}
}

func DefaultStoreKind() string { return "sqlite" }

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}
