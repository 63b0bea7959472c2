//go:build !postgres

package storage

import "fmt"

func newPostgresStore(_ string) (Store, error) {
	return nil, fmt.Errorf("postgres backend unavailable in this build; rebuild with -tags postgres")
}
