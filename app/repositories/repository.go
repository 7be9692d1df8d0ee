package repositories

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Open opens the badger store at path, creating the directory if needed.
// An empty path opens an in-memory store.
func Open(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open page store: %w", err)
	}
	return db, nil
}
