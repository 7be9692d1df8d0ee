package repositories

import (
	"errors"
	"fmt"
	"strings"

	"spacetraveling/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPageRepository implements PageRepository using BadgerDB
type BadgerPageRepository struct {
	db *badger.DB
}

// NewBadgerPageRepository creates a new BadgerPageRepository
func NewBadgerPageRepository(db *badger.DB) *BadgerPageRepository {
	return &BadgerPageRepository{db: db}
}

// Get retrieves a page by path
func (r *BadgerPageRepository) Get(path string) (*models.Page, error) {
	var page models.Page

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pageKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return unmarshalEntity(val, &page)
		})
	})

	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Put stores a page, replacing any earlier version of the same path
func (r *BadgerPageRepository) Put(page *models.Page) error {
	if page == nil || page.Path == "" {
		return fmt.Errorf("page path is required")
	}
	data, err := marshalEntity(page)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pageKey(page.Path), data)
	})
}

// Delete removes a page by path
func (r *BadgerPageRepository) Delete(path string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := pageKey(path)

		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return txn.Delete(key)
	})
}

// List returns every stored path in key order
func (r *BadgerPageRepository) List() ([]string, error) {
	var paths []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(PageKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			paths = append(paths, strings.TrimPrefix(string(it.Item().Key()), PageKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// Clear drops every stored page
func (r *BadgerPageRepository) Clear() error {
	return r.db.DropPrefix([]byte(PageKeyPrefix))
}
