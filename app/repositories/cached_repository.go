package repositories

import (
	"fmt"

	"spacetraveling/app/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedPageRepository keeps recently served pages in memory in front of
// another PageRepository. Writes go through to the backing store.
type CachedPageRepository struct {
	next  PageRepository
	cache *lru.Cache[string, *models.Page]
}

// NewCachedPageRepository wraps next with an LRU of size entries.
func NewCachedPageRepository(next PageRepository, size int) (*CachedPageRepository, error) {
	cache, err := lru.New[string, *models.Page](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}
	return &CachedPageRepository{next: next, cache: cache}, nil
}

func (r *CachedPageRepository) Get(path string) (*models.Page, error) {
	if page, ok := r.cache.Get(path); ok {
		return page, nil
	}
	page, err := r.next.Get(path)
	if err != nil {
		return nil, err
	}
	r.cache.Add(path, page)
	return page, nil
}

func (r *CachedPageRepository) Put(page *models.Page) error {
	if err := r.next.Put(page); err != nil {
		return err
	}
	r.cache.Add(page.Path, page)
	return nil
}

func (r *CachedPageRepository) Delete(path string) error {
	r.cache.Remove(path)
	return r.next.Delete(path)
}

func (r *CachedPageRepository) List() ([]string, error) {
	return r.next.List()
}

func (r *CachedPageRepository) Clear() error {
	r.cache.Purge()
	return r.next.Clear()
}
