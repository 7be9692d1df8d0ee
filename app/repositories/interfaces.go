package repositories

import "spacetraveling/app/models"

// PageRepository stores rendered pages keyed by route path.
type PageRepository interface {
	Get(path string) (*models.Page, error)
	Put(page *models.Page) error
	Delete(path string) error
	List() ([]string, error)
	Clear() error
}
