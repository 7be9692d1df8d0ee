package models

import "time"

// Page is a rendered route kept in the page store.
type Page struct {
	Path        string    `json:"path"`
	Body        []byte    `json:"body"`
	ETag        string    `json:"etag"`
	GeneratedAt time.Time `json:"generated_at"`
}
