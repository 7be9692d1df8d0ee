package services

import "errors"

var (
	// ErrLoadInProgress is returned by Pager.LoadMore while an earlier load is running.
	ErrLoadInProgress = errors.New("a page load is already in progress")
	// ErrInvalidDocument is returned when a CMS document lacks required fields.
	ErrInvalidDocument = errors.New("invalid post document")
	// ErrInvalidCursor is returned when a cursor is not a page of the post listing.
	ErrInvalidCursor = errors.New("cursor is not a post listing page")
)
