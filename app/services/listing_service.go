package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spacetraveling/app/config"
	"spacetraveling/app/models"
	"spacetraveling/app/prismic"
)

// ListingService loads the home page listing.
type ListingService struct {
	client   ContentClient
	pageSize int
	loc      *time.Location
	logger   *slog.Logger
}

// NewListingService creates a new ListingService
func NewListingService(client ContentClient, cfg *config.Config, logger *slog.Logger) *ListingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingService{
		client:   client,
		pageSize: cfg.Site.PageSize,
		loc:      cfg.Location(),
		logger:   logger,
	}
}

// FirstPage fetches the newest posts. An empty ref reads published content.
func (s *ListingService) FirstPage(ctx context.Context, ref string) (models.Pagination, error) {
	resp, err := s.client.Query(ctx, listingPredicates, prismic.QueryOptions{
		PageSize:  s.pageSize,
		Orderings: listingOrderings,
		Ref:       ref,
	})
	if err != nil {
		return models.Pagination{}, fmt.Errorf("failed to fetch posts: %w", err)
	}
	return s.pagination(resp), nil
}

// NextPage follows a cursor returned with an earlier page. The cursor may only
// page through the post listing; its content is always read under ref, which
// is empty for published content.
func (s *ListingService) NextPage(ctx context.Context, cursor, ref string) (models.Pagination, error) {
	next, err := listingCursor(cursor, ref)
	if err != nil {
		return models.Pagination{}, err
	}
	resp, err := s.client.FetchPage(ctx, next)
	if err != nil {
		return models.Pagination{}, fmt.Errorf("failed to fetch more posts: %w", err)
	}
	return s.pagination(resp), nil
}

// NewPager starts a pager at first, loading further pages under ref.
func (s *ListingService) NewPager(first models.Pagination, ref string) *Pager {
	return NewPager(first, func(ctx context.Context, cursor string) (models.Pagination, error) {
		return s.NextPage(ctx, cursor, ref)
	}, s.logger)
}

// Page returns the listing with the first n pages loaded, as if "load more"
// had been used n-1 times. Loading stops early when the posts run out.
func (s *ListingService) Page(ctx context.Context, ref string, n int) (Snapshot, error) {
	first, err := s.FirstPage(ctx, ref)
	if err != nil {
		return Snapshot{}, err
	}
	pager := s.NewPager(first, ref)
	for i := 1; i < n; i++ {
		snap, err := pager.LoadMore(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		if snap.State == Exhausted {
			break
		}
	}
	return pager.Snapshot(), nil
}

// AllUIDs returns the UID of every published post, following every page.
func (s *ListingService) AllUIDs(ctx context.Context) ([]string, error) {
	resp, err := s.client.Query(ctx, listingPredicates, prismic.QueryOptions{
		PageSize:  maxPageSize,
		Orderings: listingOrderings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	var uids []string
	for {
		for _, doc := range resp.Results {
			if doc.UID != "" {
				uids = append(uids, doc.UID)
			}
		}
		if resp.NextPage == "" {
			return uids, nil
		}
		resp, err = s.client.FetchPage(ctx, resp.NextPage)
		if err != nil {
			return nil, fmt.Errorf("failed to list posts: %w", err)
		}
	}
}

func (s *ListingService) pagination(resp *prismic.Response) models.Pagination {
	return models.Pagination{
		NextPage: publicCursor(resp.NextPage),
		Results:  models.FormatSummaries(toSummaries(resp.Results, s.logger), s.loc),
	}
}

// IsNotFound reports whether err means the requested content does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, prismic.ErrNotFound)
}
