package services

import (
	"context"
	"log/slog"
	"sync"

	"spacetraveling/app/models"
)

// PagerState is the load state of a Pager.
type PagerState int

const (
	// Idle means another page can be loaded.
	Idle PagerState = iota
	// Loading means a fetch is running.
	Loading
	// Exhausted means the last page has been loaded.
	Exhausted
	// Failed means the last fetch failed. LoadMore retries the same cursor.
	Failed
)

func (s PagerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// PageFetcher loads the page behind a cursor.
type PageFetcher func(ctx context.Context, cursor string) (models.Pagination, error)

// Snapshot is a copy of a pager's state.
type Snapshot struct {
	Posts    []models.PostSummary `json:"results"`
	NextPage string               `json:"next_page"`
	Page     int                  `json:"page"`
	State    PagerState           `json:"-"`
}

// HasMore reports whether the listing offers "load more".
func (s Snapshot) HasMore() bool {
	return s.NextPage != ""
}

// Pager accumulates listing pages behind a "load more" action. Posts are only
// ever appended, in the order pages arrive.
type Pager struct {
	mu       sync.Mutex
	posts    []models.PostSummary
	nextPage string
	page     int
	state    PagerState
	fetch    PageFetcher
	logger   *slog.Logger
}

// NewPager starts at the first page. A first page without a cursor starts
// exhausted.
func NewPager(first models.Pagination, fetch PageFetcher, logger *slog.Logger) *Pager {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pager{
		posts:    append([]models.PostSummary(nil), first.Results...),
		nextPage: first.NextPage,
		page:     1,
		state:    Idle,
		fetch:    fetch,
		logger:   logger,
	}
	if first.NextPage == "" {
		p.state = Exhausted
	}
	return p
}

// LoadMore fetches the next page and appends its posts. When exhausted it
// does nothing. A failed fetch leaves posts, cursor and page untouched.
func (p *Pager) LoadMore(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	switch p.state {
	case Exhausted:
		p.logger.Debug("no more posts", "page", p.page)
		snap := p.snapshotLocked()
		p.mu.Unlock()
		return snap, nil
	case Loading:
		p.mu.Unlock()
		return Snapshot{}, ErrLoadInProgress
	}
	cursor := p.nextPage
	p.state = Loading
	p.mu.Unlock()

	next, err := p.fetch(ctx, cursor)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = Failed
		p.logger.Warn("failed to load more posts", "page", p.page+1, "error", err)
		return p.snapshotLocked(), err
	}

	p.posts = append(p.posts, next.Results...)
	p.nextPage = next.NextPage
	p.page++
	if p.nextPage == "" {
		p.state = Exhausted
	} else {
		p.state = Idle
	}
	return p.snapshotLocked(), nil
}

// Snapshot returns a copy of the current state.
func (p *Pager) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pager) snapshotLocked() Snapshot {
	return Snapshot{
		Posts:    append([]models.PostSummary(nil), p.posts...),
		NextPage: p.nextPage,
		Page:     p.page,
		State:    p.state,
	}
}
