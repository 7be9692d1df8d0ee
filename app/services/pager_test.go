package services

import (
	"context"
	"errors"
	"testing"

	"spacetraveling/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaries(uids ...string) []models.PostSummary {
	out := make([]models.PostSummary, len(uids))
	for i, uid := range uids {
		out[i] = models.PostSummary{UID: uid, Data: models.PostData{Title: uid}}
	}
	return out
}

// pagesFetcher serves pages keyed by cursor.
func pagesFetcher(pages map[string]models.Pagination, calls *int) PageFetcher {
	return func(ctx context.Context, cursor string) (models.Pagination, error) {
		*calls++
		page, ok := pages[cursor]
		if !ok {
			return models.Pagination{}, errors.New("unknown cursor")
		}
		return page, nil
	}
}

func uidsOf(posts []models.PostSummary) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.UID
	}
	return out
}

func TestPager(t *testing.T) {
	ctx := context.Background()

	t.Run("appends pages in order", func(t *testing.T) {
		calls := 0
		pager := NewPager(
			models.Pagination{NextPage: "p2", Results: summaries("a")},
			pagesFetcher(map[string]models.Pagination{
				"p2": {NextPage: "p3", Results: summaries("b")},
				"p3": {Results: summaries("c", "d")},
			}, &calls), nil)

		assert.Equal(t, Idle, pager.Snapshot().State)

		snap, err := pager.LoadMore(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, uidsOf(snap.Posts))
		assert.Equal(t, "p3", snap.NextPage)
		assert.Equal(t, 2, snap.Page)
		assert.Equal(t, Idle, snap.State)

		snap, err = pager.LoadMore(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, uidsOf(snap.Posts))
		assert.False(t, snap.HasMore())
		assert.Equal(t, Exhausted, snap.State)
		assert.Equal(t, 2, calls)
	})

	t.Run("exhausted load is a no-op", func(t *testing.T) {
		calls := 0
		pager := NewPager(models.Pagination{Results: summaries("a")}, pagesFetcher(nil, &calls), nil)
		assert.Equal(t, Exhausted, pager.Snapshot().State)

		for i := 0; i < 3; i++ {
			snap, err := pager.LoadMore(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, uidsOf(snap.Posts))
			assert.Equal(t, 1, snap.Page)
		}
		assert.Zero(t, calls)
	})

	t.Run("failure leaves state unchanged and allows retry", func(t *testing.T) {
		fail := true
		pager := NewPager(models.Pagination{NextPage: "p2", Results: summaries("a")},
			func(ctx context.Context, cursor string) (models.Pagination, error) {
				if fail {
					return models.Pagination{}, errors.New("network down")
				}
				return models.Pagination{Results: summaries("b")}, nil
			}, nil)

		snap, err := pager.LoadMore(ctx)
		assert.Error(t, err)
		assert.Equal(t, Failed, snap.State)
		assert.Equal(t, []string{"a"}, uidsOf(snap.Posts))
		assert.Equal(t, "p2", snap.NextPage)
		assert.Equal(t, 1, snap.Page)

		fail = false
		snap, err = pager.LoadMore(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, uidsOf(snap.Posts))
		assert.Equal(t, Exhausted, snap.State)
	})

	t.Run("concurrent load is rejected", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		pager := NewPager(models.Pagination{NextPage: "p2", Results: summaries("a")},
			func(ctx context.Context, cursor string) (models.Pagination, error) {
				close(started)
				<-release
				return models.Pagination{NextPage: "p3", Results: summaries("b")}, nil
			}, nil)

		done := make(chan error)
		go func() {
			_, err := pager.LoadMore(ctx)
			done <- err
		}()
		<-started

		assert.Equal(t, Loading, pager.Snapshot().State)
		_, err := pager.LoadMore(ctx)
		assert.ErrorIs(t, err, ErrLoadInProgress)

		close(release)
		require.NoError(t, <-done)
		assert.Equal(t, []string{"a", "b"}, uidsOf(pager.Snapshot().Posts))
	})

	t.Run("snapshots are copies", func(t *testing.T) {
		first := summaries("a")
		pager := NewPager(models.Pagination{Results: first}, nil, nil)
		first[0].UID = "changed"

		snap := pager.Snapshot()
		snap.Posts[0].UID = "mutated"
		assert.Equal(t, "a", pager.Snapshot().Posts[0].UID)
	})
}

func TestPagerStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "exhausted", Exhausted.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", PagerState(42).String())
}
