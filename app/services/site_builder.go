package services

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"spacetraveling/app/config"
	"spacetraveling/app/models"
	"spacetraveling/app/repositories"
	"spacetraveling/app/richtext"
	"spacetraveling/app/views"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/sha3"
)

// HomePath is the path of the listing page.
const HomePath = "/"

const (
	backgroundTimeout = 30 * time.Second
	missingTTL        = time.Minute
	missingSize       = 1024
	failedTTL         = 30 * time.Second
)

// PostPath returns the site path of the post with uid.
func PostPath(uid string) string {
	return "/post/" + url.PathEscape(uid)
}

// RenderOptions select the content a page is rendered from.
type RenderOptions struct {
	// Ref pins content to a preview; empty means published content.
	Ref     string
	Preview bool
}

// SiteBuilder renders pages and keeps the page store filled. Post pages that
// are not stored yet are generated in the background on first request.
type SiteBuilder struct {
	listing   *ListingService
	posts     *PostService
	pages     repositories.PageRepository
	templates *views.Templates
	title     string
	comments  config.Comments
	loc       *time.Location
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	missing  *expirable.LRU[string, struct{}]
	failed   *expirable.LRU[string, error]
	wg       sync.WaitGroup
}

// NewSiteBuilder creates a new SiteBuilder
func NewSiteBuilder(cfg *config.Config, listing *ListingService, posts *PostService,
	pages repositories.PageRepository, templates *views.Templates, logger *slog.Logger) *SiteBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteBuilder{
		listing:   listing,
		posts:     posts,
		pages:     pages,
		templates: templates,
		title:     cfg.Site.Title,
		comments:  cfg.Comments,
		loc:       cfg.Location(),
		logger:    logger,
		inflight:  make(map[string]struct{}),
		missing:   expirable.NewLRU[string, struct{}](missingSize, nil, missingTTL),
		failed:    expirable.NewLRU[string, error](missingSize, nil, failedTTL),
	}
}

// Paths lists the path of every published post.
func (b *SiteBuilder) Paths(ctx context.Context) ([]string, error) {
	uids, err := b.listing.AllUIDs(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(uids))
	for i, uid := range uids {
		paths[i] = PostPath(uid)
	}
	return paths, nil
}

// RenderHome renders the listing with n pages loaded.
func (b *SiteBuilder) RenderHome(ctx context.Context, n int, opts RenderOptions) ([]byte, error) {
	if n < 1 {
		n = 1
	}
	snap, err := b.listing.Page(ctx, opts.Ref, n)
	if err != nil {
		return nil, err
	}

	data := views.HomePage{
		Site:      b.site(opts.Preview),
		PageTitle: "Home",
		Posts:     snap.Posts,
		NextPage:  snap.NextPage,
	}
	if snap.HasMore() {
		data.MoreHref = "/?page=" + strconv.Itoa(snap.Page+1)
	}
	return b.render(views.HomeTemplate, data)
}

// RenderPost renders the detail page of uid.
func (b *SiteBuilder) RenderPost(ctx context.Context, uid string, opts RenderOptions) ([]byte, error) {
	detail, err := b.posts.Get(ctx, uid, opts.Ref)
	if err != nil {
		return nil, err
	}
	return b.render(views.PostTemplate, b.postPage(detail, opts.Preview))
}

// RenderLoading renders the placeholder served while a page is generated.
func (b *SiteBuilder) RenderLoading(preview bool) ([]byte, error) {
	site := b.site(preview)
	site.Refresh = true
	return b.render(views.LoadingTemplate, views.LoadingPage{
		Site:      site,
		PageTitle: "Carregando...",
	})
}

// BuildHome renders the first listing page into the store.
func (b *SiteBuilder) BuildHome(ctx context.Context) (*models.Page, error) {
	body, err := b.RenderHome(ctx, 1, RenderOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", HomePath, err)
	}
	return b.store(HomePath, body)
}

// BuildPost renders the post page of uid into the store.
func (b *SiteBuilder) BuildPost(ctx context.Context, uid string) (*models.Page, error) {
	path := PostPath(uid)
	body, err := b.RenderPost(ctx, uid, RenderOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", path, err)
	}
	return b.store(path, body)
}

// Build renders the listing and every post into the store. Posts whose
// documents cannot be shown are skipped; any other failure stops the build.
func (b *SiteBuilder) Build(ctx context.Context) ([]string, error) {
	uids, err := b.listing.AllUIDs(ctx)
	if err != nil {
		return nil, err
	}

	built := make([]string, 0, len(uids)+1)
	if _, err := b.BuildHome(ctx); err != nil {
		return built, err
	}
	built = append(built, HomePath)

	for _, uid := range uids {
		page, err := b.BuildPost(ctx, uid)
		if errors.Is(err, ErrInvalidDocument) {
			b.logger.Warn("skipping post", "uid", uid, "error", err)
			continue
		}
		if err != nil {
			return built, err
		}
		built = append(built, page.Path)
		b.logger.Info("page built", "path", page.Path, "etag", page.ETag)
	}
	return built, nil
}

// EnsurePost starts generating the page of uid in the background unless a
// generation for it is already running. It reports whether one was started.
// Failed generations are remembered for a short while, see Failed.
func (b *SiteBuilder) EnsurePost(ctx context.Context, uid string) bool {
	path := PostPath(uid)

	b.mu.Lock()
	if _, running := b.inflight[path]; running {
		b.mu.Unlock()
		return false
	}
	b.inflight[path] = struct{}{}
	b.wg.Add(1)
	b.mu.Unlock()

	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
	go func() {
		defer b.wg.Done()
		defer cancel()
		defer func() {
			b.mu.Lock()
			delete(b.inflight, path)
			b.mu.Unlock()
		}()

		if _, err := b.BuildPost(bgCtx, uid); err != nil {
			if IsNotFound(err) {
				b.missing.Add(path, struct{}{})
				b.logger.Info("post not found", "path", path)
				return
			}
			b.failed.Add(path, err)
			b.logger.Error("background build failed", "path", path, "error", err)
			return
		}
		b.missing.Remove(path)
		b.failed.Remove(path)
		b.logger.Info("page generated", "path", path)
	}()
	return true
}

// Missing reports whether a recent generation of path found no content.
func (b *SiteBuilder) Missing(path string) bool {
	return b.missing.Contains(path)
}

// Failed reports whether a recent generation of path failed for a reason
// other than missing content.
func (b *SiteBuilder) Failed(path string) bool {
	return b.failed.Contains(path)
}

// Wait blocks until background generations finish.
func (b *SiteBuilder) Wait() {
	b.wg.Wait()
}

func (b *SiteBuilder) site(preview bool) views.Site {
	return views.Site{Title: b.title, Preview: preview, Comments: b.comments}
}

func (b *SiteBuilder) postPage(detail *PostDetail, preview bool) views.PostPage {
	post := detail.Post

	edited := post.LastPublicationDate
	if edited == nil {
		edited = post.FirstPublicationDate
	}

	sections := make([]views.Section, len(post.Data.Content))
	for i, s := range post.Data.Content {
		sections[i] = views.Section{
			Heading: s.Heading,
			Body:    richtext.AsHTML(s.Body, richtext.DefaultLinkResolver),
		}
	}

	data := views.PostPage{
		Site:            b.site(preview),
		PageTitle:       post.Data.Title,
		Post:            post,
		FormattedDate:   models.FormatDate(post.FirstPublicationDate, b.loc),
		ReadingTime:     post.ReadingTime(),
		EditedDate:      models.FormatDate(edited, b.loc),
		EditedTime:      models.FormatClock(edited, b.loc),
		EditInformation: post.LastPublicationDate == nil,
		Sections:        sections,
	}
	if len(detail.Navigation.PrevPost) > 0 {
		data.Prev = &detail.Navigation.PrevPost[0]
	}
	if len(detail.Navigation.NextPost) > 0 {
		data.Next = &detail.Navigation.NextPost[0]
	}
	return data
}

func (b *SiteBuilder) render(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := b.templates.Render(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *SiteBuilder) store(path string, body []byte) (*models.Page, error) {
	page := NewPage(path, body)
	if err := b.pages.Put(page); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", path, err)
	}
	return page, nil
}

// NewPage wraps a rendered body with its content hash.
func NewPage(path string, body []byte) *models.Page {
	return &models.Page{
		Path:        path,
		Body:        body,
		ETag:        ETag(body),
		GeneratedAt: time.Now().UTC(),
	}
}

// ETag is a strong entity tag over body.
func ETag(body []byte) string {
	sum := sha3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
