package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"spacetraveling/app/repositories"
	"spacetraveling/app/services"

	"github.com/gorilla/mux"
)

// maxListingPage bounds ?page=N, which costs N content API calls.
const maxListingPage = 50

// PageController serves the listing and post pages
type PageController struct {
	builder *services.SiteBuilder
	pages   repositories.PageRepository
	preview *PreviewSession
	logger  *slog.Logger
}

// NewPageController creates a new PageController
func NewPageController(builder *services.SiteBuilder, pages repositories.PageRepository,
	preview *PreviewSession, logger *slog.Logger) *PageController {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageController{
		builder: builder,
		pages:   pages,
		preview: preview,
		logger:  logger,
	}
}

// Home handles the post listing. ?page=N renders the first N pages, which is
// what "load more" links to without JavaScript.
func (pc *PageController) Home(w http.ResponseWriter, r *http.Request) {
	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if page > maxListingPage {
		page = maxListingPage
	}

	ref := pc.preview.Ref(r)
	if ref != "" || page > 1 {
		body, err := pc.builder.RenderHome(r.Context(), page, services.RenderOptions{Ref: ref, Preview: ref != ""})
		if err != nil {
			pc.logger.Error("failed to render listing", "page", page, "error", err)
			sendError(w, r, "Failed to fetch posts", http.StatusInternalServerError)
			return
		}
		sendLive(w, body)
		return
	}

	stored, err := pc.pages.Get(services.HomePath)
	if errors.Is(err, repositories.ErrNotFound) {
		stored, err = pc.builder.BuildHome(r.Context())
	}
	if err != nil {
		pc.logger.Error("failed to load listing", "error", err)
		sendError(w, r, "Failed to fetch posts", http.StatusInternalServerError)
		return
	}
	sendPage(w, r, stored)
}

// Post handles a single post. Posts missing from the page store get a
// loading placeholder while the page is generated. A generation that failed
// recently answers 502 until it may be retried.
func (pc *PageController) Post(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	if slug == "" {
		sendError(w, r, "Post not found", http.StatusNotFound)
		return
	}

	if ref := pc.preview.Ref(r); ref != "" {
		body, err := pc.builder.RenderPost(r.Context(), slug, services.RenderOptions{Ref: ref, Preview: true})
		if services.IsNotFound(err) {
			sendError(w, r, "Post not found", http.StatusNotFound)
			return
		}
		if err != nil {
			pc.logger.Error("failed to render preview", "slug", slug, "error", err)
			sendError(w, r, "Failed to fetch post", http.StatusInternalServerError)
			return
		}
		sendLive(w, body)
		return
	}

	path := services.PostPath(slug)
	stored, err := pc.pages.Get(path)
	switch {
	case err == nil:
		sendPage(w, r, stored)
	case errors.Is(err, repositories.ErrNotFound):
		if pc.builder.Missing(path) {
			sendError(w, r, "Post not found", http.StatusNotFound)
			return
		}
		if pc.builder.Failed(path) {
			sendError(w, r, "Failed to fetch post", http.StatusBadGateway)
			return
		}
		if pc.builder.EnsurePost(r.Context(), slug) {
			pc.logger.Info("generating page", "path", path)
		}
		body, err := pc.builder.RenderLoading(false)
		if err != nil {
			sendError(w, r, "Template error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Retry-After", "1")
		w.Header().Set("Cache-Control", "no-store")
		sendHTML(w, body, http.StatusOK)
	default:
		pc.logger.Error("failed to load page", "path", path, "error", err)
		sendError(w, r, "Failed to load post", http.StatusInternalServerError)
	}
}
