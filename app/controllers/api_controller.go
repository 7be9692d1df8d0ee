package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"spacetraveling/app/prismic"
	"spacetraveling/app/services"
)

// APIController serves the JSON endpoints used by the listing script.
type APIController struct {
	listing *services.ListingService
	preview *PreviewSession
	logger  *slog.Logger
}

// NewAPIController creates a new APIController
func NewAPIController(listing *services.ListingService, preview *PreviewSession, logger *slog.Logger) *APIController {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIController{listing: listing, preview: preview, logger: logger}
}

// MorePosts follows a next_page cursor and returns the page with its dates
// formatted. Content is read under the caller's preview ref, never the one
// carried by the cursor.
func (ac *APIController) MorePosts(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	if cursor == "" {
		sendError(w, r, "cursor is required", http.StatusBadRequest)
		return
	}

	page, err := ac.listing.NextPage(r.Context(), cursor, ac.preview.Ref(r))
	if errors.Is(err, prismic.ErrForeignCursor) || errors.Is(err, services.ErrInvalidCursor) {
		sendError(w, r, "Invalid cursor", http.StatusBadRequest)
		return
	}
	if err != nil {
		ac.logger.Error("failed to load more posts", "error", err)
		sendError(w, r, "Failed to fetch posts", http.StatusBadGateway)
		return
	}
	sendJSON(w, page)
}

// Health reports that the process is serving.
func (ac *APIController) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, map[string]string{"status": "ok"})
}
