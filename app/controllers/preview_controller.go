package controllers

import (
	"log/slog"
	"net/http"

	"spacetraveling/app/services"
)

// PreviewController enters and leaves editor preview mode.
type PreviewController struct {
	session *PreviewSession
	posts   *services.PostService
	logger  *slog.Logger
}

// NewPreviewController creates a new PreviewController
func NewPreviewController(session *PreviewSession, posts *services.PostService, logger *slog.Logger) *PreviewController {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreviewController{session: session, posts: posts, logger: logger}
}

// Enter stores the preview ref from ?token= and redirects to the previewed
// document, or home when it cannot be resolved.
func (pc *PreviewController) Enter(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("token")
	if ref == "" {
		sendError(w, r, "token is required", http.StatusBadRequest)
		return
	}

	if err := pc.session.Start(w, r, ref); err != nil {
		pc.logger.Error("failed to start preview session", "error", err)
		sendError(w, r, "Failed to start preview", http.StatusInternalServerError)
		return
	}

	location := services.HomePath
	if id := r.URL.Query().Get("documentId"); id != "" {
		path, err := pc.posts.DocumentPath(r.Context(), id, ref)
		if err != nil {
			pc.logger.Warn("failed to resolve preview document", "document_id", id, "error", err)
		} else {
			location = path
		}
	}
	http.Redirect(w, r, location, http.StatusTemporaryRedirect)
}

// Exit clears the preview cookie and always redirects home with 307.
func (pc *PreviewController) Exit(w http.ResponseWriter, r *http.Request) {
	if err := pc.session.Clear(w, r); err != nil {
		pc.logger.Warn("failed to clear preview session", "error", err)
	}
	http.Redirect(w, r, services.HomePath, http.StatusTemporaryRedirect)
}
