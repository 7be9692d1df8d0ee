package routes

import (
	"log/slog"
	"net/http"
	"strings"

	"spacetraveling/app/controllers"
	"spacetraveling/app/middleware"
	"spacetraveling/app/views"

	"github.com/gorilla/mux"
)

// Controllers groups the handlers the router dispatches to.
type Controllers struct {
	Pages   *controllers.PageController
	API     *controllers.APIController
	Preview *controllers.PreviewController
}

// SetupRoutes defines the site's routes and returns a router.
func SetupRoutes(c Controllers, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))

	router.NotFoundHandler = middleware.Logger(logger)(http.HandlerFunc(notFound))

	// Serve static files
	router.PathPrefix("/static/").Handler(views.StaticHandler())

	// Web routes
	router.HandleFunc("/", c.Pages.Home).Methods("GET", "HEAD")
	router.HandleFunc("/post/{slug}", c.Pages.Post).Methods("GET", "HEAD")
	router.HandleFunc("/health", c.API.Health).Methods("GET")

	// API routes
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/exit-preview", c.Preview.Exit)
	api.HandleFunc("/preview", c.Preview.Enter).Methods("GET")

	posts := api.PathPrefix("/posts").Subrouter()
	posts.Use(middleware.ContentTypeJSON)
	posts.HandleFunc("", c.API.MorePosts).Methods("GET")

	return router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Not found"}` + "\n"))
		return
	}
	http.NotFound(w, r)
}
