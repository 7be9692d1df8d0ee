package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"spacetraveling/app/config"
	"spacetraveling/app/controllers"
	"spacetraveling/app/prismic"
	"spacetraveling/app/repositories"
	"spacetraveling/app/routes"
	"spacetraveling/app/services"
	"spacetraveling/app/views"

	"github.com/dgraph-io/badger/v4"
)

const shutdownTimeout = 10 * time.Second

// App is the wired site: page store, content services and router.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Pages   repositories.PageRepository
	Listing *services.ListingService
	Posts   *services.PostService
	Builder *services.SiteBuilder
	Router  http.Handler

	db *badger.DB
}

// NewApp opens the page store at cfg.Store.Dir and wires every component.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	client, err := prismic.NewClient(cfg.CMS, prismic.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	templates, err := views.NewTemplates()
	if err != nil {
		return nil, err
	}

	db, err := repositories.Open(cfg.Store.Dir)
	if err != nil {
		return nil, err
	}
	pages, err := repositories.NewCachedPageRepository(repositories.NewBadgerPageRepository(db), cfg.Store.CacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	secret, err := sessionSecret(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	listing := services.NewListingService(client, cfg, logger)
	posts := services.NewPostService(client, cfg, logger)
	builder := services.NewSiteBuilder(cfg, listing, posts, pages, templates, logger)

	session := controllers.NewPreviewSession(controllers.NewCookieStore(secret, false))
	router := routes.SetupRoutes(routes.Controllers{
		Pages:   controllers.NewPageController(builder, pages, session, logger),
		API:     controllers.NewAPIController(listing, session, logger),
		Preview: controllers.NewPreviewController(session, posts, logger),
	}, logger)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Pages:   pages,
		Listing: listing,
		Posts:   posts,
		Builder: builder,
		Router:  router,
		db:      db,
	}, nil
}

// Close waits for background page generation and closes the page store.
func (a *App) Close() error {
	a.Builder.Wait()
	return a.db.Close()
}

// RunAppServer serves the app on addr until ctx is done, then shuts down
// gracefully.
func RunAppServer(ctx context.Context, app *App, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("starting blog service", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// sessionSecret returns the configured secret, or a random one that lasts
// for this process only.
func sessionSecret(cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.Server.SessionSecret != "" {
		return []byte(cfg.Server.SessionSecret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	logger.Warn("no session secret configured, preview sessions will not survive restarts")
	return secret, nil
}
