package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"spacetraveling/app/config"
	"spacetraveling/app/models"
	"spacetraveling/app/prismic"
	"spacetraveling/app/prismic/prismictest"
	"spacetraveling/app/repositories/mock"
	"spacetraveling/app/services"
	"spacetraveling/app/views"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func day(d int) time.Time {
	return time.Date(2021, 3, d, 12, 0, 0, 0, time.UTC)
}

type testApp struct {
	srv     *prismictest.Server
	pages   *mock.PageRepository
	listing *services.ListingService
	builder *services.SiteBuilder
	router  *mux.Router
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	srv := prismictest.NewServer(t,
		prismictest.PostDocument(prismictest.Post{UID: "como-utilizar-hooks", Title: "Como utilizar Hooks", Author: "Joseph Oliveira", First: day(15), Last: day(25)}),
		prismictest.PostDocument(prismictest.Post{UID: "criando-um-app-cra-do-zero", Title: "Criando um app CRA do zero", Author: "Danilo Vieira", First: day(20)}),
		prismictest.PostDocument(prismictest.Post{UID: "mapas-com-react", Title: "Mapas com React", Author: "Thiago Pacheco", First: day(10)}),
	)
	srv.AddPreview("preview-ref", prismictest.PostDocument(prismictest.Post{UID: "rascunho", Title: "Rascunho secreto"}))

	cfg := &config.Config{
		CMS:  config.CMS{Endpoint: srv.Endpoint(), Timeout: 2 * time.Second},
		Site: config.Site{Title: "spacetraveling", PageSize: 1, Timezone: "UTC"},
	}
	client, err := prismic.NewClient(cfg.CMS)
	require.NoError(t, err)
	templates, err := views.NewTemplates()
	require.NoError(t, err)

	pages := mock.NewPageRepository()
	listing := services.NewListingService(client, cfg, nil)
	posts := services.NewPostService(client, cfg, nil)
	builder := services.NewSiteBuilder(cfg, listing, posts, pages, templates, nil)
	t.Cleanup(builder.Wait)

	session := NewPreviewSession(NewCookieStore([]byte(testSecret), false))
	pageController := NewPageController(builder, pages, session, nil)
	apiController := NewAPIController(listing, session, nil)
	previewController := NewPreviewController(session, posts, nil)

	router := mux.NewRouter()
	router.HandleFunc("/", pageController.Home).Methods("GET")
	router.HandleFunc("/post/{slug}", pageController.Post).Methods("GET")
	router.HandleFunc("/api/posts", apiController.MorePosts).Methods("GET")
	router.HandleFunc("/api/preview", previewController.Enter).Methods("GET")
	router.HandleFunc("/api/exit-preview", previewController.Exit)
	router.HandleFunc("/health", apiController.Health).Methods("GET")

	return &testApp{srv: srv, pages: pages, listing: listing, builder: builder, router: router}
}

func (a *testApp) do(t *testing.T, method, target string, cookies []*http.Cookie, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) enterPreview(t *testing.T) []*http.Cookie {
	t.Helper()
	w := a.do(t, "GET", "/api/preview?token=preview-ref&documentId=id-rascunho", nil, nil)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestPageController_Home(t *testing.T) {
	t.Run("builds and serves the stored listing", func(t *testing.T) {
		app := setupTestApp(t)

		w := app.do(t, "GET", "/", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "Criando um app CRA do zero")
		assert.Contains(t, w.Body.String(), "Carregar mais posts")
		assert.NotContains(t, w.Body.String(), "Sair do modo Preview")

		etag := w.Header().Get("ETag")
		require.NotEmpty(t, etag)
		stored, err := app.pages.Get(services.HomePath)
		require.NoError(t, err)
		assert.Equal(t, stored.ETag, etag)

		w = app.do(t, "GET", "/", nil, map[string]string{"If-None-Match": etag})
		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("serves the stored page as is", func(t *testing.T) {
		app := setupTestApp(t)
		require.NoError(t, app.pages.Put(services.NewPage("/", []byte("<html>stored</html>"))))

		w := app.do(t, "GET", "/", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "<html>stored</html>", w.Body.String())
	})

	t.Run("page parameter loads more", func(t *testing.T) {
		app := setupTestApp(t)

		w := app.do(t, "GET", "/?page=3", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Criando um app CRA do zero")
		assert.Contains(t, body, "Como utilizar Hooks")
		assert.Contains(t, body, "Mapas com React")
		assert.NotContains(t, body, "Carregar mais posts")
		assert.Equal(t, "private, no-store", w.Header().Get("Cache-Control"))

		w = app.do(t, "GET", "/?page=2", nil, nil)
		assert.Contains(t, w.Body.String(), `href="/?page=3"`)
	})

	t.Run("preview renders live with exit link", func(t *testing.T) {
		app := setupTestApp(t)
		cookies := app.enterPreview(t)

		w := app.do(t, "GET", "/", cookies, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Sair do modo Preview")

		_, err := app.pages.Get(services.HomePath)
		assert.Error(t, err)
	})

	t.Run("content API failure", func(t *testing.T) {
		app := setupTestApp(t)
		app.srv.FailNext(1)

		w := app.do(t, "GET", "/", nil, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestPageController_Post(t *testing.T) {
	t.Run("fallback placeholder then content", func(t *testing.T) {
		app := setupTestApp(t)

		w := app.do(t, "GET", "/post/como-utilizar-hooks", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Carregando...")
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.NotContains(t, w.Body.String(), "Como utilizar Hooks</h1>")

		app.builder.Wait()

		w = app.do(t, "GET", "/post/como-utilizar-hooks", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "<h1>Como utilizar Hooks</h1>")
		assert.Contains(t, w.Body.String(), "Post anterior")
		assert.NotEmpty(t, w.Header().Get("ETag"))

		w = app.do(t, "GET", "/post/como-utilizar-hooks", nil, map[string]string{"If-None-Match": w.Header().Get("ETag")})
		assert.Equal(t, http.StatusNotModified, w.Code)
	})

	t.Run("unknown post is not found after generation", func(t *testing.T) {
		app := setupTestApp(t)

		w := app.do(t, "GET", "/post/nao-existe", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Carregando...")

		app.builder.Wait()

		w = app.do(t, "GET", "/post/nao-existe", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("preview renders drafts live", func(t *testing.T) {
		app := setupTestApp(t)
		cookies := app.enterPreview(t)

		w := app.do(t, "GET", "/post/rascunho", cookies, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Rascunho secreto")
		assert.Contains(t, w.Body.String(), "Sair do modo Preview")

		w = app.do(t, "GET", "/post/nao-existe", cookies, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		_, err := app.pages.Get("/post/rascunho")
		assert.Error(t, err)
	})

	t.Run("failed generation is an error, not a placeholder", func(t *testing.T) {
		app := setupTestApp(t)
		app.srv.FailNext(1000)

		w := app.do(t, "GET", "/post/como-utilizar-hooks", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Carregando...")
		app.builder.Wait()
		hits := app.srv.Hits("/api/v2")

		for i := 0; i < 3; i++ {
			w = app.do(t, "GET", "/post/como-utilizar-hooks", nil, nil)
			assert.Equal(t, http.StatusBadGateway, w.Code)
			assert.NotContains(t, w.Body.String(), "Carregando...")
			app.builder.Wait()
		}
		assert.Equal(t, hits, app.srv.Hits("/api/v2"))
		assert.True(t, app.builder.Failed("/post/como-utilizar-hooks"))
	})

	t.Run("placeholder refreshes from the document head", func(t *testing.T) {
		app := setupTestApp(t)

		body := app.do(t, "GET", "/post/mapas-com-react", nil, nil).Body.String()
		refresh := strings.Index(body, `<meta http-equiv="refresh" content="1">`)
		require.GreaterOrEqual(t, refresh, 0)
		assert.Less(t, refresh, strings.Index(body, "</head>"))
	})

	t.Run("store errors are server errors", func(t *testing.T) {
		app := setupTestApp(t)
		app.pages.FailNext(1)

		w := app.do(t, "GET", "/post/mapas-com-react", nil, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestAPIController_MorePosts(t *testing.T) {
	app := setupTestApp(t)

	t.Run("missing cursor", func(t *testing.T) {
		w := app.do(t, "GET", "/api/posts", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})

	t.Run("foreign cursor", func(t *testing.T) {
		w := app.do(t, "GET", "/api/posts?cursor=https%3A%2F%2Fevil.example.com%2Fapi%2Fv2%2Fdocuments%2Fsearch", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("follows the cursor", func(t *testing.T) {
		first, err := app.listing.FirstPage(context.Background(), "")
		require.NoError(t, err)
		require.NotEmpty(t, first.NextPage)

		w := app.do(t, "GET", "/api/posts?cursor="+url.QueryEscape(first.NextPage), nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var page models.Pagination
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		require.Len(t, page.Results, 1)
		assert.Equal(t, "como-utilizar-hooks", page.Results[0].UID)
		assert.Equal(t, "15 mar 2021", page.Results[0].FormattedDate)
		assert.NotEmpty(t, page.NextPage)
	})

	t.Run("content API failure", func(t *testing.T) {
		first, err := app.listing.FirstPage(context.Background(), "")
		require.NoError(t, err)

		app.srv.FailNext(1)
		w := app.do(t, "GET", "/api/posts?cursor="+url.QueryEscape(first.NextPage), nil, nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	listingCursor := func(extra url.Values) string {
		q := url.Values{
			"q":         {prismic.JoinPredicates([]string{prismic.At(prismic.FieldType, "post")})},
			"orderings": {prismic.JoinOrderings([]string{prismic.Desc(prismic.FieldFirstPublicationDate)})},
			"pageSize":  {"10"},
			"page":      {"1"},
		}
		for k, v := range extra {
			q[k] = v
		}
		return "/api/posts?cursor=" + url.QueryEscape(app.srv.Endpoint()+"/documents/search?"+q.Encode())
	}

	t.Run("cursor ref does not open preview content", func(t *testing.T) {
		w := app.do(t, "GET", listingCursor(url.Values{"ref": {"preview-ref"}}), nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "Rascunho secreto")
		assert.Contains(t, w.Body.String(), "mapas-com-react")

		w = app.do(t, "GET", listingCursor(url.Values{"ref": {"preview-ref"}}), app.enterPreview(t), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Rascunho secreto")
	})

	t.Run("cursor with another query is rejected", func(t *testing.T) {
		w := app.do(t, "GET", listingCursor(url.Values{
			"q": {prismic.JoinPredicates([]string{prismic.At(prismic.FieldID, "id-rascunho")})},
		}), nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NotContains(t, w.Body.String(), "Rascunho secreto")
	})
}

func TestPreviewController(t *testing.T) {
	t.Run("enter requires a token", func(t *testing.T) {
		app := setupTestApp(t)
		w := app.do(t, "GET", "/api/preview", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("enter redirects to the document", func(t *testing.T) {
		app := setupTestApp(t)
		w := app.do(t, "GET", "/api/preview?token=preview-ref&documentId=id-rascunho", nil, nil)
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/post/rascunho", w.Header().Get("Location"))
	})

	t.Run("enter falls back home for unknown documents", func(t *testing.T) {
		app := setupTestApp(t)
		w := app.do(t, "GET", "/api/preview?token=preview-ref&documentId=nope", nil, nil)
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("exit always redirects home", func(t *testing.T) {
		app := setupTestApp(t)
		cookies := app.enterPreview(t)

		for _, method := range []string{"GET", "POST"} {
			w := app.do(t, method, "/api/exit-preview", cookies, nil)
			assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
			assert.Equal(t, "/", w.Header().Get("Location"))

			cleared := w.Result().Cookies()
			require.NotEmpty(t, cleared)
			assert.Equal(t, previewSessionName, cleared[0].Name)
			assert.True(t, cleared[0].MaxAge < 0)
		}

		w := app.do(t, "GET", "/api/exit-preview", nil, nil)
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("exit leaves preview mode", func(t *testing.T) {
		app := setupTestApp(t)
		cookies := app.enterPreview(t)

		w := app.do(t, "GET", "/api/exit-preview", cookies, nil)
		cleared := w.Result().Cookies()

		w = app.do(t, "GET", "/", cleared, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "Sair do modo Preview")
	})

	t.Run("tampered cookie is ignored", func(t *testing.T) {
		app := setupTestApp(t)
		w := app.do(t, "GET", "/", []*http.Cookie{{Name: previewSessionName, Value: "garbage"}}, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "Sair do modo Preview")
	})
}

func TestHealth(t *testing.T) {
	app := setupTestApp(t)
	w := app.do(t, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestEtagMatches(t *testing.T) {
	assert.True(t, etagMatches(`"abc"`, `"abc"`))
	assert.True(t, etagMatches(`"x", W/"abc"`, `"abc"`))
	assert.True(t, etagMatches(`*`, `"abc"`))
	assert.False(t, etagMatches(`"x"`, `"abc"`))
}
