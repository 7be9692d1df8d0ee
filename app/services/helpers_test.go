package services

import (
	"strings"
	"testing"
	"time"

	"spacetraveling/app/config"
	"spacetraveling/app/models"
	"spacetraveling/app/prismic"
	"spacetraveling/app/prismic/prismictest"
	"spacetraveling/app/repositories/mock"
	"spacetraveling/app/richtext"
	"spacetraveling/app/views"

	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2021, 3, d, 12, 0, 0, 0, time.UTC)
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("palavra ", n))
}

func fixturePosts() []prismic.Document {
	return []prismic.Document{
		prismictest.PostDocument(prismictest.Post{
			UID: "como-utilizar-hooks", Title: "Como utilizar Hooks", Subtitle: "Pensando em sincronização",
			Author: "Joseph Oliveira", First: day(15), Last: day(25),
			Banner: "https://images.prismic.io/hooks.png",
			Content: []models.Section{
				{Heading: "Proin et varius", Body: richtext.Blocks{{Type: richtext.Paragraph, Text: words(200)}}},
			},
		}),
		prismictest.PostDocument(prismictest.Post{
			UID: "criando-um-app-cra-do-zero", Title: "Criando um app CRA do zero", Subtitle: "Tudo sobre",
			Author: "Danilo Vieira", First: day(20),
			Content: []models.Section{
				{Heading: "Cras laoreet", Body: richtext.Blocks{{Type: richtext.Paragraph, Text: "Nullam dolor sapien"}}},
			},
		}),
		prismictest.PostDocument(prismictest.Post{
			UID: "mapas-com-react", Title: "Mapas com React", Author: "Thiago Pacheco", First: day(10), Last: day(10),
		}),
	}
}

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		CMS:  config.CMS{Endpoint: endpoint, AccessToken: "token", Timeout: 2 * time.Second},
		Site: config.Site{Title: "spacetraveling", PageSize: 1, Timezone: "UTC"},
	}
}

type fixture struct {
	srv     *prismictest.Server
	cfg     *config.Config
	client  *prismic.Client
	listing *ListingService
	posts   *PostService
	pages   *mock.PageRepository
	builder *SiteBuilder
}

func newFixture(t *testing.T, docs ...prismic.Document) *fixture {
	t.Helper()
	if docs == nil {
		docs = fixturePosts()
	}
	srv := prismictest.NewServer(t, docs...)
	cfg := testConfig(srv.Endpoint())

	client, err := prismic.NewClient(cfg.CMS)
	require.NoError(t, err)

	templates, err := views.NewTemplates()
	require.NoError(t, err)

	f := &fixture{srv: srv, cfg: cfg, client: client, pages: mock.NewPageRepository()}
	f.listing = NewListingService(client, cfg, nil)
	f.posts = NewPostService(client, cfg, nil)
	f.builder = NewSiteBuilder(cfg, f.listing, f.posts, f.pages, templates, nil)
	t.Cleanup(f.builder.Wait)
	return f
}
