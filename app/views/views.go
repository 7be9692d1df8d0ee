// Package views holds the page templates and static assets, embedded into
// the binary.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"spacetraveling/app/config"
	"spacetraveling/app/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Template names.
const (
	HomeTemplate    = "home"
	PostTemplate    = "post"
	LoadingTemplate = "loading"
)

// Templates holds the parsed page templates.
type Templates struct {
	templates *template.Template
}

// NewTemplates parses every embedded template.
func NewTemplates() (*Templates, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Templates{templates: tmpl}, nil
}

// Render executes the named template with data into w.
func (t *Templates) Render(w io.Writer, name string, data interface{}) error {
	tmpl := t.templates.Lookup(name)
	if tmpl == nil {
		return fmt.Errorf("template %q not found", name)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template %q: %w", name, err)
	}
	return nil
}

// StaticHandler serves the embedded assets below /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("embedded static directory missing: %v", err))
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// Site is shared by every page.
type Site struct {
	Title    string
	Preview  bool
	Comments config.Comments
	// Refresh reloads the page every second.
	Refresh bool
}

// HomePage is the listing.
type HomePage struct {
	Site      Site
	PageTitle string
	Posts     []models.PostSummary
	// NextPage is the cursor for loadmore.js; MoreHref is the fallback link.
	NextPage string
	MoreHref string
}

// Section is a post section with its body already rendered.
type Section struct {
	Heading string
	Body    template.HTML
}

// PostPage is the detail page.
type PostPage struct {
	Site          Site
	PageTitle     string
	Post          *models.Post
	FormattedDate string
	ReadingTime   int
	EditedDate    string
	EditedTime    string
	// EditInformation is set when the post has no last publication date.
	EditInformation bool
	Sections        []Section
	Prev            *models.PostSummary
	Next            *models.PostSummary
}

// LoadingPage is served while a post is generated in the background.
type LoadingPage struct {
	Site      Site
	PageTitle string
}
