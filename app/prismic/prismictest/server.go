// Package prismictest provides an in-memory content API for tests.
package prismictest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"spacetraveling/app/models"
	"spacetraveling/app/prismic"
	"spacetraveling/app/richtext"
)

const (
	MasterRef   = "master-ref"
	apiPath     = "/api/v2"
	searchPath  = "/api/v2/documents/search"
	defaultSize = 20
)

var predicateRe = regexp.MustCompile(`\[(at|date\.before|date\.after)\(([^,]+),([^)]*)\)\]`)

// Server serves a fixed set of documents through the search API.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	docs     []prismic.Document
	previews map[string][]prismic.Document
	hits     map[string]int
	fail     int
	delay    time.Duration
}

// NewServer starts a server holding docs in insertion order. It is closed
// when the test ends.
func NewServer(t testing.TB, docs ...prismic.Document) *Server {
	s := &Server{
		docs:     docs,
		previews: make(map[string][]prismic.Document),
		hits:     make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Endpoint is the API root to configure clients with.
func (s *Server) Endpoint() string {
	return s.URL + apiPath
}

// SetDocuments replaces the published documents.
func (s *Server) SetDocuments(docs ...prismic.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = docs
}

// AddPreview makes ref resolve to the published documents with doc overlaid.
func (s *Server) AddPreview(ref string, doc prismic.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews[ref] = append(s.previews[ref], doc)
}

// FailNext makes the next n requests answer 500.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = n
}

// SetDelay slows every search response down.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	failing := s.fail > 0
	if failing {
		s.fail--
	}
	delay := s.delay
	s.mu.Unlock()

	if failing {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
		return
	}

	switch r.URL.Path {
	case apiPath:
		writeJSON(w, prismic.API{Refs: []prismic.Ref{{ID: "master", Ref: MasterRef, IsMasterRef: true}}})
	case searchPath:
		if delay > 0 {
			time.Sleep(delay)
		}
		s.search(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docs, ok := s.documents(q.Get("ref"))
	if !ok {
		http.Error(w, `{"error":"invalid ref"}`, http.StatusBadRequest)
		return
	}

	for _, m := range predicateRe.FindAllStringSubmatch(q.Get("q"), -1) {
		docs = filter(docs, m[1], strings.TrimSpace(m[2]), strings.TrimSpace(m[3]))
	}
	sortDocs(docs, q.Get("orderings"))

	if after := q.Get("after"); after != "" {
		for i, d := range docs {
			if d.ID == after {
				docs = docs[i+1:]
				break
			}
		}
	}

	pageSize := atoiDefault(q.Get("pageSize"), defaultSize)
	page := atoiDefault(q.Get("page"), 1)
	total := len(docs)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	resp := prismic.Response{
		Page:             page,
		ResultsPerPage:   pageSize,
		ResultsSize:      end - start,
		TotalResultsSize: total,
		TotalPages:       totalPages,
		Results:          append([]prismic.Document{}, docs[start:end]...),
	}
	if page < totalPages {
		next := *r.URL
		nq := next.Query()
		nq.Set("page", strconv.Itoa(page+1))
		next.RawQuery = nq.Encode()
		resp.NextPage = s.URL + next.RequestURI()
	}
	writeJSON(w, resp)
}

func (s *Server) documents(ref string) ([]prismic.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := append([]prismic.Document{}, s.docs...)
	if ref == MasterRef {
		return docs, true
	}
	overlay, ok := s.previews[ref]
	if !ok {
		return nil, false
	}
	for _, o := range overlay {
		replaced := false
		for i := range docs {
			if docs[i].ID == o.ID {
				docs[i] = o
				replaced = true
			}
		}
		if !replaced {
			docs = append(docs, o)
		}
	}
	return docs, true
}

func filter(docs []prismic.Document, op, path, rawValue string) []prismic.Document {
	var out []prismic.Document
	for _, d := range docs {
		if matches(d, op, path, rawValue) {
			out = append(out, d)
		}
	}
	return out
}

func matches(d prismic.Document, op, path, rawValue string) bool {
	switch op {
	case "at":
		value, err := strconv.Unquote(rawValue)
		if err != nil {
			return false
		}
		switch {
		case path == prismic.FieldType:
			return d.Type == value
		case path == prismic.FieldID:
			return d.ID == value
		case strings.HasPrefix(path, "my.") && strings.HasSuffix(path, ".uid"):
			docType := strings.TrimSuffix(strings.TrimPrefix(path, "my."), ".uid")
			return d.Type == docType && d.UID == value
		}
		return false
	case "date.before", "date.after":
		ms, err := strconv.ParseInt(rawValue, 10, 64)
		if err != nil {
			return false
		}
		t := docTime(d, path)
		if t == nil {
			return false
		}
		bound := time.UnixMilli(ms)
		if op == "date.before" {
			return t.Before(bound)
		}
		return t.After(bound)
	}
	return false
}

func sortDocs(docs []prismic.Document, orderings string) {
	orderings = strings.Trim(orderings, "[]")
	if orderings == "" {
		return
	}
	field, desc := orderings, false
	if strings.HasSuffix(field, " desc") {
		field, desc = strings.TrimSuffix(field, " desc"), true
	}
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docTime(docs[i], field), docTime(docs[j], field)
		if a == nil || b == nil {
			return a != nil
		}
		if desc {
			return a.After(*b)
		}
		return a.Before(*b)
	})
}

func docTime(d prismic.Document, field string) *time.Time {
	var raw string
	switch field {
	case prismic.FieldFirstPublicationDate:
		raw = d.FirstPublicationDate
	case prismic.FieldLastPublicationDate:
		raw = d.LastPublicationDate
	default:
		return nil
	}
	t, err := models.ParseTimestamp(raw)
	if err != nil {
		return nil
	}
	return t
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Post describes a post document fixture.
type Post struct {
	ID        string
	UID       string
	Title     string
	Subtitle  string
	Author    string
	Banner    string
	First     time.Time
	Last      time.Time
	Content   []models.Section
	Unpublish bool
}

// PostDocument builds a post document in the shape the CMS returns.
func PostDocument(p Post) prismic.Document {
	if p.ID == "" {
		p.ID = "id-" + p.UID
	}
	content := p.Content
	if content == nil {
		content = []models.Section{}
	}
	for i := range content {
		if content[i].Body == nil {
			content[i].Body = richtext.Blocks{}
		}
	}

	data, _ := json.Marshal(map[string]interface{}{
		"title":    p.Title,
		"subtitle": p.Subtitle,
		"author":   p.Author,
		"banner":   map[string]string{"url": p.Banner, "alt": p.Title},
		"content":  content,
	})

	doc := prismic.Document{
		ID:   p.ID,
		UID:  p.UID,
		Type: "post",
		Data: data,
	}
	if !p.Unpublish {
		if !p.First.IsZero() {
			doc.FirstPublicationDate = p.First.UTC().Format(models.TimestampLayout)
		}
		if !p.Last.IsZero() {
			doc.LastPublicationDate = p.Last.UTC().Format(models.TimestampLayout)
		}
	}
	return doc
}

// EndpointURL parses Endpoint for tests that need the host.
func (s *Server) EndpointURL() *url.URL {
	u, _ := url.Parse(s.Endpoint())
	return u
}
