package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"spacetraveling/app/models"
	"spacetraveling/app/prismic"
)

// PostType is the CMS document type of blog posts.
const PostType = "post"

const maxPageSize = 100

// The listing query. Cursors from browsers must page through exactly this.
var (
	listingPredicates = []string{prismic.At(prismic.FieldType, PostType)}
	listingOrderings  = []string{prismic.Desc(prismic.FieldFirstPublicationDate)}
)

// ContentClient is the part of the content API the services use.
// *prismic.Client implements it.
type ContentClient interface {
	Query(ctx context.Context, predicates []string, opts prismic.QueryOptions) (*prismic.Response, error)
	GetByUID(ctx context.Context, docType, uid string, opts prismic.GetOptions) (*prismic.Document, error)
	GetByID(ctx context.Context, id string, opts prismic.GetOptions) (*prismic.Document, error)
	FetchPage(ctx context.Context, cursor string) (*prismic.Response, error)
}

// toSummary maps a post document to its listing view.
func toSummary(doc *prismic.Document) (models.PostSummary, error) {
	var data models.PostData
	if err := doc.DecodeData(&data); err != nil {
		return models.PostSummary{}, fmt.Errorf("%w %q: %v", ErrInvalidDocument, doc.UID, err)
	}
	first, err := models.ParseTimestamp(doc.FirstPublicationDate)
	if err != nil {
		return models.PostSummary{}, fmt.Errorf("%w %q: %v", ErrInvalidDocument, doc.UID, err)
	}

	summary := models.PostSummary{
		UID:                  doc.UID,
		FirstPublicationDate: first,
		Data:                 data,
	}
	if err := summary.Validate(); err != nil {
		return models.PostSummary{}, fmt.Errorf("%w %q: %v", ErrInvalidDocument, doc.UID, err)
	}
	return summary, nil
}

// toPost maps a post document to the full post.
func toPost(doc *prismic.Document) (*models.Post, error) {
	var data models.PostContent
	if err := doc.DecodeData(&data); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidDocument, doc.UID, err)
	}
	first, err := models.ParseTimestamp(doc.FirstPublicationDate)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidDocument, doc.UID, err)
	}
	last, err := models.ParseTimestamp(doc.LastPublicationDate)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidDocument, doc.UID, err)
	}

	post := &models.Post{
		UID:                  doc.UID,
		FirstPublicationDate: first,
		LastPublicationDate:  last,
		Data:                 data,
	}
	if err := post.Validate(); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidDocument, doc.UID, err)
	}
	return post, nil
}

// toSummaries maps listing results. Documents that cannot be shown are
// logged and left out.
func toSummaries(docs []prismic.Document, logger *slog.Logger) []models.PostSummary {
	out := make([]models.PostSummary, 0, len(docs))
	for i := range docs {
		s, err := toSummary(&docs[i])
		if err != nil {
			logger.Warn("skipping post", "uid", docs[i].UID, "error", err)
			continue
		}
		out = append(out, s)
	}
	return out
}

// publicCursor strips the access token from a next-page URL before it is
// handed to browsers. The client adds it back when following the cursor.
func publicCursor(next string) string {
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		return next
	}
	q := u.Query()
	if q.Get("access_token") == "" {
		return next
	}
	q.Del("access_token")
	u.RawQuery = q.Encode()
	return u.String()
}

// listingCursor rebuilds a cursor received from a browser so that it can only
// page through the post listing under ref. Query, orderings and ref are set
// here; only the paging parameters are taken from the cursor. An empty ref
// reads the master ref.
func listingCursor(cursor, ref string) (string, error) {
	u, err := url.Parse(cursor)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	in := u.Query()
	if in.Get("q") != prismic.JoinPredicates(listingPredicates) ||
		in.Get("orderings") != prismic.JoinOrderings(listingOrderings) {
		return "", ErrInvalidCursor
	}

	out := url.Values{}
	out.Set("q", prismic.JoinPredicates(listingPredicates))
	out.Set("orderings", prismic.JoinOrderings(listingOrderings))

	page, err := strconv.Atoi(in.Get("page"))
	if err != nil || page < 1 {
		return "", ErrInvalidCursor
	}
	out.Set("page", strconv.Itoa(page))

	if raw := in.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxPageSize {
			return "", ErrInvalidCursor
		}
		out.Set("pageSize", strconv.Itoa(size))
	}
	if after := in.Get("after"); after != "" {
		out.Set("after", after)
	}
	if ref != "" {
		out.Set("ref", ref)
	}

	u.RawQuery = out.Encode()
	u.Fragment = ""
	return u.String(), nil
}
