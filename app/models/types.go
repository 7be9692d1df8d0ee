package models

import (
	"time"

	"spacetraveling/app/richtext"
)

// PostData is the part of a post shown in listings.
type PostData struct {
	Title    string `json:"title" validate:"required"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
}

// PostSummary represents a post in the home listing.
type PostSummary struct {
	UID                  string     `json:"uid" validate:"required"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	FormattedDate        string     `json:"formatted_date"`
	Data                 PostData   `json:"data"`
}

// Banner is the hero image of a post.
type Banner struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// Section is one heading with its rich text body.
type Section struct {
	Heading string          `json:"heading"`
	Body    richtext.Blocks `json:"body"`
}

// PostContent is the full data block of a post document.
type PostContent struct {
	PostData
	Banner  Banner    `json:"banner"`
	Content []Section `json:"content" validate:"dive"`
}

// Post represents a blog post with its full content.
type Post struct {
	UID                  string      `json:"uid" validate:"required"`
	FirstPublicationDate *time.Time  `json:"first_publication_date"`
	LastPublicationDate  *time.Time  `json:"last_publication_date"`
	Data                 PostContent `json:"data"`
}

// Pagination is one page of listing results. NextPage is the opaque cursor of
// the following page, empty on the last one.
type Pagination struct {
	NextPage string        `json:"next_page"`
	Results  []PostSummary `json:"results"`
}

// Navigation holds at most one neighbour on each side of a post.
type Navigation struct {
	PrevPost []PostSummary `json:"prev_post"`
	NextPost []PostSummary `json:"next_post"`
}
