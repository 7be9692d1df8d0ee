package prismic

import "encoding/json"

// Ref is a content release pointer; the master ref is the published content.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

// API is the root document of the content API.
type API struct {
	Refs []Ref `json:"refs"`
}

// Document is a single CMS document. Data is left raw so each document type
// can decode its own shape.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href"`
	Lang                 string          `json:"lang"`
	FirstPublicationDate string          `json:"first_publication_date"`
	LastPublicationDate  string          `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// Response is one page of search results. NextPage is empty on the last page.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         string     `json:"next_page"`
	PrevPage         string     `json:"prev_page"`
	Results          []Document `json:"results"`
}

// DecodeData unmarshals the document's data block into v.
func (d *Document) DecodeData(v interface{}) error {
	if len(d.Data) == 0 {
		return nil
	}
	return json.Unmarshal(d.Data, v)
}
