// Package richtext renders Prismic structured text to HTML and plain text.
//
// Text content is always HTML-escaped and link targets are restricted to
// web, mail and relative URLs. oEmbed markup is emitted unchanged: it comes
// from the CMS and is treated as trusted.
package richtext

import (
	"html"
	"html/template"
	"net/url"
	"sort"
	"strings"
	"unicode/utf16"
)

// Block kinds.
const (
	Heading1     = "heading1"
	Heading2     = "heading2"
	Heading3     = "heading3"
	Heading4     = "heading4"
	Heading5     = "heading5"
	Heading6     = "heading6"
	Paragraph    = "paragraph"
	Preformatted = "preformatted"
	ListItem     = "list-item"
	OListItem    = "o-list-item"
	Image        = "image"
	Embed        = "embed"
)

// Span kinds.
const (
	Strong    = "strong"
	Em        = "em"
	Hyperlink = "hyperlink"
	Label     = "label"
)

// Span marks a range of a block's text. Start and End are UTF-16 code unit
// offsets, as produced by the CMS.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Type  string   `json:"type"`
	Data  LinkData `json:"data,omitempty"`
}

// LinkData carries hyperlink targets (web, media or document links) and label names.
type LinkData struct {
	LinkType string `json:"link_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	ID       string `json:"id,omitempty"`
	UID      string `json:"uid,omitempty"`
	Type     string `json:"type,omitempty"`
	Label    string `json:"label,omitempty"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type OEmbed struct {
	Type         string `json:"type"`
	EmbedURL     string `json:"embed_url"`
	ProviderName string `json:"provider_name"`
	HTML         string `json:"html"`
}

// Block is one element of a structured text field.
type Block struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	Spans      []Span      `json:"spans"`
	URL        string      `json:"url,omitempty"`
	Alt        string      `json:"alt,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	LinkTo     *LinkData   `json:"linkTo,omitempty"`
	OEmbed     *OEmbed     `json:"oembed,omitempty"`
}

type Blocks []Block

// LinkResolver maps a document link to a site path.
type LinkResolver func(LinkData) string

// DefaultLinkResolver sends post documents to /post/{uid} and anything else home.
func DefaultLinkResolver(link LinkData) string {
	if link.Type == "post" && link.UID != "" {
		return "/post/" + url.PathEscape(link.UID)
	}
	return "/"
}

// AsText joins the text of every block with sep.
func AsText(blocks Blocks, sep string) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, sep)
}

// AsHTML renders blocks to markup. Consecutive list items are grouped into a
// single <ul> or <ol>. A nil resolver uses DefaultLinkResolver.
func AsHTML(blocks Blocks, resolve LinkResolver) template.HTML {
	if resolve == nil {
		resolve = DefaultLinkResolver
	}

	var sb strings.Builder
	openList := ""
	closeList := func() {
		if openList != "" {
			sb.WriteString("</" + openList + ">")
			openList = ""
		}
	}

	for _, b := range blocks {
		list := ""
		switch b.Type {
		case ListItem:
			list = "ul"
		case OListItem:
			list = "ol"
		}
		if list != openList {
			closeList()
			if list != "" {
				sb.WriteString("<" + list + ">")
				openList = list
			}
		}
		writeBlock(&sb, b, resolve)
	}
	closeList()

	return template.HTML(sb.String())
}

func writeBlock(sb *strings.Builder, b Block, resolve LinkResolver) {
	switch b.Type {
	case Heading1, Heading2, Heading3, Heading4, Heading5, Heading6:
		tag := "h" + b.Type[len("heading"):]
		writeElement(sb, tag, b, resolve)
	case Paragraph:
		writeElement(sb, "p", b, resolve)
	case Preformatted:
		writeElement(sb, "pre", b, resolve)
	case ListItem, OListItem:
		writeElement(sb, "li", b, resolve)
	case Image:
		writeImage(sb, b, resolve)
	case Embed:
		writeEmbed(sb, b)
	default:
		// Unknown block kinds degrade to a paragraph so no text is lost.
		if b.Text != "" {
			writeElement(sb, "p", b, resolve)
		}
	}
}

func writeElement(sb *strings.Builder, tag string, b Block, resolve LinkResolver) {
	sb.WriteString("<" + tag + ">")
	sb.WriteString(renderSpans(b.Text, b.Spans, resolve))
	sb.WriteString("</" + tag + ">")
}

func writeImage(sb *strings.Builder, b Block, resolve LinkResolver) {
	src := safeURL(b.URL)
	if src == "" {
		return
	}
	img := `<img src="` + html.EscapeString(src) + `" alt="` + html.EscapeString(b.Alt) + `" />`
	sb.WriteString(`<p class="block-img">`)
	if b.LinkTo != nil {
		if href := linkHref(*b.LinkTo, resolve); href != "" {
			img = `<a href="` + html.EscapeString(href) + `">` + img + `</a>`
		}
	}
	sb.WriteString(img)
	sb.WriteString("</p>")
}

func writeEmbed(sb *strings.Builder, b Block) {
	if b.OEmbed == nil {
		return
	}
	sb.WriteString(`<div data-oembed="` + html.EscapeString(b.OEmbed.EmbedURL) +
		`" data-oembed-type="` + html.EscapeString(b.OEmbed.Type) +
		`" data-oembed-provider="` + html.EscapeString(b.OEmbed.ProviderName) + `">`)
	sb.WriteString(b.OEmbed.HTML)
	sb.WriteString("</div>")
}

// renderSpans emits text with span markup. Spans may overlap; when an inner
// span outlives the one that closes, it is closed and reopened so the output
// stays well formed.
func renderSpans(text string, spans []Span, resolve LinkResolver) string {
	units := utf16.Encode([]rune(text))
	n := len(units)

	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > n {
			s.End = n
		}
		if s.Start >= s.End {
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return escapeText(units)
	}

	// Outer spans first when they start together.
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	bounds := map[int]struct{}{0: {}, n: {}}
	for _, s := range valid {
		bounds[s.Start] = struct{}{}
		bounds[s.End] = struct{}{}
	}
	positions := make([]int, 0, len(bounds))
	for p := range bounds {
		positions = append(positions, p)
	}
	sort.Ints(positions)

	var sb strings.Builder
	var stack []element
	next := 0

	for i, pos := range positions {
		// Close spans ending here, reopening anything stacked above them.
		for {
			idx := -1
			for k := len(stack) - 1; k >= 0; k-- {
				if stack[k].span.End <= pos {
					idx = k
					break
				}
			}
			if idx < 0 {
				break
			}
			reopen := make([]element, 0, len(stack)-idx-1)
			for k := len(stack) - 1; k > idx; k-- {
				sb.WriteString(stack[k].close)
				reopen = append([]element{stack[k]}, reopen...)
			}
			sb.WriteString(stack[idx].close)
			stack = stack[:idx]
			for _, e := range reopen {
				sb.WriteString(e.open)
				stack = append(stack, e)
			}
		}

		for next < len(valid) && valid[next].Start == pos {
			e := newElement(valid[next], resolve)
			sb.WriteString(e.open)
			stack = append(stack, e)
			next++
		}

		if i+1 < len(positions) {
			sb.WriteString(escapeText(units[pos:positions[i+1]]))
		}
	}
	for k := len(stack) - 1; k >= 0; k-- {
		sb.WriteString(stack[k].close)
	}
	return sb.String()
}

type element struct {
	span  Span
	open  string
	close string
}

func newElement(s Span, resolve LinkResolver) element {
	switch s.Type {
	case Strong:
		return element{span: s, open: "<strong>", close: "</strong>"}
	case Em:
		return element{span: s, open: "<em>", close: "</em>"}
	case Label:
		return element{span: s, open: `<span class="` + html.EscapeString(s.Data.Label) + `">`, close: "</span>"}
	case Hyperlink:
		href := linkHref(s.Data, resolve)
		if href == "" {
			return element{span: s, open: "<span>", close: "</span>"}
		}
		tag := `<a href="` + html.EscapeString(href) + `"`
		if s.Data.Target != "" {
			tag += ` target="` + html.EscapeString(s.Data.Target) + `" rel="noopener"`
		}
		return element{span: s, open: tag + ">", close: "</a>"}
	default:
		return element{span: s, open: "<span>", close: "</span>"}
	}
}

func linkHref(link LinkData, resolve LinkResolver) string {
	if link.LinkType == "Document" {
		return resolve(link)
	}
	return safeURL(link.URL)
}

// safeURL returns u when it is relative or uses an allowed scheme.
func safeURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "", "http", "https", "mailto", "tel":
		return u
	default:
		return ""
	}
}

func escapeText(units []uint16) string {
	s := html.EscapeString(string(utf16.Decode(units)))
	return strings.ReplaceAll(s, "\n", "<br />")
}
