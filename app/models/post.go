package models

import (
	"math"
	"strings"

	"spacetraveling/app/richtext"

	"github.com/go-playground/validator/v10"
)

// WordsPerMinute is the reading speed used for the reading time estimate.
const WordsPerMinute = 200

var validate = validator.New()

// Validate checks that a decoded post carries the fields the pages need.
func (p *Post) Validate() error {
	return validate.Struct(p)
}

// Validate checks that a decoded summary carries the fields the listing needs.
func (s *PostSummary) Validate() error {
	return validate.Struct(s)
}

// WordCount counts whitespace separated words over every heading and body block.
func WordCount(sections []Section) int {
	total := 0
	for _, s := range sections {
		total += len(strings.Fields(s.Heading))
		total += len(strings.Fields(richtext.AsText(s.Body, " ")))
	}
	return total
}

// ReadingTime estimates whole minutes to read the sections, rounding up.
// A post without words takes 0 minutes.
func ReadingTime(sections []Section) int {
	return int(math.Ceil(float64(WordCount(sections)) / WordsPerMinute))
}

// ReadingTime is the estimate for the post's content.
func (p *Post) ReadingTime() int {
	return ReadingTime(p.Data.Content)
}
