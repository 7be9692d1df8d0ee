package prismic

import (
	"strconv"
	"strings"
	"time"
)

// At matches documents whose path equals value, e.g. At("document.type", "post").
func At(path, value string) string {
	return "[at(" + path + "," + strconv.Quote(value) + ")]"
}

// DateBefore matches documents whose date path is strictly before t.
func DateBefore(path string, t time.Time) string {
	return "[date.before(" + path + "," + strconv.FormatInt(t.UnixMilli(), 10) + ")]"
}

// DateAfter matches documents whose date path is strictly after t.
func DateAfter(path string, t time.Time) string {
	return "[date.after(" + path + "," + strconv.FormatInt(t.UnixMilli(), 10) + ")]"
}

// Asc and Desc build ordering terms for QueryOptions.Orderings.
func Asc(field string) string  { return field }
func Desc(field string) string { return field + " desc" }

// JoinPredicates is the q parameter value for predicates.
func JoinPredicates(predicates []string) string {
	return "[" + strings.Join(predicates, "") + "]"
}

// JoinOrderings is the orderings parameter value for orderings.
func JoinOrderings(orderings []string) string {
	return "[" + strings.Join(orderings, ",") + "]"
}
