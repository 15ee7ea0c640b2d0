package content

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"readquest/internal/models"
)

// MinDescriptionLength is the shortest description a quiz can be built from
const MinDescriptionLength = 100

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// HasSufficientMaterial reports whether a book carries enough descriptive
// text to generate a meaningful quiz. Length is counted in characters.
func HasSufficientMaterial(book *models.Book) bool {
	return book != nil && utf8.RuneCountInString(strings.TrimSpace(book.Description)) >= MinDescriptionLength
}

// CleanDescription strips markup and collapses whitespace
func CleanDescription(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
