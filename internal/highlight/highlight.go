// Package highlight fetches file content, cleans it and wraps every
// occurrence of a search term in a numbered marker.
package highlight

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/jun/drivelookup/internal/model"
)

const matchTimeout = 2 * time.Second

// MarkerID returns the element id of match n within a search.
func MarkerID(searchID string, n int) string {
	return fmt.Sprintf("%s-%d", searchID, n)
}

// Result is the outcome of highlighting one text.
type Result struct {
	Text  string
	Range model.Range
	// Total is the global match count after this text: start-1 plus its matches.
	Total int
}

// Highlight wraps each case-insensitive occurrence of term outside a tag in
// <span class='highlight' id='<searchID>-<n>'>, numbering from start.
// The term is matched literally.
func Highlight(text, term, searchID string, start int) (Result, error) {
	empty := Result{Text: text, Range: model.Range{Min: start, Max: start - 1}, Total: start - 1}
	if term == "" {
		return empty, nil
	}

	re, err := regexp2.Compile(`(?<!<[^>]*)`+regexp2.Escape(term), regexp2.IgnoreCase)
	if err != nil {
		return empty, fmt.Errorf("compile search pattern: %w", err)
	}
	re.MatchTimeout = matchTimeout

	next := start
	out, err := re.ReplaceFunc(text, func(m regexp2.Match) string {
		var b strings.Builder
		b.WriteString("<span class='highlight' id='")
		b.WriteString(MarkerID(searchID, next))
		b.WriteString("'>")
		b.WriteString(m.String())
		b.WriteString("</span>")
		next++
		return b.String()
	}, -1, -1)
	if err != nil {
		return empty, fmt.Errorf("highlight %q: %w", term, err)
	}

	return Result{
		Text:  out,
		Range: model.Range{Min: start, Max: next - 1},
		Total: next - 1,
	}, nil
}
