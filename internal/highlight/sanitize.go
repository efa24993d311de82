package highlight

import "regexp"

var (
	markupPattern   = regexp.MustCompile(`<[^>]*(>|$)|&nbsp;|&zwnj;|&raquo;|&laquo;|&gt;`)
	misencoded      = regexp.MustCompile(`Â&nbsp;|â¢&#160;?|â;|âs`)
	nonASCIIPattern = regexp.MustCompile(`[^\x00-\x7F]`)
)

// Sanitize strips markup, a handful of HTML entities, mis-encoded byte
// sequences and every non-ASCII character. Removal can join fragments into
// new markup, so the passes repeat until nothing changes; Sanitize(Sanitize(s))
// equals Sanitize(s).
func Sanitize(s string) string {
	for {
		next := markupPattern.ReplaceAllString(s, "")
		next = misencoded.ReplaceAllString(next, "")
		next = nonASCIIPattern.ReplaceAllString(next, "")
		if next == s {
			return s
		}
		s = next
	}
}
