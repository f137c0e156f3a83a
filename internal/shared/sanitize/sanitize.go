// Package sanitize strips markup from free text arriving over the wire.
// Ticket subjects, descriptions, comments and broadcast message bodies come
// from browser forms and the external automation webhook; none of them may
// carry HTML.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Text removes all HTML tags and trims surrounding whitespace.
func Text(s string) string {
	return strings.TrimSpace(policy.Sanitize(s))
}
