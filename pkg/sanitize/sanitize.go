// Package sanitize reduces stored values to plain text or permitted HTML before
// they reach a meta table.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/aretw0/metabind/pkg/core"
)

var (
	textPolicy = bluemonday.StrictPolicy()
	htmlPolicy = bluemonday.UGCPolicy()
)

// Text strips all markup and collapses the value to a single trimmed line.
// Entities are decoded so the projector escapes them exactly once.
func Text(s string) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// HTML keeps the markup allowed in post content and drops everything else.
func HTML(s string) string {
	return htmlPolicy.Sanitize(s)
}

// Apply sanitizes v according to mode. Non-string values pass through.
func Apply(mode core.SanitizeMode, v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch mode {
	case core.SanitizeText:
		return Text(s)
	case core.SanitizeHTML:
		return HTML(s)
	}
	return v
}
