package platform

import (
	"context"
	"strings"

	"github.com/aretw0/metabind/pkg/core"
)

// Change kinds used as the type of a revision message.
const (
	ChangePlace  = "place"
	ChangeRemove = "remove"
	ChangeEdit   = "edit"
	ChangeImport = "import"
)

// Footer marks revisions written through metabind.
const Footer = "Changed-by: metabind"

// FormatChangeReason builds a revision message:
//
//	<kind>(<post>): <subject>
//
//	<body>
//
//	Changed-by: metabind
func FormatChangeReason(kind, postID, subject, body string) string {
	var sb strings.Builder

	if kind == "" {
		kind = ChangeEdit
	}
	sb.WriteString(kind)
	if postID != "" {
		sb.WriteString("(")
		sb.WriteString(postID)
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(subject)

	if body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(body))
	}

	sb.WriteString("\n\n")
	sb.WriteString(Footer)
	return sb.String()
}

// AppendFooter appends the footer to a free-form message if not present.
func AppendFooter(msg string) string {
	if strings.Contains(msg, Footer) {
		return msg
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	if !strings.HasSuffix(msg, "\n\n") {
		msg += "\n"
	}
	return msg + Footer
}

// WithChangeReason attaches a revision message to ctx for versioned stores.
func WithChangeReason(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, core.ChangeReasonKey, msg)
}
