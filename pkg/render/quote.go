package render

import (
	"context"
	"html/template"
	"strings"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/schema"
)

var quoteTemplate = template.Must(template.New("quote").Parse(
	`<blockquote class="{{.Class}}">` +
		`{{if .Body}}<p>{{.Body}}</p>{{end}}` +
		`{{if or .Author .URL}}<cite>` +
		`{{if .Author}}<span>{{.Author}}</span>{{end}}` +
		`{{if and .Author .URL}}<br>{{end}}` +
		`{{if .URL}}<span><a href="{{.URL}}">{{.URL}}</a></span>{{end}}` +
		`</cite>{{end}}` +
		`</blockquote>`,
))

// QuoteProjector renders a testimonial: a shared quote body with a per-placement citation.
type QuoteProjector struct {
	BodyKey   string
	AuthorKey string
	URLKey    string
}

// DefaultQuote uses the field keys of the built-in testimonial block.
var DefaultQuote = QuoteProjector{BodyKey: "testimonial", AuthorKey: "authorName", URLKey: "authorURL"}

func (q QuoteProjector) Project(ctx context.Context, env Env, block schema.Block, scope core.Scope) (string, error) {
	body, err := text(ctx, env, block, scope, q.BodyKey)
	if err != nil {
		return "", err
	}
	author, err := text(ctx, env, block, scope, q.AuthorKey)
	if err != nil {
		return "", err
	}
	url, err := text(ctx, env, block, scope, q.URLKey)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	err = quoteTemplate.Execute(&buf, struct {
		Class  string
		Body   template.HTML
		Author string
		URL    string
	}{WrapperClass(block.Name), richHTML(body), strings.TrimSpace(author), strings.TrimSpace(url)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
