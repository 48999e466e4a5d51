package render

import (
	"context"
	"html/template"
	"strings"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/schema"
)

var paragraphTemplate = template.Must(template.New("paragraph").Parse(
	`<p class="{{.Class}}"` +
		`{{if or .Align .Background .Color}} style="` +
		`{{if .Align}}text-align:{{.Align}};{{end}}` +
		`{{if .Background}}background-color:{{.Background}};{{end}}` +
		`{{if .Color}}color:{{.Color}};{{end}}"{{end}}>` +
		`{{.Content}}</p>`,
))

// ParagraphProjector renders a styled rich text paragraph from attributes.
type ParagraphProjector struct {
	ContentKey    string
	AlignKey      string
	BackgroundKey string
	ColorKey      string
}

// DefaultParagraph uses the attribute keys of the built-in paragraph block.
var DefaultParagraph = ParagraphProjector{ContentKey: "content", AlignKey: "align", BackgroundKey: "backgroundColor", ColorKey: "textColor"}

func (p ParagraphProjector) Project(ctx context.Context, env Env, block schema.Block, scope core.Scope) (string, error) {
	vals := make(map[string]string, 4)
	for _, key := range []string{p.ContentKey, p.AlignKey, p.BackgroundKey, p.ColorKey} {
		s, err := text(ctx, env, block, scope, key)
		if err != nil {
			return "", err
		}
		vals[key] = strings.TrimSpace(s)
	}

	align := vals[p.AlignKey]
	if align == "none" {
		align = ""
	}

	var buf strings.Builder
	err := paragraphTemplate.Execute(&buf, struct {
		Class      string
		Align      string
		Background string
		Color      string
		Content    template.HTML
	}{WrapperClass(block.Name), align, vals[p.BackgroundKey], vals[p.ColorKey], richHTML(vals[p.ContentKey])})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
