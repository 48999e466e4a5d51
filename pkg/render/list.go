package render

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/schema"
)

// EmptyNotice is emitted when a list block has nothing to show.
const EmptyNotice = "Sorry. No fields available here!"

var listTemplate = template.Must(template.New("list").Parse(
	`<div class="{{.Class}}"><h3>{{.Title}}</h3><ul>{{range .Lines}}<li>{{.Label}}: {{.Value}}</li>{{end}}</ul></div>`,
))

var emptyTemplate = template.Must(template.New("empty").Parse(`<strong>{{.}}</strong>`))

type listLine struct {
	Label string
	Value any
}

// ListProjector renders a title followed by one "label: value" line per
// non-empty field, in schema order. Title-role fields override the host title.
type ListProjector struct{}

func (ListProjector) Project(ctx context.Context, env Env, block schema.Block, scope core.Scope) (string, error) {
	var title string
	var lines []listLine

	for _, f := range block.Fields {
		v, err := env.Reader.Get(ctx, block.Name, scope, f.Key)
		if err != nil {
			env.Warn("field skipped", "block", block.Name, "key", f.Key, "error", err)
			continue
		}
		if core.IsEmpty(v) {
			continue
		}

		value, err := display(f, v)
		if err != nil {
			env.Warn("field skipped", "block", block.Name, "key", f.Key, "error", err)
			continue
		}

		if f.Role == core.RoleTitle {
			if title == "" {
				title = fmt.Sprint(value)
			}
			continue
		}
		label := f.Label
		if label == "" {
			label = f.Key
		}
		lines = append(lines, listLine{Label: label, Value: value})
	}

	var buf strings.Builder
	if len(lines) == 0 {
		if err := emptyTemplate.Execute(&buf, EmptyNotice); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	if title == "" && env.Title != nil {
		title = env.Title(ctx, scope.PostID)
	}

	err := listTemplate.Execute(&buf, struct {
		Class string
		Title string
		Lines []listLine
	}{WrapperClass(block.Name), title, lines})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// display converts a stored value into what a list line shows.
func display(f core.FieldSchema, v any) (any, error) {
	switch f.Type {
	case core.TypeDate:
		s, _ := v.(string)
		return FormatDate(f.Key, s)
	case core.TypeBoolean:
		return "Yes", nil
	case core.TypeRichText:
		if s, ok := v.(string); ok {
			return richHTML(s), nil
		}
	}
	return v, nil
}
