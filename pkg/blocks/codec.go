// Package blocks reads and writes block placements in the delimiter comment
// form used in post content:
//
//	<!-- wp:meta-fields/metadata-block {"metadata":{"id":"b1"}} /-->
//
// Attribute values are carried in the JSON object. The placement ID is kept
// under the "metadata" attribute so it survives a round trip through content.
package blocks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/metabind/pkg/core"
)

const (
	metadataAttr = "metadata"
	coreNS       = "core/"
)

// opener matches `<!-- wp:name {json} /-->` and `<!-- wp:name {json} -->`.
var opener = regexp.MustCompile(`<!--\s+wp:([a-z][a-z0-9_-]*(?:/[a-z][a-z0-9_-]*)?)\s+(\{.*?\}\s+)?(/)?-->`)

// Serialize writes placements in order, one per line.
func Serialize(instances []core.BlockInstance) (string, error) {
	var b strings.Builder
	for _, inst := range instances {
		line, err := Marshal(inst)
		if err != nil {
			return "", err
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Marshal writes one placement as a self-closing block comment.
func Marshal(inst core.BlockInstance) (string, error) {
	attrs := make(map[string]any, len(inst.Attributes)+1)
	for k, v := range inst.Attributes {
		if k == metadataAttr {
			continue
		}
		attrs[k] = v
	}
	attrs[metadataAttr] = map[string]any{"id": inst.ID}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(attrs); err != nil {
		return "", fmt.Errorf("block %s: %w", inst.ID, err)
	}
	body := strings.TrimSpace(buf.String())
	// "--" would close the comment early.
	body = strings.ReplaceAll(body, "--", `\u002d\u002d`)

	name := strings.TrimPrefix(inst.Type, coreNS)
	return fmt.Sprintf("<!-- wp:%s %s /-->", name, body), nil
}

// Parse reads every placement found in content and assigns them to postID.
// Closing delimiters and markup between blocks are ignored. A block without
// an ID gets one from newID when it is non-nil and is skipped otherwise.
func Parse(content, postID string, newID func() string) ([]core.BlockInstance, error) {
	var out []core.BlockInstance
	for _, m := range opener.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if !strings.Contains(name, "/") {
			name = coreNS + name
		}

		attrs := core.Metadata{}
		if raw := strings.TrimSpace(m[2]); raw != "" {
			if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
				return nil, fmt.Errorf("block %s: invalid attributes: %w", name, err)
			}
		}

		id := idOf(attrs)
		delete(attrs, metadataAttr)
		if id == "" {
			if newID == nil {
				continue
			}
			id = newID()
		}

		out = append(out, core.BlockInstance{ID: id, Type: name, PostID: postID, Attributes: attrs})
	}
	return out, nil
}

func idOf(attrs core.Metadata) string {
	md, ok := attrs[metadataAttr].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := md["id"].(string)
	return id
}
