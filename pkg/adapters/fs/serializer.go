package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/metabind/pkg/blocks"
	"github.com/aretw0/metabind/pkg/core"
)

// post is the in-memory form of one post document: frontmatter holds post
// meta, the body holds block placements with their attributes.
type post struct {
	ID     string
	Meta   core.Metadata
	Blocks []core.BlockInstance
}

func (p *post) index(id string) int {
	for i, b := range p.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (p *post) instanceIDs() []string {
	ids := make([]string, len(p.Blocks))
	for i, b := range p.Blocks {
		ids[i] = b.ID
	}
	return ids
}

var delimiter = []byte("---")

// parsePost reads a Markdown document with optional YAML frontmatter.
func parsePost(r io.Reader, id string) (*post, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	p := &post{ID: id, Meta: make(core.Metadata)}
	body := data

	if bytes.HasPrefix(data, append(delimiter, '\n')) {
		rest := data[len(delimiter)+1:]
		end := closingDelimiter(rest)
		if end < 0 {
			return nil, errors.New("frontmatter started but no closing delimiter found")
		}
		if err := yaml.Unmarshal(rest[:end], &p.Meta); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		if p.Meta == nil {
			p.Meta = make(core.Metadata)
		}
		body = bytes.TrimPrefix(rest[end+len(delimiter):], []byte("\n"))
	}

	p.Blocks, err = blocks.Parse(string(body), id, nil)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// closingDelimiter returns the offset of the "---" line ending the frontmatter.
func closingDelimiter(rest []byte) int {
	if bytes.HasPrefix(rest, delimiter) && (len(rest) == 3 || rest[3] == '\n') {
		return 0
	}
	offset := 0
	for {
		i := bytes.Index(rest[offset:], []byte("\n---"))
		if i < 0 {
			return -1
		}
		at := offset + i + 1
		tail := rest[at+len(delimiter):]
		if len(tail) == 0 || tail[0] == '\n' {
			return at
		}
		offset = at
	}
}

// serializePost writes the frontmatter (when there is meta) followed by the
// block placements, one comment per line.
func serializePost(p *post) ([]byte, error) {
	var buf bytes.Buffer
	if len(p.Meta) > 0 {
		buf.WriteString("---\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(p.Meta)); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		buf.WriteString("---\n")
	}

	body, err := blocks.Serialize(p.Blocks)
	if err != nil {
		return nil, err
	}
	buf.WriteString(strings.TrimLeft(body, "\n"))
	return buf.Bytes(), nil
}
