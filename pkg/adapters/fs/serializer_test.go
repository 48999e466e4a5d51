package fs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/metabind/pkg/core"
)

func TestPostRoundTrip(t *testing.T) {
	in := &post{
		ID: "42",
		Meta: core.Metadata{
			"_meta_fields_book_title": "Dune",
			"_meta_fields_book_date":  "1965-08-01",
			"featured":                true,
			"notes":                   "a\n---\nb",
		},
		Blocks: []core.BlockInstance{
			{ID: "b1", Type: "meta-fields/metadata-block", PostID: "42", Attributes: core.Metadata{}},
			{ID: "b2", Type: "tutorial/post-meta-testimonial", PostID: "42", Attributes: core.Metadata{"authorName": "Ann"}},
		},
	}

	data, err := serializePost(in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\n"))

	out, err := parsePost(strings.NewReader(string(data)), "42")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParsePost_NoFrontmatter(t *testing.T) {
	out, err := parsePost(strings.NewReader(`<!-- wp:demo/x {"metadata":{"id":"x1"}} /-->`+"\n"), "7")
	require.NoError(t, err)
	assert.Empty(t, out.Meta)
	require.Len(t, out.Blocks, 1)
	assert.Equal(t, "x1", out.Blocks[0].ID)
}

func TestParsePost_EmptyFrontmatter(t *testing.T) {
	out, err := parsePost(strings.NewReader("---\n---\n"), "7")
	require.NoError(t, err)
	assert.NotNil(t, out.Meta)
	assert.Empty(t, out.Blocks)
}

func TestParsePost_CRLF(t *testing.T) {
	out, err := parsePost(strings.NewReader("---\r\ntitle: Hi\r\n---\r\n"), "7")
	require.NoError(t, err)
	assert.Equal(t, "Hi", out.Meta["title"])
}

func TestParsePost_Unclosed(t *testing.T) {
	_, err := parsePost(strings.NewReader("---\ntitle: x\n"), "7")
	assert.Error(t, err)
}

func TestParsePost_DateStaysString(t *testing.T) {
	out, err := parsePost(strings.NewReader("---\nd: 1965-08-01\n---\n"), "7")
	require.NoError(t, err)
	assert.Equal(t, "1965-08-01", out.Meta["d"])
}
