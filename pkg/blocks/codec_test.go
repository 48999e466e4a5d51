package blocks_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/metabind/pkg/blocks"
	"github.com/aretw0/metabind/pkg/core"
)

func TestMarshal(t *testing.T) {
	line, err := blocks.Marshal(core.BlockInstance{
		ID:         "b1",
		Type:       "tutorial/post-meta-testimonial",
		Attributes: core.Metadata{"authorName": "Ann"},
	})
	require.NoError(t, err)
	assert.Equal(t, `<!-- wp:tutorial/post-meta-testimonial {"authorName":"Ann","metadata":{"id":"b1"}} /-->`, line)
}

func TestMarshal_EscapesCommentClose(t *testing.T) {
	line, err := blocks.Marshal(core.BlockInstance{
		ID:         "b1",
		Type:       "demo/x",
		Attributes: core.Metadata{"content": "a --> b"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(line, "-->"))

	got, err := blocks.Parse(line, "p", nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a --> b", got[0].Attributes["content"])
}

func TestParse_RoundTrip(t *testing.T) {
	in := []core.BlockInstance{
		{ID: "a", Type: "meta-fields/metadata-block", PostID: "7", Attributes: core.Metadata{}},
		{ID: "b", Type: "ka-example-block/ka-example-block", PostID: "7", Attributes: core.Metadata{
			"content": "<b>hi</b>",
			"align":   "center",
		}},
	}
	content, err := blocks.Serialize(in)
	require.NoError(t, err)

	out, err := blocks.Parse(content, "7", nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParse_MixedContent(t *testing.T) {
	content := `<p>intro</p>
<!-- wp:paragraph -->
<p>core block</p>
<!-- /wp:paragraph -->
<!-- wp:demo/toggle {"featured":true,"metadata":{"id":"t1"}} /-->`

	out, err := blocks.Parse(content, "9", func() string { return "gen" })
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "core/paragraph", out[0].Type)
	assert.Equal(t, "gen", out[0].ID)
	assert.Equal(t, "demo/toggle", out[1].Type)
	assert.Equal(t, "t1", out[1].ID)
	assert.Equal(t, true, out[1].Attributes["featured"])
	assert.Equal(t, "9", out[1].PostID)
}

func TestParse_SkipsAnonymousWithoutGenerator(t *testing.T) {
	out, err := blocks.Parse(`<!-- wp:demo/x {"a":"b"} /-->`, "1", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := blocks.Parse(`<!-- wp:demo/x {"a": } /-->`, "1", nil)
	assert.Error(t, err)
}
