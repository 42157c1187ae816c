package gltf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinimalDocument(t *testing.T) {
	doc, err := Parse([]byte(`{"asset": {"version": "2.0", "generator": "unit"}, "scene": 0, "scenes": [{"nodes": []}]}`))
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Asset.Version)
	assert.Equal(t, "unit", doc.Asset.Generator)
	require.NotNil(t, doc.Scene)
	assert.Equal(t, 0, *doc.Scene)
}

func TestParseKeepsAbsentFieldsNil(t *testing.T) {
	doc, err := Parse([]byte(`{"asset": {"version": "2.0"}, "images": [{"uri": "a.png"}]}`))
	require.NoError(t, err)
	require.Len(t, doc.Images, 1)
	assert.Nil(t, doc.Images[0].BufferView)
	assert.Nil(t, doc.Scene)
}

func TestParseSyntaxErrorLocation(t *testing.T) {
	_, err := Parse([]byte("{\n  \"asset\": {\"version\": \"2.0\"},\n  ]\n}"))
	require.Error(t, err)

	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 3, se.Line)
	assert.Equal(t, 3, se.Column)
	assert.Positive(t, se.Offset)
	assert.Contains(t, se.Error(), "line 3, column 3")
}

func TestParseTypeError(t *testing.T) {
	_, err := Parse([]byte(`{"asset": {"version": 2}}`))
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Msg, "asset.version")
	assert.Equal(t, 1, se.Line)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse([]byte("  \n"))
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "empty document", se.Error())
}

func TestParseLenientAcceptsComments(t *testing.T) {
	raw := []byte(`{
		// exported by hand
		"asset": {"version": "2.0",},
	}`)
	_, err := Parse(raw)
	require.Error(t, err)

	doc, err := ParseLenient(raw)
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Asset.Version)
}

func TestComponentSizes(t *testing.T) {
	assert.Equal(t, 4, ComponentSize(ComponentFloat))
	assert.Equal(t, 2, ComponentSize(ComponentUnsignedShort))
	assert.Equal(t, 0, ComponentSize(1))
	assert.Equal(t, 16, ComponentCount("MAT4"))
	assert.Equal(t, 0, ComponentCount("VEC5"))
}

func TestRootWrapsDocument(t *testing.T) {
	doc := &Document{Asset: Asset{Version: "2.0"}}
	assert.Same(t, doc, NewRoot(doc).Document())
}
