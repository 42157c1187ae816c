package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
	"github.com/Skryldev/gltf-importer/gltf"
	"github.com/Skryldev/gltf-importer/utils"
	"github.com/Skryldev/gltf-importer/validation"
)

func sampleResult() *core.Result {
	doc := &gltf.Document{
		Asset:          gltf.Asset{Version: "2.0", Generator: "unit test"},
		Nodes:          make([]gltf.Node, 3),
		Meshes:         make([]gltf.Mesh, 1),
		Images:         make([]gltf.Image, 1),
		Buffers:        make([]gltf.Buffer, 1),
		ExtensionsUsed: []string{"KHR_materials_unlit"},
	}
	data := []byte{1, 2, 3, 4}
	return &core.Result{
		ID:        "imp-1",
		Root:      gltf.NewRoot(doc),
		Container: core.ContainerGLB,
		Buffers:   []core.Resource{{Index: 0, Embedded: true, Data: data, Digest: utils.Digest(data)}},
		Images: []*core.Image{{
			Index: 0, Borrowed: true, Format: core.FormatPNG,
			Meta: core.Metadata{Width: 4, Height: 2, HasAlpha: true, SizeBytes: 68},
		}},
		Duration:     12 * time.Millisecond,
		StageTimings: map[string]time.Duration{"parse": time.Millisecond, "decode": 5 * time.Millisecond},
	}
}

func TestAssetSummary(t *testing.T) {
	r := New("car.glb", sampleResult(), nil)
	require.NotNil(t, r.Asset)
	assert.Nil(t, r.Error)

	a := r.Asset
	assert.Equal(t, "glb", a.Container)
	assert.Equal(t, "2.0", a.Version)
	assert.Equal(t, 3, a.Counts.Nodes)
	assert.Equal(t, 1, a.Counts.Meshes)
	require.Len(t, a.Buffers, 1)
	assert.True(t, a.Buffers[0].Embedded)
	assert.Len(t, a.Buffers[0].BLAKE3, 64)
	require.Len(t, a.Images, 1)
	assert.Equal(t, "png", a.Images[0].Format)
	assert.Equal(t, []string{"decode", "parse"}, a.StageNames())
}

func TestErrorSummary(t *testing.T) {
	err := apperrors.Validation("validate", []validation.Violation{
		{Path: "images[0].uri", Kind: validation.Missing, Message: "image needs a uri or a bufferView"},
	})
	r := New("bad.gltf", nil, err)
	require.NotNil(t, r.Error)
	assert.Nil(t, r.Asset)
	assert.Equal(t, "validation", r.Error.Kind)
	assert.Equal(t, "asset failed validation tests", r.Error.Description)
	require.Len(t, r.Error.Violations, 1)
	assert.Equal(t, "images[0].uri", r.Error.Violations[0].Path)
	assert.Empty(t, r.Error.Cause)

	ioErr := Error(apperrors.New(apperrors.KindIo, "path.root", errors.New("no such file")))
	assert.Equal(t, "io", ioErr.Kind)
	assert.Equal(t, "no such file", ioErr.Cause)

	plain := Error(errors.New("outside"))
	assert.Empty(t, plain.Kind)
	assert.Equal(t, "outside", plain.Message)
}

func TestWriteFormats(t *testing.T) {
	r := New("car.glb", sampleResult(), nil)

	var js bytes.Buffer
	require.NoError(t, Write(&js, r, FormatJSON))
	var fromJSON Report
	require.NoError(t, json.Unmarshal(js.Bytes(), &fromJSON))
	assert.Equal(t, r.Asset.Buffers, fromJSON.Asset.Buffers)

	var ym bytes.Buffer
	require.NoError(t, Write(&ym, r, FormatYAML))
	var fromYAML Report
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, r.Asset.Counts, fromYAML.Asset.Counts)

	var cb1, cb2 bytes.Buffer
	require.NoError(t, Write(&cb1, r, FormatCBOR))
	require.NoError(t, Write(&cb2, r, FormatCBOR))
	assert.Equal(t, cb1.Bytes(), cb2.Bytes(), "deterministic encoding")
	var fromCBOR Report
	require.NoError(t, cbor.Unmarshal(cb1.Bytes(), &fromCBOR))
	assert.Equal(t, r.Asset.Images, fromCBOR.Asset.Images)

	var txt bytes.Buffer
	require.NoError(t, Write(&txt, r, FormatText))
	assert.Contains(t, txt.String(), "car.glb")
	assert.Contains(t, txt.String(), "4x2 png <bufferView>")
	assert.Contains(t, txt.String(), "<glb>")
}

func TestRenderError(t *testing.T) {
	r := New("bad.gltf", nil, apperrors.Violation("validate", "nodes[2].mesh", validation.IndexOutOfBounds, "mesh index 7, have 1"))
	out := Render(r, Plain)
	assert.Contains(t, out, "[validation]")
	assert.Contains(t, out, "nodes[2].mesh")
	assert.Contains(t, out, "mesh index 7, have 1")

	styled := Render(r, Colored())
	assert.Contains(t, styled, "nodes[2].mesh")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
