package validation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Skryldev/gltf-importer/gltf"
)

//go:embed schema/gltf.schema.json
var schemaJSON []byte

const schemaURL = "https://gltf-importer.local/schema/gltf.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("validation: schema load failed: %w", err)
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("validation: schema compile failed: %w", err)
	}
	return s, nil
})

// Complete runs every Minimal check, then the semantic range checks and the
// glTF JSON schema rules against raw, the bytes doc was parsed from. A nil raw
// skips the schema pass; raw that is not strict JSON is itself a violation.
func Complete(doc *gltf.Document, raw []byte) []Violation {
	c := &collector{}
	walkMinimal(c, doc)
	walkSemantic(c, doc)
	c.out = append(c.out, schemaViolations(raw)...)
	return dedupe(c.out)
}

// ── Semantic rules ────────────────────────────────────────────────────────────

func walkSemantic(c *collector, doc *gltf.Document) {
	for i, n := range doc.Nodes {
		if n.Matrix != nil && (n.Translation != nil || n.Rotation != nil || n.Scale != nil) {
			c.report(Path("nodes").Index(i).Field("matrix"), Invalid, "matrix and TRS properties are mutually exclusive")
		}
	}

	for i, v := range doc.BufferViews {
		if v.Buffer < 0 || v.Buffer >= len(doc.Buffers) {
			continue
		}
		size := doc.Buffers[v.Buffer].ByteLength
		if size <= 0 || v.ByteOffset < 0 || v.ByteLength < 0 {
			continue
		}
		if v.ByteOffset > size || v.ByteLength > size-v.ByteOffset {
			c.report(Path("bufferViews").Index(i).Field("byteLength"), Invalid,
				"offset %d and length %d exceed buffer %d of %d bytes", v.ByteOffset, v.ByteLength, v.Buffer, size)
		}
	}

	for i, a := range doc.Accessors {
		if a.BufferView == nil || *a.BufferView < 0 || *a.BufferView >= len(doc.BufferViews) || a.Count <= 0 {
			continue
		}
		elem := gltf.ComponentSize(a.ComponentType) * gltf.ComponentCount(a.Type)
		if elem == 0 {
			continue
		}
		view := doc.BufferViews[*a.BufferView]
		stride := elem
		if view.ByteStride != nil && *view.ByteStride > 0 {
			stride = *view.ByteStride
		}
		// avail-elem bounds the offset of the last element; dividing by the
		// stride keeps large counts from overflowing.
		avail := view.ByteLength - a.ByteOffset
		if a.ByteOffset < 0 || avail < elem || (a.Count-1) > (avail-elem)/stride {
			c.report(Path("accessors").Index(i).Field("count"), Invalid,
				"%d elements of stride %d from offset %d exceed bufferView %d of %d bytes",
				a.Count, stride, a.ByteOffset, *a.BufferView, view.ByteLength)
		}
	}

	used := make(map[string]bool, len(doc.ExtensionsUsed))
	for _, ext := range doc.ExtensionsUsed {
		used[ext] = true
	}
	for i, ext := range doc.ExtensionsRequired {
		if !used[ext] {
			c.report(Path("extensionsRequired").Index(i), Invalid, "%q is not listed in extensionsUsed", ext)
		}
	}
}

// ── Schema rules ──────────────────────────────────────────────────────────────

func schemaViolations(raw []byte) []Violation {
	if len(raw) == 0 {
		return nil
	}
	schema, err := compiledSchema()
	if err != nil {
		return []Violation{{Kind: Invalid, Message: err.Error()}}
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return []Violation{{Kind: Invalid, Message: fmt.Sprintf("schema rules not applied, document is not strict JSON: %v", err)}}
	}
	err = schema.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Violation{{Kind: Invalid, Message: err.Error()}}
	}

	var out []Violation
	flatten(ve, &out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// flatten collects the leaf causes of a schema error tree.
func flatten(ve *jsonschema.ValidationError, out *[]Violation) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			flatten(cause, out)
		}
		return
	}
	p := FromPointer(ve.InstanceLocation)
	if strings.HasSuffix(ve.KeywordLocation, "/required") {
		for _, name := range missingProperties(ve.Message) {
			*out = append(*out, Violation{Path: p.Field(name), Kind: Missing})
		}
		return
	}
	*out = append(*out, Violation{Path: p, Kind: Invalid, Message: ve.Message})
}

// missingProperties extracts property names from a message such as
// "missing properties: 'byteLength', 'uri'".
func missingProperties(msg string) []string {
	_, list, ok := strings.Cut(msg, ":")
	if !ok {
		return nil
	}
	var names []string
	for _, part := range strings.Split(list, ",") {
		if name := strings.Trim(strings.TrimSpace(part), `'"`); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// dedupe drops exact repeats. A violation without a message is also dropped
// when another at the same path and kind explains it; the schema reports
// missing properties bare while Minimal reports the same field with detail.
func dedupe(in []Violation) []Violation {
	type loc struct {
		path Path
		kind Kind
	}
	explained := make(map[loc]bool, len(in))
	for _, v := range in {
		if v.Message != "" {
			explained[loc{v.Path, v.Kind}] = true
		}
	}
	seen := make(map[Violation]bool, len(in))
	out := make([]Violation, 0, len(in))
	for _, v := range in {
		if seen[v] || (v.Message == "" && explained[loc{v.Path, v.Kind}]) {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
