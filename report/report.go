// Package report turns an import outcome into a serialisable summary.
package report

import (
	"encoding/hex"
	"errors"
	"sort"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// Report is the outcome of one import: exactly one of Asset and Error is set.
type Report struct {
	Location string        `json:"location" yaml:"location" cbor:"location"`
	Asset    *AssetSummary `json:"asset,omitempty" yaml:"asset,omitempty" cbor:"asset,omitempty"`
	Error    *ErrorSummary `json:"error,omitempty" yaml:"error,omitempty" cbor:"error,omitempty"`
}

// AssetSummary describes a successfully imported asset.
type AssetSummary struct {
	ImportID           string           `json:"import_id" yaml:"import_id" cbor:"import_id"`
	Container          string           `json:"container" yaml:"container" cbor:"container"`
	Version            string           `json:"version" yaml:"version" cbor:"version"`
	MinVersion         string           `json:"min_version,omitempty" yaml:"min_version,omitempty" cbor:"min_version,omitempty"`
	Generator          string           `json:"generator,omitempty" yaml:"generator,omitempty" cbor:"generator,omitempty"`
	Copyright          string           `json:"copyright,omitempty" yaml:"copyright,omitempty" cbor:"copyright,omitempty"`
	Counts             Counts           `json:"counts" yaml:"counts" cbor:"counts"`
	ExtensionsUsed     []string         `json:"extensions_used,omitempty" yaml:"extensions_used,omitempty" cbor:"extensions_used,omitempty"`
	ExtensionsRequired []string         `json:"extensions_required,omitempty" yaml:"extensions_required,omitempty" cbor:"extensions_required,omitempty"`
	Buffers            []BufferSummary  `json:"buffers" yaml:"buffers" cbor:"buffers"`
	Images             []ImageSummary   `json:"images" yaml:"images" cbor:"images"`
	Fetches            int64            `json:"fetches" yaml:"fetches" cbor:"fetches"`
	DurationMs         int64            `json:"duration_ms" yaml:"duration_ms" cbor:"duration_ms"`
	StageMs            map[string]int64 `json:"stage_ms,omitempty" yaml:"stage_ms,omitempty" cbor:"stage_ms,omitempty"`
}

// Counts are the sizes of the top-level document arrays.
type Counts struct {
	Scenes      int `json:"scenes" yaml:"scenes" cbor:"scenes"`
	Nodes       int `json:"nodes" yaml:"nodes" cbor:"nodes"`
	Meshes      int `json:"meshes" yaml:"meshes" cbor:"meshes"`
	Materials   int `json:"materials" yaml:"materials" cbor:"materials"`
	Textures    int `json:"textures" yaml:"textures" cbor:"textures"`
	Images      int `json:"images" yaml:"images" cbor:"images"`
	Accessors   int `json:"accessors" yaml:"accessors" cbor:"accessors"`
	BufferViews int `json:"buffer_views" yaml:"buffer_views" cbor:"buffer_views"`
	Buffers     int `json:"buffers" yaml:"buffers" cbor:"buffers"`
	Animations  int `json:"animations" yaml:"animations" cbor:"animations"`
	Skins       int `json:"skins" yaml:"skins" cbor:"skins"`
	Cameras     int `json:"cameras" yaml:"cameras" cbor:"cameras"`
}

// BufferSummary describes one resolved buffer.
type BufferSummary struct {
	Index    int    `json:"index" yaml:"index" cbor:"index"`
	URI      string `json:"uri,omitempty" yaml:"uri,omitempty" cbor:"uri,omitempty"`
	Embedded bool   `json:"embedded" yaml:"embedded" cbor:"embedded"`
	Bytes    int    `json:"bytes" yaml:"bytes" cbor:"bytes"`
	BLAKE3   string `json:"blake3" yaml:"blake3" cbor:"blake3"`
}

// ImageSummary describes one decoded image.
type ImageSummary struct {
	Index    int    `json:"index" yaml:"index" cbor:"index"`
	URI      string `json:"uri,omitempty" yaml:"uri,omitempty" cbor:"uri,omitempty"`
	Borrowed bool   `json:"borrowed" yaml:"borrowed" cbor:"borrowed"`
	Format   string `json:"format" yaml:"format" cbor:"format"`
	Width    int    `json:"width" yaml:"width" cbor:"width"`
	Height   int    `json:"height" yaml:"height" cbor:"height"`
	HasAlpha bool   `json:"has_alpha" yaml:"has_alpha" cbor:"has_alpha"`
	Bytes    int64  `json:"bytes" yaml:"bytes" cbor:"bytes"`
}

// ErrorSummary describes a failed import.
type ErrorSummary struct {
	Kind        string      `json:"kind" yaml:"kind" cbor:"kind"`
	Description string      `json:"description" yaml:"description" cbor:"description"`
	Op          string      `json:"op,omitempty" yaml:"op,omitempty" cbor:"op,omitempty"`
	Message     string      `json:"message" yaml:"message" cbor:"message"`
	Cause       string      `json:"cause,omitempty" yaml:"cause,omitempty" cbor:"cause,omitempty"`
	Violations  []Violation `json:"violations,omitempty" yaml:"violations,omitempty" cbor:"violations,omitempty"`
}

// Violation is one validation finding.
type Violation struct {
	Path    string `json:"path" yaml:"path" cbor:"path"`
	Kind    string `json:"kind" yaml:"kind" cbor:"kind"`
	Message string `json:"message,omitempty" yaml:"message,omitempty" cbor:"message,omitempty"`
}

// New builds the report for an import of location that ended with res or err.
func New(location string, res *core.Result, err error) *Report {
	r := &Report{Location: location}
	if err != nil {
		r.Error = Error(err)
		return r
	}
	if res != nil {
		r.Asset = Asset(res)
	}
	return r
}

// Asset summarises a successful result.
func Asset(res *core.Result) *AssetSummary {
	s := &AssetSummary{
		ImportID:   res.ID,
		Container:  string(res.Container),
		Fetches:    res.Fetches,
		DurationMs: res.Duration.Milliseconds(),
		Buffers:    make([]BufferSummary, 0, len(res.Buffers)),
		Images:     make([]ImageSummary, 0, len(res.Images)),
	}
	if res.Root != nil && res.Root.Document() != nil {
		doc := res.Root.Document()
		s.Version = doc.Asset.Version
		s.MinVersion = doc.Asset.MinVersion
		s.Generator = doc.Asset.Generator
		s.Copyright = doc.Asset.Copyright
		s.ExtensionsUsed = doc.ExtensionsUsed
		s.ExtensionsRequired = doc.ExtensionsRequired
		s.Counts = Counts{
			Scenes:      len(doc.Scenes),
			Nodes:       len(doc.Nodes),
			Meshes:      len(doc.Meshes),
			Materials:   len(doc.Materials),
			Textures:    len(doc.Textures),
			Images:      len(doc.Images),
			Accessors:   len(doc.Accessors),
			BufferViews: len(doc.BufferViews),
			Buffers:     len(doc.Buffers),
			Animations:  len(doc.Animations),
			Skins:       len(doc.Skins),
			Cameras:     len(doc.Cameras),
		}
	}
	for _, b := range res.Buffers {
		s.Buffers = append(s.Buffers, BufferSummary{
			Index:    b.Index,
			URI:      b.URI,
			Embedded: b.Embedded,
			Bytes:    len(b.Data),
			BLAKE3:   hex.EncodeToString(b.Digest[:]),
		})
	}
	for _, img := range res.Images {
		if img == nil {
			continue
		}
		s.Images = append(s.Images, ImageSummary{
			Index:    img.Index,
			URI:      img.URI,
			Borrowed: img.Borrowed,
			Format:   string(img.Format),
			Width:    img.Meta.Width,
			Height:   img.Meta.Height,
			HasAlpha: img.Meta.HasAlpha,
			Bytes:    img.Meta.SizeBytes,
		})
	}
	if len(res.StageTimings) > 0 {
		s.StageMs = make(map[string]int64, len(res.StageTimings))
		for stage, d := range res.StageTimings {
			s.StageMs[stage] = d.Milliseconds()
		}
	}
	return s
}

// Error summarises a failed import. Errors outside the importer's taxonomy
// are reported with an empty kind.
func Error(err error) *ErrorSummary {
	s := &ErrorSummary{Message: err.Error()}
	var ie *apperrors.ImportError
	if !errors.As(err, &ie) {
		return s
	}
	s.Kind = string(ie.Kind)
	s.Description = ie.Description()
	s.Op = ie.Op
	if cause := ie.Cause(); cause != nil {
		s.Cause = cause.Error()
	}
	for _, v := range ie.Violations {
		s.Violations = append(s.Violations, Violation{Path: v.Path.String(), Kind: v.Kind.String(), Message: v.Message})
	}
	return s
}

// StageNames returns the stages of s in a stable order.
func (s *AssetSummary) StageNames() []string {
	names := make([]string, 0, len(s.StageMs))
	for n := range s.StageMs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
