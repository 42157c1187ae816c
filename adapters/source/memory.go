package source

import (
	"context"
	"fmt"

	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// Memory serves an asset held entirely in memory. Files is keyed by the
// cleaned relative path a document URI resolves to ("textures/a.png").
type Memory struct {
	Root  []byte
	Files map[string][]byte
}

// NewMemory creates a Memory source.
func NewMemory(root []byte, files map[string][]byte) *Memory {
	return &Memory{Root: root, Files: files}
}

func (m *Memory) FetchRoot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Root == nil {
		return nil, fmt.Errorf("memory: %w: root", apperrors.ErrNotFound)
	}
	return m.Root, nil
}

func (m *Memory) FetchExternal(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if IsDataURI(uri) {
		data, _, err := DecodeDataURI(uri)
		return data, err
	}
	key, err := relativePath(uri)
	if err != nil {
		return nil, err
	}
	data, ok := m.Files[key]
	if !ok {
		if data, ok = m.Files[uri]; !ok {
			return nil, fmt.Errorf("memory: %w: %s", apperrors.ErrNotFound, uri)
		}
	}
	return data, nil
}
