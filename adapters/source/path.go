package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/Skryldev/gltf-importer/errors"
	"github.com/Skryldev/gltf-importer/utils"
)

// Path reads a .gltf or .glb file from the local file system. External URIs
// are resolved relative to the file's directory; base64 data URIs are decoded
// in place. File system failures are reported as Io errors.
type Path struct {
	path     string
	dir      string
	maxBytes int64
}

// NewPath creates a Path source for the file at p.
func NewPath(p string) *Path {
	return &Path{path: p, dir: filepath.Dir(p)}
}

// WithLimit rejects files larger than n bytes. 0 disables the check.
func (s *Path) WithLimit(n int64) *Path {
	s.maxBytes = n
	return s
}

// Dir returns the directory external URIs are resolved against.
func (s *Path) Dir() string { return s.dir }

func (s *Path) FetchRoot(ctx context.Context) ([]byte, error) {
	return s.read(ctx, "path.root", s.path)
}

func (s *Path) FetchExternal(ctx context.Context, uri string) ([]byte, error) {
	if IsDataURI(uri) {
		data, _, err := DecodeDataURI(uri)
		if err != nil {
			return nil, apperrors.New(apperrors.KindIo, "path.data_uri", err)
		}
		return data, nil
	}
	if scheme, ok := hasScheme(uri); ok && scheme != "file" {
		return nil, apperrors.New(apperrors.KindIo, "path.external",
			fmt.Errorf("%w: unsupported scheme %q in %q", apperrors.ErrInvalidURI, scheme, uri))
	}
	rel, err := relativePath(trimFileScheme(uri))
	if err != nil {
		return nil, apperrors.New(apperrors.KindIo, "path.external", err)
	}
	full := filepath.FromSlash(rel)
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.dir, full)
	}
	return s.read(ctx, "path.external", full)
}

func (s *Path) read(ctx context.Context, op, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.New(apperrors.KindIo, op, err)
	}
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", apperrors.ErrNotFound, err)
		}
		return nil, apperrors.New(apperrors.KindIo, op, err)
	}
	defer f.Close()

	data, err := utils.ReadAll(ctx, f, s.maxBytes)
	if err != nil {
		if errors.Is(err, utils.ErrLimitExceeded) {
			err = fmt.Errorf("%s: %w", name, apperrors.ErrResourceTooLarge)
		}
		return nil, apperrors.New(apperrors.KindIo, op, err)
	}
	return data, nil
}

func trimFileScheme(uri string) string {
	if len(uri) >= 7 && (uri[:7] == "file://" || uri[:7] == "FILE://") {
		return uri[7:]
	}
	return uri
}
