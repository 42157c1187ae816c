package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
	"github.com/Skryldev/gltf-importer/utils"
)

// Codec identifies a compression format by its frame magic.
type Codec int

const (
	CodecNone Codec = iota
	CodecGzip
	CodecZstd
	CodecLZ4
)

func (c Codec) String() string {
	switch c {
	case CodecGzip:
		return "gzip"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	}
	return "none"
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// zstdDecoder is shared by every Decompress source. DecodeAll is safe for
// concurrent use.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("source: creating zstd decoder: %v", err))
	}
}

// Sniff returns the codec whose magic prefixes data.
func Sniff(data []byte) Codec {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CodecZstd
	case bytes.HasPrefix(data, lz4Magic):
		return CodecLZ4
	case bytes.HasPrefix(data, gzipMagic):
		return CodecGzip
	}
	return CodecNone
}

// codecForName maps a compressed file suffix to its codec.
func codecForName(uri string) Codec {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	switch strings.ToLower(path.Ext(uri)) {
	case ".gz", ".gzip":
		return CodecGzip
	case ".zst", ".zstd":
		return CodecZstd
	case ".lz4":
		return CodecLZ4
	}
	return CodecNone
}

// Decompress transparently inflates compressed payloads of the wrapped
// source. The root is inflated whenever it starts with a known frame magic,
// since neither a glTF JSON document nor a GLB container can. External
// resources are inflated only when their URI carries a compression suffix
// and the magic agrees, so a PNG named "x.png" is never touched.
type Decompress struct {
	src      core.Source
	maxBytes int64
}

// NewDecompress wraps src. maxBytes bounds the inflated size; 0 disables it.
func NewDecompress(src core.Source, maxBytes int64) *Decompress {
	return &Decompress{src: src, maxBytes: maxBytes}
}

func (d *Decompress) FetchRoot(ctx context.Context) ([]byte, error) {
	data, err := d.src.FetchRoot(ctx)
	if err != nil {
		return nil, err
	}
	codec := Sniff(data)
	if codec == CodecNone {
		return data, nil
	}
	return d.inflate(ctx, codec, data)
}

func (d *Decompress) FetchExternal(ctx context.Context, uri string) ([]byte, error) {
	data, err := d.src.FetchExternal(ctx, uri)
	if err != nil {
		return nil, err
	}
	codec := codecForName(uri)
	if codec == CodecNone || Sniff(data) != codec {
		return data, nil
	}
	return d.inflate(ctx, codec, data)
}

func (d *Decompress) inflate(ctx context.Context, codec Codec, data []byte) ([]byte, error) {
	var r io.Reader
	switch codec {
	case CodecZstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		if d.maxBytes > 0 && int64(len(out)) > d.maxBytes {
			return nil, fmt.Errorf("zstd: %w", apperrors.ErrResourceTooLarge)
		}
		return out, nil
	case CodecGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	case CodecLZ4:
		r = lz4.NewReader(bytes.NewReader(data))
	default:
		return data, nil
	}
	out, err := utils.ReadAll(ctx, r, d.maxBytes)
	if err != nil {
		if errors.Is(err, utils.ErrLimitExceeded) {
			err = apperrors.ErrResourceTooLarge
		}
		return nil, fmt.Errorf("%s: %w", codec, err)
	}
	return out, nil
}
