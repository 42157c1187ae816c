// Package glb reads the binary glTF container: a 12-byte header followed by
// a JSON chunk and an optional BIN chunk.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
package glb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	apperrors "github.com/Skryldev/gltf-importer/errors"
)

// Magic is the ASCII prefix of every binary glTF file.
var Magic = []byte("glTF")

const (
	Version = 2

	headerSize      = 12
	chunkHeaderSize = 8

	ChunkJSON uint32 = 0x4E4F534A // "JSON"
	ChunkBIN  uint32 = 0x004E4942 // "BIN\x00"
)

var (
	errTooSmall       = errors.New("file smaller than the 12-byte header")
	errMissingJSON    = errors.New("first chunk must be JSON")
	errDuplicateBIN   = errors.New("more than one BIN chunk")
	errTruncatedChunk = errors.New("chunk extends past the end of the file")
)

// Container is a parsed binary glTF file. JSON and Bin alias the input.
type Container struct {
	Version uint32
	Length  uint32
	JSON    []byte
	Bin     []byte // nil when the file has no BIN chunk
}

// IsBinary reports whether data starts with the binary glTF magic. It
// inspects the first four bytes and nothing else.
func IsBinary(data []byte) bool {
	return bytes.HasPrefix(data, Magic)
}

// Parse splits a binary glTF file into its chunks. Every failure is a
// MalformedGlb error.
func Parse(data []byte) (*Container, error) {
	c, err := parse(data)
	if err != nil {
		return nil, apperrors.New(apperrors.KindMalformedGlb, "glb.parse", err)
	}
	return c, nil
}

func parse(data []byte) (*Container, error) {
	if len(data) < headerSize {
		return nil, errTooSmall
	}
	if !IsBinary(data) {
		return nil, fmt.Errorf("bad magic %q", data[:4])
	}
	c := &Container{
		Version: binary.LittleEndian.Uint32(data[4:8]),
		Length:  binary.LittleEndian.Uint32(data[8:12]),
	}
	if c.Version != Version {
		return nil, fmt.Errorf("unsupported container version %d", c.Version)
	}
	if int64(c.Length) > int64(len(data)) {
		return nil, fmt.Errorf("header declares %d bytes, file has %d", c.Length, len(data))
	}
	if c.Length < headerSize {
		return nil, fmt.Errorf("header declares %d bytes, less than the header itself", c.Length)
	}

	body := data[headerSize:c.Length]
	for first := true; len(body) > 0; first = false {
		if len(body) < chunkHeaderSize {
			return nil, errTruncatedChunk
		}
		length := binary.LittleEndian.Uint32(body[0:4])
		typ := binary.LittleEndian.Uint32(body[4:8])
		if length%4 != 0 {
			return nil, fmt.Errorf("chunk length %d is not 4-byte aligned", length)
		}
		if uint64(length) > uint64(len(body)-chunkHeaderSize) {
			return nil, errTruncatedChunk
		}
		chunk := body[chunkHeaderSize : chunkHeaderSize+int(length)]
		body = body[chunkHeaderSize+int(length):]

		switch {
		case first && typ != ChunkJSON:
			return nil, errMissingJSON
		case first:
			c.JSON = chunk
		case typ == ChunkBIN:
			if c.Bin != nil {
				return nil, errDuplicateBIN
			}
			c.Bin = chunk
		}
		// unknown chunk types are skipped
	}
	if c.JSON == nil {
		return nil, errMissingJSON
	}
	return c, nil
}

// Encode builds a binary glTF file from a JSON document and an optional BIN
// payload, padding both chunks to 4 bytes.
func Encode(json, bin []byte) []byte {
	jsonChunk := pad(json, ' ')
	size := headerSize + chunkHeaderSize + len(jsonChunk)
	var binChunk []byte
	if bin != nil {
		binChunk = pad(bin, 0)
		size += chunkHeaderSize + len(binChunk)
	}

	out := make([]byte, 0, size)
	out = append(out, Magic...)
	out = binary.LittleEndian.AppendUint32(out, Version)
	out = binary.LittleEndian.AppendUint32(out, uint32(size))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(jsonChunk)))
	out = binary.LittleEndian.AppendUint32(out, ChunkJSON)
	out = append(out, jsonChunk...)
	if bin != nil {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(binChunk)))
		out = binary.LittleEndian.AppendUint32(out, ChunkBIN)
		out = append(out, binChunk...)
	}
	return out
}

func pad(b []byte, fill byte) []byte {
	n := (4 - len(b)%4) % 4
	if n == 0 {
		return b
	}
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	for i := 0; i < n; i++ {
		out = append(out, fill)
	}
	return out
}
