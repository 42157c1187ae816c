package glb

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Skryldev/gltf-importer/errors"
)

const doc = `{"asset":{"version":"2.0"}}`

func TestIsBinary(t *testing.T) {
	assert.True(t, IsBinary([]byte("glTF")))
	assert.True(t, IsBinary([]byte("glTF garbage")))
	assert.False(t, IsBinary([]byte("glT")))
	assert.False(t, IsBinary([]byte("GLTF")))
	assert.False(t, IsBinary([]byte(`{"asset":{}}`)))
	assert.False(t, IsBinary(nil))
}

func TestEncodeParseRoundTrip(t *testing.T) {
	bin := []byte{1, 2, 3, 4, 5}
	data := Encode([]byte(doc), bin)
	assert.Zero(t, len(data)%4)

	c, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(Version), c.Version)
	assert.Equal(t, uint32(len(data)), c.Length)
	assert.JSONEq(t, doc, string(c.JSON))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, c.Bin)
}

func TestParseWithoutBin(t *testing.T) {
	c, err := Parse(Encode([]byte(doc), nil))
	require.NoError(t, err)
	assert.Nil(t, c.Bin)
}

func TestParseSkipsUnknownChunks(t *testing.T) {
	data := Encode([]byte(doc), nil)
	data = binary.LittleEndian.AppendUint32(data, 4)
	data = binary.LittleEndian.AppendUint32(data, 0x12345678)
	data = append(data, 9, 9, 9, 9)
	binary.LittleEndian.PutUint32(data[8:12], uint32(len(data)))

	c, err := Parse(data)
	require.NoError(t, err)
	assert.Nil(t, c.Bin)
}

func TestParseMalformed(t *testing.T) {
	valid := Encode([]byte(doc), []byte{1, 2, 3, 4})

	cases := map[string][]byte{
		"too small": []byte("glTF\x02\x00"),
		"bad version": func() []byte {
			b := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint32(b[4:8], 1)
			return b
		}(),
		"length beyond file": func() []byte {
			b := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint32(b[8:12], uint32(len(b)+4))
			return b
		}(),
		"truncated chunk": func() []byte {
			b := append([]byte(nil), valid[:len(valid)-4]...)
			binary.LittleEndian.PutUint32(b[8:12], uint32(len(b)))
			return b
		}(),
		"bin first": func() []byte {
			b := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint32(b[16:20], ChunkBIN)
			return b
		}(),
		"unaligned chunk": func() []byte {
			b := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint32(b[12:16], 3)
			return b
		}(),
		"header only": func() []byte {
			b := Encode(nil, nil)[:12]
			binary.LittleEndian.PutUint32(b[8:12], 12)
			return b
		}(),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindMalformedGlb), "got %v", err)
		})
	}
}
