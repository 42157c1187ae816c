package gltf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/jsonc"
)

// SyntaxError describes why a document could not be deserialized, with the
// location of the failure when the parser reports one.
type SyntaxError struct {
	Offset int64 // byte offset, 0 when unknown
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
	}
	return e.Msg
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Parse deserializes data as a glTF JSON document.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &SyntaxError{Msg: "empty document"}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, syntaxError(data, err)
	}
	return &doc, nil
}

// ParseLenient is Parse after stripping comments and trailing commas. Byte
// offsets are preserved so reported locations still match the input.
func ParseLenient(data []byte) (*Document, error) {
	return Parse(StripComments(data))
}

// StripComments returns a copy of data with comments and trailing commas
// blanked out, leaving strict JSON of the same length.
func StripComments(data []byte) []byte {
	return jsonc.ToJSON(data)
}

func syntaxError(data []byte, err error) *SyntaxError {
	se := &SyntaxError{Msg: err.Error(), Err: err}
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		se.Offset = syn.Offset
	case errors.As(err, &typ):
		se.Offset = typ.Offset
		if typ.Field != "" {
			se.Msg = fmt.Sprintf("%s: expected %s, got %s", typ.Field, typ.Type, typ.Value)
		}
	}
	if se.Offset > 0 {
		se.Line, se.Column = position(data, se.Offset)
	}
	return se
}

// position returns the 1-based line and column of the last byte read before
// offset, which is where encoding/json stopped.
func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col = 1, 1
	for _, c := range data[:offset-1] {
		if c == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// ── Root ──────────────────────────────────────────────────────────────────────

// Root is a document that has passed the configured validation strategy. It
// is the carrier handed back to the caller.
type Root struct {
	doc *Document
}

// NewRoot wraps doc without any checking.
func NewRoot(doc *Document) *Root { return &Root{doc: doc} }

// Document returns the wrapped JSON document.
func (r *Root) Document() *Document { return r.doc }
