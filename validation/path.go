// Package validation checks parsed glTF documents and reports every
// violation it finds, each tagged with the JSON path of the offending value.
package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// Path locates a value inside a glTF JSON document, for example
// "meshes[0].primitives[1].indices". The zero value is the document root.
type Path string

// Field returns p extended with an object member access.
func (p Path) Field(name string) Path {
	if p == "" {
		return Path(name)
	}
	return p + "." + Path(name)
}

// Index returns p extended with an array element access.
func (p Path) Index(i int) Path {
	return p + "[" + Path(strconv.Itoa(i)) + "]"
}

// Key returns p extended with a map key access (e.g. primitive attributes).
func (p Path) Key(key string) Path {
	return p + Path(fmt.Sprintf("[%q]", key))
}

func (p Path) String() string {
	if p == "" {
		return "<root>"
	}
	return string(p)
}

// FromPointer converts an RFC 6901 JSON pointer ("/buffers/0/uri") into a Path.
func FromPointer(ptr string) Path {
	var p Path
	if ptr == "" || ptr == "/" {
		return p
	}
	for _, tok := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		if i, err := strconv.Atoi(tok); err == nil && i >= 0 {
			p = p.Index(i)
			continue
		}
		p = p.Field(tok)
	}
	return p
}

// Kind classifies a single violation.
type Kind int

const (
	// Missing means a required value is absent.
	Missing Kind = iota + 1
	// IndexOutOfBounds means an index does not reference an existing element.
	IndexOutOfBounds
	// Invalid means a value is present but not acceptable.
	Invalid
	// Unsupported means a value is well-formed but this importer cannot handle it.
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case IndexOutOfBounds:
		return "index out of bounds"
	case Invalid:
		return "invalid"
	case Unsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Violation is one (path, kind) pair plus a human-readable detail.
type Violation struct {
	Path    Path
	Kind    Kind
	Message string
}

func (v Violation) String() string {
	if v.Message == "" {
		return fmt.Sprintf("%s: %s", v.Path, v.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", v.Path, v.Kind, v.Message)
}

// collector accumulates violations during a document walk. It never stops
// early; callers get the complete set.
type collector struct {
	out []Violation
}

func (c *collector) report(p Path, k Kind, format string, args ...any) {
	c.out = append(c.out, Violation{Path: p, Kind: k, Message: fmt.Sprintf(format, args...)})
}

// checkIndex reports an IndexOutOfBounds violation when idx is not in [0, n).
func (c *collector) checkIndex(p Path, idx, n int, target string) {
	if idx < 0 || idx >= n {
		c.report(p, IndexOutOfBounds, "%s index %d, have %d", target, idx, n)
	}
}

func (c *collector) checkOptIndex(p Path, idx *int, n int, target string) {
	if idx != nil {
		c.checkIndex(p, *idx, n, target)
	}
}
