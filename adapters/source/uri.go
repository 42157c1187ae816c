// Package source provides core.Source implementations: the file system,
// memory, HTTP, S3 and GCS, plus decorators that retry, decompress and count
// fetches.
package source

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"

	apperrors "github.com/Skryldev/gltf-importer/errors"
)

var errNotBase64 = fmt.Errorf("%w: data uri is not base64 encoded", apperrors.ErrInvalidURI)

// IsDataURI reports whether uri embeds its payload ("data:...").
func IsDataURI(uri string) bool {
	return len(uri) >= 5 && strings.EqualFold(uri[:5], "data:")
}

// DecodeDataURI returns the payload and media type of a base64 data URI such
// as "data:application/octet-stream;base64,AAAA".
func DecodeDataURI(uri string) (data []byte, mediaType string, err error) {
	if !IsDataURI(uri) {
		return nil, "", fmt.Errorf("%w: not a data uri", apperrors.ErrInvalidURI)
	}
	header, payload, ok := strings.Cut(uri[5:], ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: data uri has no payload separator", apperrors.ErrInvalidURI)
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, mediaType, errNotBase64
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some exporters drop the padding.
		if alt, altErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); altErr == nil {
			return alt, mediaType, nil
		}
		return nil, mediaType, fmt.Errorf("%w: data uri: %w", apperrors.ErrInvalidURI, err)
	}
	return data, mediaType, nil
}

// hasScheme reports whether uri is absolute ("https://...", "s3://...").
func hasScheme(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 { // "C:" is a drive, not a scheme
		return "", false
	}
	return strings.ToLower(u.Scheme), true
}

// relativePath turns a relative URI reference from a document into a clean,
// slash separated path relative to the document's directory. Percent escapes
// are decoded and the result is NFC normalised so names written on one
// platform resolve on another.
func relativePath(uri string) (string, error) {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	p, err := url.PathUnescape(uri)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", apperrors.ErrInvalidURI, uri, err)
	}
	p = norm.NFC.String(p)
	if p == "" {
		return "", fmt.Errorf("%w: %q is empty", apperrors.ErrInvalidURI, uri)
	}
	return path.Clean(p), nil
}
