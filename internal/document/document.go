// Package document normalizes heterogeneous sources (web pages, video
// transcripts, PDF/CSV/text files) into a single textual representation
// used as conversation context.
//
// Loading is stateless: nothing is cached, re-invocation always
// re-fetches or re-parses. File-bearing sources arrive as in-memory
// bytes; any filesystem materialization a parser needs is scoped to the
// load call and cleaned up on every exit path.
package document

import (
	"errors"
	"fmt"
)

// Sentinel errors for document loading.
var (
	// ErrLoad indicates the source was unreachable, unparseable, or
	// empty where emptiness is disallowed.
	ErrLoad = errors.New("document load failed")

	// ErrUnsupportedSource indicates an unknown source type tag.
	ErrUnsupportedSource = errors.New("unsupported source type")
)

// SourceType is the category of input document.
// The set is closed: adding a type requires a loader variant and a
// registry entry in loaderFor.
type SourceType string

// Supported source types.
const (
	Site  SourceType = "site"
	Video SourceType = "video"
	Pdf   SourceType = "pdf"
	Csv   SourceType = "csv"
	Text  SourceType = "text"
)

// SourceTypes lists all supported types in display order.
func SourceTypes() []SourceType {
	return []SourceType{Site, Video, Pdf, Csv, Text}
}

// ParseSourceType converts a wire-format tag into a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(s) {
	case Site, Video, Pdf, Csv, Text:
		return SourceType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSource, s)
	}
}

// URLBased reports whether the type takes a URL rather than file bytes.
func (t SourceType) URLBased() bool {
	return t == Site || t == Video
}

// Document is the normalized result of a load.
// Immutable once produced; owned by the session state after creation.
// Content is the empty string, never absent, when the source was
// legitimately empty.
type Document struct {
	SourceType SourceType
	Content    string
}

// Request describes one load operation.
// URL is set for URL-based types (Site, Video); Bytes and Filename are
// set for file-bearing types (Pdf, Csv, Text). Filename is only a hint
// used for the temp-file extension.
type Request struct {
	Type     SourceType
	URL      string
	Bytes    []byte
	Filename string
}
