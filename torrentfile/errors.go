package torrentfile

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPath is returned by operations that need local content
	ErrNoPath = errors.New("torrent has no path")
	// ErrNoName is returned when file names are requested from a torrent without a name
	ErrNoName = errors.New("torrent has no name")
)

// MetainfoError means the document is missing something or holds a value of
// the wrong shape
type MetainfoError struct {
	Msg string
}

func (e *MetainfoError) Error() string {
	return "Invalid metainfo: " + e.Msg
}

func missing(key string, keypath ...string) *MetainfoError {
	return &MetainfoError{Msg: fmt.Sprintf("Missing '%s' in %s", key, keyPath(keypath...))}
}

// keyPath renders a location in the document, e.g. ['info']['files']
func keyPath(keys ...string) string {
	if len(keys) == 0 {
		return "metainfo"
	}
	var s string
	for _, k := range keys {
		s += fmt.Sprintf("['%s']", k)
	}
	return s
}

// TypeError is returned by setters that accept several shapes of input when
// they get none of them
type TypeError struct {
	Want  string
	Value interface{}
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("Must be %s, not %T: %v", e.Want, e.Value, e.Value)
}

// PieceSizeError is returned for a piece size that isn't a power of two or
// is out of bounds. Min and Max are only set for the latter.
type PieceSizeError struct {
	Size     int64
	Min, Max int64
}

func (e *PieceSizeError) Error() string {
	if e.Min == 0 && e.Max == 0 {
		return fmt.Sprintf("Piece size must be a power of 2: %d", e.Size)
	}
	return fmt.Sprintf("Piece size must be between %d and %d: %d", e.Min, e.Max, e.Size)
}

// FileSizeError is returned by verification when a local file doesn't have
// the size the torrent says it has
type FileSizeError struct {
	Path     string
	Expected int64
	Actual   int64
}

func (e *FileSizeError) Error() string {
	return fmt.Sprintf("%s: Mismatching file sizes: expected %d, found %d", e.Path, e.Expected, e.Actual)
}

// ContentError is returned by verification when pieces don't match their
// digest
type ContentError struct {
	Pieces []int // corrupt piece indexes, ascending
}

func (e *ContentError) Error() string {
	if len(e.Pieces) == 1 {
		return fmt.Sprintf("Corruption in piece %d", e.Pieces[0])
	}
	return fmt.Sprintf("Corruption in %d pieces, first is piece %d", len(e.Pieces), e.Pieces[0])
}
