// Package torrentfile creates, edits and validates torrent metainfo (BEP0003).
//
// A Torrent owns one metainfo document, a plain bencode dictionary that is
// always the source of truth. Accessors such as Trackers, Webseeds or
// Comment read from and write to that dictionary directly, so changes made
// through Metainfo() are visible through the accessors and vice versa.
//
// A Torrent is not safe for concurrent use.
package torrentfile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/givxl33t/metatorrent/content"
	log "github.com/sirupsen/logrus"
)

// Torrent is a metainfo document plus the local content it describes
type Torrent struct {
	metainfo map[string]interface{}

	path    string
	exclude []string
	files   []content.File // resolved from path, nil without a path

	nameSet   bool // name was set explicitly and survives path changes
	randomize bool

	// info hash from a magnet link, used as long as info can't be hashed
	infohash string
}

// New returns a torrent with an empty info dictionary
func New() *Torrent {
	return &Torrent{
		metainfo: map[string]interface{}{
			"info": map[string]interface{}{},
		},
	}
}

// Metainfo returns the document itself. Edits are not validated until the
// next operation that depends on them.
func (t *Torrent) Metainfo() map[string]interface{} {
	return t.metainfo
}

// info returns the info dictionary for writing, creating it if it is
// missing or isn't a dictionary
func (t *Torrent) info() map[string]interface{} {
	info, ok := t.metainfo["info"].(map[string]interface{})
	if !ok {
		info = map[string]interface{}{}
		t.metainfo["info"] = info
	}
	return info
}

// readInfo returns the info dictionary for reading, nil if there is none
func (t *Torrent) readInfo() map[string]interface{} {
	info, _ := t.metainfo["info"].(map[string]interface{})
	return info
}

// Path returns the local path of the content, "" if none is set
func (t *Torrent) Path() string {
	return t.path
}

// SetPath is SetPathContext without cancellation
func (t *Torrent) SetPath(path string) error {
	return t.SetPathContext(context.Background(), path)
}

// SetPathContext points the torrent at a file or directory.
//
// The file list replaces "length" or "files", the name follows the base name
// of path unless it was set explicitly, and a piece length is picked if there
// is none. The piece table is always dropped. On error the document is left
// as it was.
//
// An empty path only forgets the local content; the file list stays in the
// document but the piece table is dropped.
func (t *Torrent) SetPathContext(ctx context.Context, path string) error {
	if path == "" {
		t.path = ""
		t.files = nil
		delete(t.info(), "pieces")
		return nil
	}

	files, err := content.Resolve(ctx, path, t.exclude)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	t.path = path
	t.files = files

	info := t.info()
	delete(info, "pieces")

	if isSingleFile(path, files) {
		delete(info, "files")
		info["length"] = files[0].Size
	} else {
		delete(info, "length")
		entries := make([]interface{}, 0, len(files))
		for _, f := range files {
			segments := make([]interface{}, len(f.Segments))
			for i, s := range f.Segments {
				segments[i] = s
			}
			entries = append(entries, map[string]interface{}{
				"length": f.Size,
				"path":   segments,
			})
		}
		info["files"] = entries
	}

	if !t.nameSet {
		info["name"] = filepath.Base(abs)
	}

	if _, ok := toInt64(info["piece length"]); !ok {
		if err := t.SetPieceSize(0); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"path":       path,
		"mode":       t.Mode(),
		"files":      len(files),
		"size":       content.TotalSize(files),
		"piece_size": t.PieceSize(),
		"exclude":    t.exclude,
		"name":       info["name"],
	}).Debug("set torrent content")

	return nil
}

func isSingleFile(path string, files []content.File) bool {
	return len(files) == 1 && files[0].Path == path
}

// Exclude returns the glob patterns of files left out of the content
func (t *Torrent) Exclude() []string {
	return append([]string(nil), t.exclude...)
}

// SetExclude sets the glob patterns of files to leave out and re-reads the
// content if a path is set. If the patterns would leave no content, or are
// malformed, nothing changes.
func (t *Torrent) SetExclude(patterns ...string) error {
	previous := t.exclude
	t.exclude = append([]string(nil), patterns...)
	if t.path == "" {
		return nil
	}
	if err := t.SetPath(t.path); err != nil {
		t.exclude = previous
		return err
	}
	return nil
}

// Name returns the name of the torrent, the file name for single file
// torrents and the directory name otherwise
func (t *Torrent) Name() (string, bool) {
	name, ok := t.readInfo()["name"].(string)
	return name, ok
}

// SetName overrides the name. It is kept when the path changes.
func (t *Torrent) SetName(name string) {
	t.nameSet = true
	t.info()["name"] = name
}

// UnsetName goes back to naming the torrent after its path, or removes the
// name if there is no path
func (t *Torrent) UnsetName() {
	t.nameSet = false
	if t.path == "" {
		delete(t.info(), "name")
		return
	}
	abs, err := filepath.Abs(t.path)
	if err != nil {
		abs = t.path
	}
	t.info()["name"] = filepath.Base(abs)
}

// Mode is "singlefile", "multifile" or "" if the document has neither
// "length" nor "files"
func (t *Torrent) Mode() string {
	info := t.readInfo()
	if _, ok := info["length"]; ok {
		return "singlefile"
	}
	if _, ok := info["files"]; ok {
		return "multifile"
	}
	return ""
}

// Files returns the paths of all files inside the torrent, starting with the
// torrent name
func (t *Torrent) Files() ([]string, error) {
	entries, single, ok := t.fileEntries()
	if !ok {
		return nil, nil
	}
	name, hasName := t.Name()
	if !hasName {
		return nil, ErrNoName
	}
	if single {
		return []string{name}, nil
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		files = append(files, filepath.Join(append([]string{name}, e.segments...)...))
	}
	return files, nil
}

// Filepaths returns the local paths of all files, nil without a path
func (t *Torrent) Filepaths() []string {
	if t.files == nil {
		return nil
	}
	paths := make([]string, len(t.files))
	for i, f := range t.files {
		paths[i] = f.Path
	}
	return paths
}

// Size returns the total size of the content according to the document
func (t *Torrent) Size() (int64, bool) {
	entries, _, ok := t.fileEntries()
	if !ok {
		return 0, false
	}
	var total int64
	for _, e := range entries {
		total += e.length
	}
	return total, true
}

type fileEntry struct {
	segments []string
	length   int64
}

// fileEntries reads "length" or "files" from the document. Entries that
// don't have the right shape are skipped; Validate reports them.
func (t *Torrent) fileEntries() (entries []fileEntry, single bool, ok bool) {
	info := t.readInfo()
	if length, ok := toInt64(info["length"]); ok {
		name, _ := info["name"].(string)
		return []fileEntry{{segments: []string{name}, length: length}}, true, true
	}

	list, ok := info["files"].([]interface{})
	if !ok {
		return nil, false, false
	}
	for _, item := range list {
		f, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		length, ok := toInt64(f["length"])
		if !ok {
			continue
		}
		segments, ok := toStrings(f["path"])
		if !ok {
			continue
		}
		entries = append(entries, fileEntry{segments: segments, length: length})
	}
	return entries, false, true
}

// String lists the attributes that are set, in the order private, comment,
// source, creation_date, created_by, piece_size
func (t *Torrent) String() string {
	var attrs []string
	if t.Private() {
		attrs = append(attrs, "private=true")
	}
	if comment, ok := t.Comment(); ok {
		attrs = append(attrs, fmt.Sprintf("comment=%q", comment))
	}
	if source, ok := t.Source(); ok {
		attrs = append(attrs, fmt.Sprintf("source=%q", source))
	}
	if date, ok := t.CreationDate(); ok {
		attrs = append(attrs, fmt.Sprintf("creation_date=%s", date.Format("2006-01-02 15:04:05")))
	}
	if createdBy, ok := t.CreatedBy(); ok {
		attrs = append(attrs, fmt.Sprintf("created_by=%q", createdBy))
	}
	if size := t.PieceSize(); size != 0 {
		attrs = append(attrs, fmt.Sprintf("piece_size=%d", size))
	}
	return "Torrent(" + strings.Join(attrs, ", ") + ")"
}

func toInt64(v interface{}) (int64, bool) {
	switch v := v.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	}
	return 0, false
}

func toStrings(v interface{}) ([]string, bool) {
	switch v := v.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
