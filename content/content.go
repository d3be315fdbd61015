// Package content turns a path on disk into the ordered list of files a
// torrent is made of.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// File is one file of the content, in the order it contributes to the piece
// stream
type File struct {
	Path     string   // location on disk
	Segments []string // path relative to the content root, just the base name for single files
	Size     int64
}

// RelPath joins Segments with slashes, the form exclude patterns are matched
// against
func (f File) RelPath() string {
	return strings.Join(f.Segments, "/")
}

// ReadError is returned when a path can't be accessed
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	switch {
	case errors.Is(e.Err, fs.ErrNotExist):
		return fmt.Sprintf("%s: No such file or directory", e.Path)
	case errors.Is(e.Err, fs.ErrPermission):
		return fmt.Sprintf("%s: Permission denied", e.Path)
	}
	var pathErr *fs.PathError
	if errors.As(e.Err, &pathErr) {
		return fmt.Sprintf("%s: %s", e.Path, pathErr.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// EmptyError is returned for a zero-byte file or a directory that has no
// non-empty files left after exclusion
type EmptyError struct {
	Path string
	Dir  bool
}

func (e *EmptyError) Error() string {
	if e.Dir {
		return fmt.Sprintf("%s: Empty directory", e.Path)
	}
	return fmt.Sprintf("%s: Empty file", e.Path)
}

// Resolve lists the files below root. A regular file yields itself; a
// directory yields every non-empty regular file below it that no exclude
// pattern matches, sorted by relative path. Symlinks to files and
// directories are followed.
//
// A pattern matches if it matches the relative path or any single segment of
// it, so "*.txt" drops text files at any depth and "sub" drops a whole
// directory.
func Resolve(ctx context.Context, root string, exclude []string) ([]File, error) {
	for _, pattern := range exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, &ReadError{Path: root, Err: err}
	}

	if !info.IsDir() {
		if info.Size() == 0 {
			return nil, &EmptyError{Path: root}
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, &ReadError{Path: root, Err: err}
		}
		return []File{{
			Path:     root,
			Segments: []string{filepath.Base(abs)},
			Size:     info.Size(),
		}}, nil
	}

	w := walker{ctx: ctx, exclude: exclude, visited: make(map[string]bool)}
	if err := w.walk(root, nil); err != nil {
		return nil, err
	}
	files := w.files

	if len(files) == 0 {
		return nil, &EmptyError{Path: root, Dir: true}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return lessSegments(files[i].Segments, files[j].Segments)
	})

	log.WithFields(log.Fields{
		"path":  root,
		"files": len(files),
		"size":  TotalSize(files),
	}).Debug("resolved content")

	return files, nil
}

// walker collects files below a directory, following symlinks. visited holds
// the real paths of the directories on the current branch so a link back to
// an ancestor is skipped instead of walked forever.
type walker struct {
	ctx     context.Context
	exclude []string
	visited map[string]bool
	files   []File
}

func (w *walker) walk(dir string, prefix []string) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return &ReadError{Path: dir, Err: err}
	}
	if w.visited[resolved] {
		log.WithField("path", dir).Debug("skipping symlink loop")
		return nil
	}
	w.visited[resolved] = true
	defer delete(w.visited, resolved)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return &ReadError{Path: dir, Err: err}
	}
	for _, entry := range entries {
		if err := w.ctx.Err(); err != nil {
			return err
		}

		p := filepath.Join(dir, entry.Name())
		segments := append(append([]string(nil), prefix...), entry.Name())
		if excluded(segments, w.exclude) {
			continue
		}

		fi, err := os.Stat(p)
		if err != nil {
			return &ReadError{Path: p, Err: err}
		}
		switch {
		case fi.IsDir():
			if err := w.walk(p, segments); err != nil {
				return err
			}
		case fi.Mode().IsRegular() && fi.Size() > 0:
			w.files = append(w.files, File{
				Path:     p,
				Segments: segments,
				Size:     fi.Size(),
			})
		}
	}
	return nil
}

// TotalSize sums the sizes of files
func TotalSize(files []File) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

func excluded(segments []string, patterns []string) bool {
	rel := strings.Join(segments, "/")
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		for _, segment := range segments {
			if ok, _ := path.Match(pattern, segment); ok {
				return true
			}
		}
	}
	return false
}

// compare path segment by segment so "a/b" sorts before "a-c"
func lessSegments(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
