package torrentfile

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/givxl33t/metatorrent/bitfield"
	"github.com/givxl33t/metatorrent/content"
	"github.com/givxl33t/metatorrent/hasher"
	log "github.com/sirupsen/logrus"
)

// Generate hashes the content at Path and stores the piece table in the
// document. Any existing table is dropped first, so on error or cancellation
// the document has no "pieces".
func (t *Torrent) Generate(ctx context.Context, opts ...hasher.Option) error {
	if t.path == "" {
		return ErrNoPath
	}
	info := t.info()
	delete(info, "pieces")

	if t.PieceSize() == 0 {
		if err := t.SetPieceSize(0); err != nil {
			return err
		}
	}
	if t.randomize {
		t.drawEntropy()
	}

	start := time.Now()
	table, err := hasher.Hash(ctx, t.files, t.PieceSize(), opts...)
	if err != nil {
		return err
	}
	info["pieces"] = string(table)

	log.WithFields(log.Fields{
		"path":    t.path,
		"pieces":  len(table) / hasher.HashLen,
		"elapsed": time.Since(start),
	}).Debug("generated piece table")
	return nil
}

// IsReady reports whether the document is complete enough to be written
func (t *Torrent) IsReady() bool {
	return t.Validate() == nil
}

// Hashes splits the piece table into digests, nil if there is no table
func (t *Torrent) Hashes() ([][hasher.HashLen]byte, error) {
	raw, ok := t.readInfo()["pieces"]
	if !ok {
		return nil, nil
	}
	if err := t.validateHashable(); err != nil {
		return nil, err
	}
	pieces, ok := toBytes(raw)
	if !ok {
		return nil, typeMismatch("string", raw, "info", "pieces")
	}
	if len(pieces)%hasher.HashLen != 0 {
		return nil, &MetainfoError{Msg: "Length of ['info']['pieces'] is not divisible by 20"}
	}

	hashes := make([][hasher.HashLen]byte, len(pieces)/hasher.HashLen)
	for i := range hashes {
		copy(hashes[i][:], pieces[i*hasher.HashLen:(i+1)*hasher.HashLen])
	}
	return hashes, nil
}

// Verify checks the content at path against the piece table. path is the
// file itself for single file torrents and the directory holding the files
// otherwise.
//
// The returned bitfield has a bit set for every good piece. A missing file
// is a *content.ReadError, a file of the wrong size a *FileSizeError and bad
// pieces a *ContentError; the bitfield is returned with the latter.
func (t *Torrent) Verify(ctx context.Context, path string, opts ...hasher.Option) (bitfield.Bitfield, error) {
	if err := t.validateHashable(); err != nil {
		return nil, err
	}
	raw, ok := t.readInfo()["pieces"]
	if !ok {
		return nil, missing("pieces", "info")
	}
	pieces, ok := toBytes(raw)
	if !ok {
		return nil, typeMismatch("string", raw, "info", "pieces")
	}

	files, err := t.localFiles(path)
	if err != nil {
		return nil, err
	}

	good, err := hasher.Verify(ctx, files, t.PieceSize(), []byte(pieces), opts...)
	if err != nil {
		return nil, err
	}

	count := len(pieces) / hasher.HashLen
	if bad := good.Missing(count); len(bad) > 0 {
		log.WithFields(log.Fields{
			"path":    path,
			"corrupt": len(bad),
			"pieces":  count,
		}).Debug("verification failed")
		return good, &ContentError{Pieces: bad}
	}
	return good, nil
}

// VerifyFilesize checks that every file exists at path with the size the
// document lists, without reading any content
func (t *Torrent) VerifyFilesize(path string) error {
	if err := t.validateHashable(); err != nil {
		return err
	}
	_, err := t.localFiles(path)
	return err
}

// localFiles maps the file list of the document onto path and checks sizes
func (t *Torrent) localFiles(path string) ([]content.File, error) {
	entries, single, ok := t.fileEntries()
	if !ok {
		return nil, &MetainfoError{Msg: "Missing 'length' or 'files' in ['info']"}
	}

	files := make([]content.File, 0, len(entries))
	for _, e := range entries {
		local := path
		if !single {
			local = filepath.Join(append([]string{path}, e.segments...)...)
		}

		fi, err := os.Stat(local)
		if err != nil {
			return nil, &content.ReadError{Path: local, Err: err}
		}
		if fi.IsDir() {
			return nil, &content.ReadError{Path: local, Err: os.ErrInvalid}
		}
		if fi.Size() != e.length {
			return nil, &FileSizeError{Path: local, Expected: e.length, Actual: fi.Size()}
		}
		files = append(files, content.File{Path: local, Segments: e.segments, Size: e.length})
	}
	return files, nil
}
