package torrentfile

import (
	"bytes"
	"context"
	"crypto/sha1"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/givxl33t/metatorrent/content"
	"github.com/givxl33t/metatorrent/hasher"
)

// pieceDigests hashes data in pieceLength chunks
func pieceDigests(data []byte, pieceLength int) [][sha1.Size]byte {
	var digests [][sha1.Size]byte
	for i := 0; i < len(data); i += pieceLength {
		end := i + pieceLength
		if end > len(data) {
			end = len(data)
		}
		digests = append(digests, sha1.Sum(data[i:end]))
	}
	return digests
}

func TestGenerateSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	data := writeFile(t, path, 100000)

	tor := New()
	if err := tor.SetPath(path); err != nil {
		t.Fatal(err)
	}
	if err := tor.SetPieceSize(16 * kib); err != nil {
		t.Fatal(err)
	}
	if tor.IsReady() {
		t.Error("ready before Generate")
	}
	if hashes, err := tor.Hashes(); hashes != nil || err != nil {
		t.Errorf("Hashes() before Generate = %v, %v", hashes, err)
	}

	if err := tor.Generate(context.Background(), hasher.WithWorkers(3)); err != nil {
		t.Fatal(err)
	}
	hashes, err := tor.Hashes()
	if err != nil {
		t.Fatal(err)
	}
	if want := pieceDigests(data, 16*kib); !reflect.DeepEqual(hashes, want) {
		t.Errorf("got %d hashes, want %d matching ones", len(hashes), len(want))
	}
	if len(hashes) != 7 {
		t.Errorf("len(Hashes()) = %d, want 7", len(hashes))
	}
	if !tor.IsReady() {
		t.Errorf("not ready after Generate: %v", tor.Validate())
	}
}

func TestGenerateMultiFile(t *testing.T) {
	root := writeTree(t, "content", map[string]int{
		"a":   20000,
		"b/c": 1,
		"b/d": 40000,
	})
	var all []byte
	for _, rel := range []string{"a", "b/c", "b/d"} {
		b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, b...)
	}

	tor := New()
	if err := tor.SetPath(root); err != nil {
		t.Fatal(err)
	}
	if err := tor.Generate(context.Background()); err != nil {
		t.Fatal(err)
	}
	hashes, err := tor.Hashes()
	if err != nil {
		t.Fatal(err)
	}
	if want := pieceDigests(all, int(tor.PieceSize())); !reflect.DeepEqual(hashes, want) {
		t.Error("piece table doesn't match the concatenated files")
	}

	// same content, same table
	first, _ := tor.Dump()
	if err := tor.Generate(context.Background(), hasher.WithWorkers(1)); err != nil {
		t.Fatal(err)
	}
	second, _ := tor.Dump()
	if !bytes.Equal(first, second) {
		t.Error("Generate isn't idempotent")
	}
}

func TestGenerateErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, 50000)

	tor := New()
	if err := tor.SetPath(path); err != nil {
		t.Fatal(err)
	}
	info := tor.Metainfo()["info"].(map[string]interface{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tor.Generate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled Generate error = %v", err)
	}
	if _, ok := info["pieces"]; ok {
		t.Error("cancelled Generate left pieces")
	}

	if err := tor.Generate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	var readErr *content.ReadError
	if err := tor.Generate(context.Background()); !errors.As(err, &readErr) {
		t.Errorf("Generate of removed file error = %v, want *content.ReadError", err)
	}
	if _, ok := info["pieces"]; ok {
		t.Error("failed Generate kept the old pieces")
	}
}

func TestHashesStructuralError(t *testing.T) {
	tor := New()
	tor.Metainfo()["info"].(map[string]interface{})["pieces"] = string(make([]byte, 20))

	_, err := tor.Hashes()
	var metaErr *MetainfoError
	if !errors.As(err, &metaErr) {
		t.Fatalf("Hashes() error = %v, want *MetainfoError", err)
	}
	if want := "Invalid metainfo: Missing 'piece length' in ['info']"; err.Error() != want {
		t.Errorf("Hashes() error = %q, want %q", err, want)
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	data := writeFile(t, path, 100000)

	tor := New()
	if err := tor.SetPath(path); err != nil {
		t.Fatal(err)
	}
	if err := tor.Generate(context.Background()); err != nil {
		t.Fatal(err)
	}

	good, err := tor.Verify(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if good.Count(7) != 7 {
		t.Errorf("%d good pieces, want 7", good.Count(7))
	}

	corrupt := filepath.Join(dir, "corrupt")
	changed := append([]byte(nil), data...)
	changed[2*16*kib+5] ^= 0xff
	if err := os.WriteFile(corrupt, changed, 0o644); err != nil {
		t.Fatal(err)
	}
	good, err = tor.Verify(context.Background(), corrupt)
	var contentErr *ContentError
	if !errors.As(err, &contentErr) || !reflect.DeepEqual(contentErr.Pieces, []int{2}) {
		t.Errorf("Verify(corrupt) error = %v", err)
	}
	if good.HasPiece(2) || !good.HasPiece(1) || !good.HasPiece(6) {
		t.Errorf("bitfield = %08b", good)
	}

	short := filepath.Join(dir, "short")
	if err := os.WriteFile(short, data[:1000], 0o644); err != nil {
		t.Fatal(err)
	}
	var sizeErr *FileSizeError
	if err := tor.VerifyFilesize(short); !errors.As(err, &sizeErr) || sizeErr.Actual != 1000 || sizeErr.Expected != 100000 {
		t.Errorf("VerifyFilesize(short) error = %v", err)
	}
	if _, err := tor.Verify(context.Background(), filepath.Join(dir, "nope")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Verify(missing) error = %v", err)
	}
}

func TestVerifyMultiFile(t *testing.T) {
	root := writeTree(t, "content", map[string]int{"a": 30000, "b/c": 30000})

	tor := New()
	if err := tor.SetPath(root); err != nil {
		t.Fatal(err)
	}
	if err := tor.Generate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := tor.VerifyFilesize(root); err != nil {
		t.Error(err)
	}
	if _, err := tor.Verify(context.Background(), root); err != nil {
		t.Error(err)
	}

	if err := os.Remove(filepath.Join(root, "b", "c")); err != nil {
		t.Fatal(err)
	}
	var readErr *content.ReadError
	if err := tor.VerifyFilesize(root); !errors.As(err, &readErr) {
		t.Errorf("VerifyFilesize error = %v, want *content.ReadError", err)
	}
}

// The document has to be readable by other implementations
func TestGenerateMatchesAnacrolix(t *testing.T) {
	root := writeTree(t, "content", map[string]int{"a": 70000, "b/c": 12345})

	tor := New()
	if err := tor.SetPath(root); err != nil {
		t.Fatal(err)
	}
	if err := tor.Trackers().Set([]string{"http://tracker.example/announce", "udp://tracker.example:6969"}); err != nil {
		t.Fatal(err)
	}
	tor.SetPrivate(true)
	if err := tor.Generate(context.Background()); err != nil {
		t.Fatal(err)
	}
	b, err := tor.Dump()
	if err != nil {
		t.Fatal(err)
	}

	mi, err := metainfo.Load(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	infohash, err := tor.Infohash()
	if err != nil {
		t.Fatal(err)
	}
	if got := mi.HashInfoBytes().HexString(); got != infohash {
		t.Errorf("anacrolix info hash %s, ours %s", got, infohash)
	}
	if mi.Announce != "http://tracker.example/announce" || len(mi.AnnounceList) != 2 {
		t.Errorf("announce = %q, announce-list = %v", mi.Announce, mi.AnnounceList)
	}

	info, err := mi.UnmarshalInfo()
	if err != nil {
		t.Fatal(err)
	}
	hashes, _ := tor.Hashes()
	if info.NumPieces() != len(hashes) {
		t.Errorf("anacrolix counts %d pieces, we have %d", info.NumPieces(), len(hashes))
	}
	if info.TotalLength() != 82345 || info.Name != "content" || info.PieceLength != tor.PieceSize() {
		t.Errorf("info = %s, %d bytes, piece length %d", info.Name, info.TotalLength(), info.PieceLength)
	}
}
