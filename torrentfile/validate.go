package torrentfile

import (
	"fmt"

	"github.com/givxl33t/metatorrent/hasher"
	"github.com/givxl33t/metatorrent/tracker"
	"github.com/givxl33t/metatorrent/urls"
)

// validateHashable checks what the info hash and the piece table depend on:
// an info dictionary with "piece length" and either "length" or "files"
func (t *Torrent) validateHashable() error {
	raw, ok := t.metainfo["info"]
	if !ok {
		return missing("info")
	}
	info, ok := raw.(map[string]interface{})
	if !ok {
		return typeMismatch("dict", raw, "info")
	}
	if _, ok := info["piece length"]; !ok {
		return missing("piece length", "info")
	}
	if _, ok := toInt64(info["piece length"]); !ok {
		return typeMismatch("int", info["piece length"], "info", "piece length")
	}
	_, hasLength := info["length"]
	_, hasFiles := info["files"]
	switch {
	case !hasLength && !hasFiles:
		return &MetainfoError{Msg: "Missing 'length' or 'files' in ['info']"}
	case hasLength && hasFiles:
		return &MetainfoError{Msg: "['info'] includes both 'length' and 'files'"}
	}
	return nil
}

// Validate checks the whole document: the info dictionary must be complete
// and consistent, including a piece table of the right length, and every URL
// must be well-formed.
func (t *Torrent) Validate() error {
	if err := t.validateHashable(); err != nil {
		return err
	}
	info := t.readInfo()

	name, ok := info["name"]
	if !ok {
		return missing("name", "info")
	}
	if _, ok := name.(string); !ok {
		return typeMismatch("string", name, "info", "name")
	}

	pieceLength, _ := toInt64(info["piece length"])
	if pieceLength <= 0 {
		return &MetainfoError{Msg: fmt.Sprintf("['info']['piece length'] must be positive: %d", pieceLength)}
	}

	if err := validateFiles(info); err != nil {
		return err
	}

	rawPieces, ok := info["pieces"]
	if !ok {
		return missing("pieces", "info")
	}
	pieces, ok := toBytes(rawPieces)
	if !ok {
		return typeMismatch("string", rawPieces, "info", "pieces")
	}
	if len(pieces) == 0 || len(pieces)%hasher.HashLen != 0 {
		return &MetainfoError{Msg: fmt.Sprintf("Length of ['info']['pieces'] is not divisible by %d: %d", hasher.HashLen, len(pieces))}
	}

	size, _ := t.Size()
	count := len(pieces) / hasher.HashLen
	if expected := hasher.PieceCount(size, pieceLength); count != expected {
		return &MetainfoError{Msg: fmt.Sprintf("Total size %d doesn't match number of hashes: Expected %d hashes, found %d", size, expected, count)}
	}

	if private, ok := info["private"]; ok {
		switch private.(type) {
		case bool, int64, int:
		default:
			return typeMismatch("bool or int", private, "info", "private")
		}
	}

	return t.validateURLs()
}

func validateFiles(info map[string]interface{}) error {
	if raw, ok := info["length"]; ok {
		length, ok := toInt64(raw)
		if !ok {
			return typeMismatch("int", raw, "info", "length")
		}
		if length < 0 {
			return &MetainfoError{Msg: fmt.Sprintf("['info']['length'] must be non-negative: %d", length)}
		}
		return nil
	}

	list, ok := info["files"].([]interface{})
	if !ok {
		return typeMismatch("list", info["files"], "info", "files")
	}
	if len(list) == 0 {
		return &MetainfoError{Msg: "['info']['files'] is empty"}
	}
	for i, item := range list {
		where := fmt.Sprintf("['info']['files'][%d]", i)
		f, ok := item.(map[string]interface{})
		if !ok {
			return &MetainfoError{Msg: fmt.Sprintf("%s must be dict, not %T: %v", where, item, item)}
		}
		length, ok := toInt64(f["length"])
		if !ok {
			return &MetainfoError{Msg: fmt.Sprintf("Missing 'length' in %s", where)}
		}
		if length < 0 {
			return &MetainfoError{Msg: fmt.Sprintf("%s['length'] must be non-negative: %d", where, length)}
		}
		segments, ok := toStrings(f["path"])
		if !ok || len(segments) == 0 {
			return &MetainfoError{Msg: fmt.Sprintf("Missing 'path' in %s", where)}
		}
		for _, s := range segments {
			if s == "" || s == "." || s == ".." {
				return &MetainfoError{Msg: fmt.Sprintf("%s['path'] has an invalid segment: %q", where, s)}
			}
		}
	}
	return nil
}

func (t *Torrent) validateURLs() error {
	if raw, ok := t.metainfo["announce"]; ok {
		announce, ok := raw.(string)
		if !ok {
			return typeMismatch("string", raw, "announce")
		}
		if err := urls.Validate(announce); err != nil {
			return &MetainfoError{Msg: fmt.Sprintf("['announce'] is invalid: %v", err)}
		}
	}
	if raw, ok := t.metainfo["announce-list"]; ok {
		for _, u := range tracker.Flatten(tracker.List(raw)) {
			if err := urls.Validate(u); err != nil {
				return &MetainfoError{Msg: fmt.Sprintf("['announce-list'] is invalid: %v", err)}
			}
		}
	}
	for _, key := range []string{"url-list", "httpseeds"} {
		raw, ok := t.metainfo[key]
		if !ok {
			continue
		}
		list, ok := tracker.Strings(raw)
		if !ok {
			return typeMismatch("list", raw, key)
		}
		if err := urls.ValidateAll(list); err != nil {
			return &MetainfoError{Msg: fmt.Sprintf("['%s'] is invalid: %v", key, err)}
		}
	}
	return nil
}

func typeMismatch(want string, got interface{}, keypath ...string) *MetainfoError {
	return &MetainfoError{Msg: fmt.Sprintf("%s must be %s, not %T: %v", keyPath(keypath...), want, got, got)}
}

func toBytes(v interface{}) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}
