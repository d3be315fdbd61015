package torrentfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zeebo/bencode"
)

// Dump returns the bencoded document. Nothing is validated.
func (t *Torrent) Dump() ([]byte, error) {
	return encode(t.metainfo)
}

// Write validates the document and writes it to w
func (t *Torrent) Write(w io.Writer) error {
	if err := t.Validate(); err != nil {
		return err
	}
	b, err := t.Dump()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// WriteFile validates the document and writes it to path. An existing file
// is only replaced if overwrite is true.
func (t *Torrent) WriteFile(path string, overwrite bool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	b, err := t.Dump()
	if err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	path = os.ExpandEnv(path)
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("writing torrent file: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("writing torrent file: %w", err)
	}
	return f.Close()
}

// Read decodes a torrent from r. With validate set the document must pass
// Validate, otherwise anything that decodes to a dictionary is accepted.
func Read(r io.Reader, validate bool) (*Torrent, error) {
	var metainfo map[string]interface{}
	if err := bencode.NewDecoder(r).Decode(&metainfo); err != nil {
		return nil, &MetainfoError{Msg: fmt.Sprintf("Invalid bencoded data: %v", err)}
	}
	if metainfo == nil {
		return nil, &MetainfoError{Msg: "Not a dictionary"}
	}

	t := &Torrent{metainfo: metainfo}
	if validate {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ReadFile is Read for a file on disk
func ReadFile(path string, validate bool) (*Torrent, error) {
	path = os.ExpandEnv(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading torrent file: %w", err)
	}
	defer f.Close()
	return Read(f, validate)
}

// Decode is Read for bytes in memory. It validates.
func Decode(b []byte) (*Torrent, error) {
	return Read(bytes.NewReader(b), true)
}

func encode(metainfo map[string]interface{}) ([]byte, error) {
	v, err := normalize(metainfo)
	if err != nil {
		return nil, err
	}
	b, err := bencode.EncodeBytes(v)
	if err != nil {
		return nil, fmt.Errorf("encoding metainfo: %w", err)
	}
	return b, nil
}

var errUnencodable = errors.New("value can't be bencoded")

// normalize converts the document into the types bencode knows: strings,
// int64, lists and dictionaries. Booleans become 0 or 1, times become Unix
// timestamps and nil values are dropped.
func normalize(v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case string, int64:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case time.Time:
		return v.Unix(), nil
	case []string:
		return stringList(v), nil
	case []interface{}:
		list := make([]interface{}, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			list = append(list, n)
		}
		return list, nil
	case map[string]interface{}:
		dict := make(map[string]interface{}, len(v))
		for key, item := range v {
			if item == nil {
				continue
			}
			n, err := normalize(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			dict[key] = n
		}
		return dict, nil
	}
	return nil, fmt.Errorf("%w: %T", errUnencodable, v)
}
