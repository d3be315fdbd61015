package torrentfile

import (
	"bytes"
	"crypto/sha1"
	"encoding/base32"
	"encoding/hex"

	"github.com/givxl33t/metatorrent/content"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// InfohashBytes returns the SHA-1 digest of the bencoded info dictionary.
//
// A torrent made from a magnet link reports the link's info hash until its
// info dictionary can be hashed.
func (t *Torrent) InfohashBytes() ([sha1.Size]byte, error) {
	var sum [sha1.Size]byte
	if err := t.validateHashable(); err != nil {
		if t.infohash != "" {
			raw, decErr := hex.DecodeString(t.infohash)
			if decErr == nil && len(raw) == sha1.Size {
				copy(sum[:], raw)
				return sum, nil
			}
		}
		return sum, err
	}

	b, err := encode(t.readInfo())
	if err != nil {
		return sum, err
	}
	return sha1.Sum(b), nil
}

// Infohash returns the info hash as 40 lower case hex characters
func (t *Torrent) Infohash() (string, error) {
	sum, err := t.InfohashBytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum[:]), nil
}

// InfohashBase32 returns the info hash as 32 upper case base 32 characters
func (t *Torrent) InfohashBase32() (string, error) {
	sum, err := t.InfohashBytes()
	if err != nil {
		return "", err
	}
	return base32.StdEncoding.EncodeToString(sum[:]), nil
}

// RandomizeInfohash reports whether the info dictionary carries random
// entropy
func (t *Torrent) RandomizeInfohash() bool {
	return t.randomize
}

// SetRandomizeInfohash adds or removes a random "entropy" value in the info
// dictionary. Content and trackers stay the same but the info hash changes,
// which is how one file can be seeded in several swarms. A new value is
// drawn on every Generate.
func (t *Torrent) SetRandomizeInfohash(randomize bool) {
	t.randomize = randomize
	if randomize {
		t.drawEntropy()
		return
	}
	delete(t.info(), "entropy")
}

func (t *Torrent) drawEntropy() {
	entropy := uuid.NewString()
	t.info()["entropy"] = entropy
	log.WithField("entropy", entropy).Debug("randomized info hash")
}

// Equal reports whether both documents encode to the same bytes. Local state
// such as the path isn't compared.
func (t *Torrent) Equal(other *Torrent) bool {
	if t == nil || other == nil {
		return t == other
	}
	a, errA := t.Dump()
	b, errB := other.Dump()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Copy returns a deep copy of the document and the local state. Edits to the
// copy don't show up in t.
func (t *Torrent) Copy() *Torrent {
	metainfo, _ := deepCopy(t.metainfo).(map[string]interface{})
	c := &Torrent{
		metainfo:  metainfo,
		path:      t.path,
		exclude:   append([]string(nil), t.exclude...),
		nameSet:   t.nameSet,
		randomize: t.randomize,
		infohash:  t.infohash,
	}
	if t.files != nil {
		c.files = make([]content.File, len(t.files))
		for i, f := range t.files {
			f.Segments = append([]string(nil), f.Segments...)
			c.files[i] = f
		}
	}
	return c
}

func deepCopy(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, item := range v {
			m[k] = deepCopy(item)
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(v))
		for i, item := range v {
			l[i] = deepCopy(item)
		}
		return l
	case []string:
		return append([]string(nil), v...)
	case []byte:
		return append([]byte(nil), v...)
	}
	return v
}
