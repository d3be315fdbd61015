package torrentfile

import (
	"time"
)

// Comment returns the top-level "comment"
func (t *Torrent) Comment() (string, bool) {
	s, ok := t.metainfo["comment"].(string)
	return s, ok
}

func (t *Torrent) SetComment(comment string) {
	t.metainfo["comment"] = comment
}

func (t *Torrent) UnsetComment() {
	delete(t.metainfo, "comment")
}

// CreatedBy returns "created by", the application that made the torrent
func (t *Torrent) CreatedBy() (string, bool) {
	s, ok := t.metainfo["created by"].(string)
	return s, ok
}

func (t *Torrent) SetCreatedBy(createdBy string) {
	t.metainfo["created by"] = createdBy
}

func (t *Torrent) UnsetCreatedBy() {
	delete(t.metainfo, "created by")
}

// Source returns "source" from the info dictionary. Private trackers use it
// to tell their torrents apart, so it changes the info hash.
func (t *Torrent) Source() (string, bool) {
	s, ok := t.readInfo()["source"].(string)
	return s, ok
}

func (t *Torrent) SetSource(source string) {
	t.info()["source"] = source
}

func (t *Torrent) UnsetSource() {
	delete(t.info(), "source")
}

// CreationDate returns "creation date". Integers are read as Unix
// timestamps.
func (t *Torrent) CreationDate() (time.Time, bool) {
	switch v := t.metainfo["creation date"].(type) {
	case time.Time:
		return v, true
	case int64:
		return time.Unix(v, 0), true
	case int:
		return time.Unix(int64(v), 0), true
	}
	return time.Time{}, false
}

// SetCreationDate accepts a time.Time, an integer Unix timestamp or nil to
// remove the date. Anything else is a *TypeError.
func (t *Torrent) SetCreationDate(date interface{}) error {
	switch v := date.(type) {
	case nil:
		delete(t.metainfo, "creation date")
	case time.Time:
		t.metainfo["creation date"] = v
	case int:
		t.metainfo["creation date"] = time.Unix(int64(v), 0)
	case int64:
		t.metainfo["creation date"] = time.Unix(v, 0)
	case int32:
		t.metainfo["creation date"] = time.Unix(int64(v), 0)
	case uint32:
		t.metainfo["creation date"] = time.Unix(int64(v), 0)
	default:
		return &TypeError{Want: "time.Time, int or nil", Value: date}
	}
	return nil
}

// Private reports whether "private" is set in the info dictionary (BEP0027).
// A missing flag reads as false.
func (t *Torrent) Private() bool {
	switch v := t.readInfo()["private"].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// SetPrivate always stores the flag, even when false
func (t *Torrent) SetPrivate(private bool) {
	t.info()["private"] = private
}

// UnsetPrivate removes the flag from the document
func (t *Torrent) UnsetPrivate() {
	delete(t.info(), "private")
}
