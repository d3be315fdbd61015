package torrentfile

import (
	"fmt"

	"github.com/givxl33t/metatorrent/tracker"
	"github.com/givxl33t/metatorrent/urls"
)

// URLs is a live view of a flat list of URLs in the document, "url-list"
// for web seeds (BEP0019) or "httpseeds" (BEP0017). An empty list removes
// the key.
type URLs struct {
	t   *Torrent
	key string
}

// Webseeds returns the view of "url-list"
func (t *Torrent) Webseeds() *URLs {
	return &URLs{t: t, key: "url-list"}
}

// Httpseeds returns the view of "httpseeds"
func (t *Torrent) Httpseeds() *URLs {
	return &URLs{t: t, key: "httpseeds"}
}

// List returns a copy of the URLs. BEP0019 allows a single string instead of
// a list, which is read as a list of one.
func (u *URLs) List() []string {
	list, _ := tracker.Strings(u.t.metainfo[u.key])
	return list
}

func (u *URLs) Len() int {
	return len(u.List())
}

// Set replaces the list. v may be nil, a single URL or a list of URLs; every
// URL is validated before anything changes.
func (u *URLs) Set(v interface{}) error {
	var list []string
	switch v := v.(type) {
	case nil:
	case string:
		list = []string{v}
	case []string:
		list = v
	case []interface{}:
		strs, ok := tracker.Strings(v)
		if !ok {
			return &TypeError{Want: "string, []string or nil", Value: v}
		}
		list = strs
	default:
		return &TypeError{Want: "string, []string or nil", Value: v}
	}
	if err := urls.ValidateAll(list); err != nil {
		return err
	}
	u.write(list)
	return nil
}

// Append adds URLs to the end of the list
func (u *URLs) Append(added ...string) error {
	return u.Insert(u.Len(), added...)
}

// Insert adds URLs at position i
func (u *URLs) Insert(i int, added ...string) error {
	if err := urls.ValidateAll(added); err != nil {
		return err
	}
	list := u.List()
	if i < 0 || i > len(list) {
		return fmt.Errorf("index out of range: %d", i)
	}
	u.write(append(list[:i], append(append([]string(nil), added...), list[i:]...)...))
	return nil
}

// Remove removes every occurrence of url and reports whether there was one
func (u *URLs) Remove(url string) bool {
	list := u.List()
	kept := list[:0]
	for _, s := range list {
		if s != url {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(list) {
		return false
	}
	u.write(kept)
	return true
}

// Clear removes the key from the document
func (u *URLs) Clear() {
	u.write(nil)
}

func (u *URLs) write(list []string) {
	if len(list) == 0 {
		delete(u.t.metainfo, u.key)
		return
	}
	u.t.metainfo[u.key] = stringList(list)
}
