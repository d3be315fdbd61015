package torrentfile

import (
	"github.com/givxl33t/metatorrent/magnet"
)

// Magnet returns a magnet link for the torrent with its info hash, name,
// size, trackers and web seeds
func (t *Torrent) Magnet() (*magnet.Magnet, error) {
	infohash, err := t.Infohash()
	if err != nil {
		return nil, err
	}
	m, err := magnet.New(infohash)
	if err != nil {
		return nil, err
	}
	if name, ok := t.Name(); ok {
		m.DisplayName = name
	}
	if size, ok := t.Size(); ok && size > 0 {
		m.Length = size
	}
	m.Trackers = t.Trackers().URLs()
	m.Webseeds = t.Webseeds().List()
	return m, nil
}

// FromMagnet returns a torrent with everything a magnet link knows about:
// name, size, one tier per tracker and web seeds. Until an info dictionary
// is filled in, the link's info hash is reported as the torrent's.
func FromMagnet(m *magnet.Magnet) (*Torrent, error) {
	infohash, err := m.InfohashHex()
	if err != nil {
		return nil, err
	}

	t := New()
	t.infohash = infohash
	if m.DisplayName != "" {
		t.SetName(m.DisplayName)
	}
	if m.Length > 0 {
		t.info()["length"] = m.Length
	}

	tiers := make([][]string, len(m.Trackers))
	for i, tr := range m.Trackers {
		tiers[i] = []string{tr}
	}
	if err := t.Trackers().Set(tiers); err != nil {
		return nil, err
	}
	if len(m.Webseeds) > 0 {
		if err := t.Webseeds().Set(m.Webseeds); err != nil {
			return nil, err
		}
	}
	return t, nil
}

