package torrentfile

import (
	"errors"
	"reflect"
	"testing"

	"github.com/givxl33t/metatorrent/magnet"
)

func TestMagnetFromTorrent(t *testing.T) {
	tor := generated(t)
	m, err := tor.Magnet()
	if err != nil {
		t.Fatal(err)
	}

	infohash, _ := tor.Infohash()
	if m.InfoHash != infohash {
		t.Errorf("InfoHash = %s, want %s", m.InfoHash, infohash)
	}
	if m.DisplayName != "content" || m.Length != 41000 {
		t.Errorf("dn = %q, xl = %d", m.DisplayName, m.Length)
	}
	if !reflect.DeepEqual(m.Trackers, []string{"http://foo", "http://bar"}) {
		t.Errorf("tr = %v", m.Trackers)
	}
	if !reflect.DeepEqual(m.Webseeds, []string{"http://seed/content"}) {
		t.Errorf("ws = %v", m.Webseeds)
	}

	parsed, err := magnet.Parse(m.String())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(parsed, m) {
		t.Errorf("Parse(%s) = %+v, want %+v", m, parsed, m)
	}

	var metaErr *MetainfoError
	if _, err := New().Magnet(); !errors.As(err, &metaErr) {
		t.Errorf("Magnet() of empty torrent error = %v", err)
	}
}

func TestFromMagnet(t *testing.T) {
	const hexHash = "e167b1fbb42ea72f051f4f50432703308efb8fd1"
	for _, xt := range []string{hexHash, "4FT3D65UF2TS6BI7J5IEGJYDGCHPXD6R"} {
		m, err := magnet.Parse("magnet:?xt=urn:btih:" + xt + "&dn=Foo&xl=123&tr=http://a&tr=http://b&ws=http://w")
		if err != nil {
			t.Fatal(err)
		}
		tor, err := FromMagnet(m)
		if err != nil {
			t.Fatal(err)
		}

		if name, _ := tor.Name(); name != "Foo" {
			t.Errorf("Name() = %q", name)
		}
		if size, ok := tor.Size(); !ok || size != 123 {
			t.Errorf("Size() = %d, %v", size, ok)
		}
		if tiers := tor.Trackers().Tiers(); !reflect.DeepEqual(tiers, [][]string{{"http://a"}, {"http://b"}}) {
			t.Errorf("Tiers() = %v", tiers)
		}
		if seeds := tor.Webseeds().List(); !reflect.DeepEqual(seeds, []string{"http://w"}) {
			t.Errorf("Webseeds() = %v", seeds)
		}
		if got, err := tor.Infohash(); err != nil || got != hexHash {
			t.Errorf("Infohash() = %s, %v, want %s", got, err, hexHash)
		}
		if hashes, _ := tor.Hashes(); hashes != nil {
			t.Error("torrent from a magnet link has pieces")
		}
		if tor.IsReady() {
			t.Error("torrent from a magnet link is ready")
		}
	}
}

func TestFromMagnetInvalidTracker(t *testing.T) {
	m, err := magnet.New("e167b1fbb42ea72f051f4f50432703308efb8fd1")
	if err != nil {
		t.Fatal(err)
	}
	m.Trackers = []string{"http://foo:bar"}
	if _, err := FromMagnet(m); err == nil {
		t.Error("invalid tracker accepted")
	}
}
