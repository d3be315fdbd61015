package magnet

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/givxl33t/metatorrent/urls"
)

const (
	hexHash    = "e167b1fbb42ea72f051f4f50432703308efb8fd1"
	base32Hash = "4FT3D65UF2TS6BI7J5IEGJYDGCHPXD6R"
)

func TestParseRoundTrip(t *testing.T) {
	m := &Magnet{
		InfoHash:    hexHash,
		DisplayName: "Foo",
		Trackers:    []string{"http://a", "http://b"},
	}
	uri := m.String()
	want := "magnet:?xt=urn:btih:" + hexHash + "&dn=Foo&tr=http://a&tr=http://b"
	if uri != want {
		t.Fatalf("String() = %q, want %q", uri, want)
	}

	parsed, err := Parse(uri)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(parsed, m) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", parsed, m)
	}
}

func TestParseAllParameters(t *testing.T) {
	uri := "magnet:?xt=urn:btih:" + base32Hash +
		"&dn=My+Show%21" +
		"&xl=12345" +
		"&xs=http://example.org/foo.torrent" +
		"&as=https://mirror.example.org/foo.torrent" +
		"&kt=one,two%2Cthree" +
		"&tr=udp://tracker:1337&tr=http://tracker/announce" +
		"&ws=http://seed/foo" +
		"&x.pe=10.0.0.1:6881"

	m, err := Parse(uri)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := &Magnet{
		InfoHash:         base32Hash,
		DisplayName:      "My Show!",
		Length:           12345,
		ExactSource:      "http://example.org/foo.torrent",
		AcceptableSource: "https://mirror.example.org/foo.torrent",
		Keywords:         []string{"one", "two", "three"},
		Trackers:         []string{"udp://tracker:1337", "http://tracker/announce"},
		Webseeds:         []string{"http://seed/foo"},
		X:                map[string]string{"pe": "10.0.0.1:6881"},
	}
	if !reflect.DeepEqual(m, want) {
		t.Fatalf("Parse() =\n %+v\nwant\n %+v", m, want)
	}

	again, err := Parse(m.String())
	if err != nil {
		t.Fatalf("Parse(String()): %v", err)
	}
	if !reflect.DeepEqual(again, m) {
		t.Errorf("re-parse mismatch:\n got %+v\nwant %+v", again, m)
	}
}

func TestStringParameterOrder(t *testing.T) {
	m := &Magnet{
		InfoHash:         hexHash,
		DisplayName:      "name",
		Length:           7,
		ExactSource:      "http://xs",
		AcceptableSource: "http://as",
		Keywords:         []string{"a", "b"},
		Trackers:         []string{"http://tr"},
		Webseeds:         []string{"http://ws"},
		X:                map[string]string{"b": "2", "a": "1"},
	}
	var order []string
	for _, part := range strings.Split(strings.TrimPrefix(m.String(), "magnet:?"), "&") {
		order = append(order, strings.SplitN(part, "=", 2)[0])
	}
	want := []string{"xt", "dn", "xl", "xs", "as", "kt", "tr", "ws", "x.a", "x.b"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("parameter order = %v, want %v", order, want)
	}
}

func TestDisplayNameNewlines(t *testing.T) {
	m, err := Parse("magnet:?xt=urn:btih:" + hexHash + "&dn=foo%0Abar")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.DisplayName != "foo bar" {
		t.Errorf("DisplayName = %q, want %q", m.DisplayName, "foo bar")
	}
}

func TestParseErrors(t *testing.T) {
	xt := "xt=urn:btih:" + hexHash
	tests := []struct {
		name   string
		uri    string
		reason string
	}{
		{"wrong scheme", "http://foo?" + xt, "Not a magnet URI"},
		{"missing xt", "magnet:?dn=foo", `Missing exact topic ("xt")`},
		{"multiple xt", "magnet:?" + xt + "&" + xt, `Multiple exact topics ("xt")`},
		{"short hash", "magnet:?xt=urn:btih:abc", `Invalid exact topic ("xt")`},
		{"wrong urn", "magnet:?xt=urn:sha1:" + hexHash, `Invalid exact topic ("xt")`},
		{"unknown parameter", "magnet:?" + xt + "&foo=bar", "foo: Unknown parameter"},
		{"multiple dn", "magnet:?" + xt + "&dn=a&dn=b", `Multiple display names ("dn")`},
		{"multiple xl", "magnet:?" + xt + "&xl=1&xl=2", `Multiple exact lengths ("xl")`},
		{"zero xl", "magnet:?" + xt + "&xl=0", `Invalid exact length ("xl")`},
		{"text xl", "magnet:?" + xt + "&xl=big", `Invalid exact length ("xl")`},
		{"multiple kt", "magnet:?" + xt + "&kt=a&kt=b", `Multiple keyword topics ("kt")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.uri)
			var magnetErr *Error
			if !errors.As(err, &magnetErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if magnetErr.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", magnetErr.Reason, tt.reason)
			}
			if magnetErr.URI != tt.uri {
				t.Errorf("URI = %q, want %q", magnetErr.URI, tt.uri)
			}
		})
	}
}

func TestParseInvalidURLs(t *testing.T) {
	xt := "xt=urn:btih:" + hexHash
	for _, uri := range []string{
		"magnet:?" + xt + "&tr=http://foo:bar",
		"magnet:?" + xt + "&xs=nope",
		"magnet:?" + xt + "&as=http://",
	} {
		_, err := Parse(uri)
		var urlErr *urls.Error
		if !errors.As(err, &urlErr) {
			t.Errorf("Parse(%q) = %v, want *urls.Error", uri, err)
		}
	}
}

func TestNewAndSetXT(t *testing.T) {
	if _, err := New("nothex"); err == nil {
		t.Error("New should reject an invalid info hash")
	}
	m, err := New(base32Hash)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.XT() != "urn:btih:"+base32Hash {
		t.Errorf("XT() = %q", m.XT())
	}
	if err := m.SetXT("urn:btih:" + hexHash); err != nil {
		t.Fatalf("SetXT: %v", err)
	}
	if m.InfoHash != hexHash {
		t.Errorf("InfoHash = %q, want %q", m.InfoHash, hexHash)
	}
	if err := m.SetXT(hexHash); err == nil {
		t.Error("SetXT should require the urn:btih: prefix")
	}
}

func TestInfohashHex(t *testing.T) {
	for _, hash := range []string{hexHash, strings.ToUpper(hexHash), base32Hash, strings.ToLower(base32Hash)} {
		m := &Magnet{InfoHash: hash}
		got, err := m.InfohashHex()
		if err != nil {
			t.Fatalf("InfohashHex(%q): %v", hash, err)
		}
		if got != hexHash {
			t.Errorf("InfohashHex(%q) = %q, want %q", hash, got, hexHash)
		}
	}
}
