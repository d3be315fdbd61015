// Package magnet parses and renders magnet links (BEP0009)
package magnet

import (
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/givxl33t/metatorrent/urls"
)

var (
	infoHashRegex = regexp.MustCompile(`(?i)^([0-9a-f]{40}|[a-z2-7]{32})$`)
	xtRegex       = regexp.MustCompile(`(?i)^urn:btih:([0-9a-f]{40}|[a-z2-7]{32})$`)
)

var knownParameters = map[string]bool{
	"xt": true,
	"dn": true,
	"xl": true,
	"xs": true,
	"as": true,
	"kt": true,
	"tr": true,
	"ws": true,
}

// Error is returned for a magnet link that can't be used
type Error struct {
	URI    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.URI, e.Reason)
}

// Magnet holds the parameters of a magnet link. Empty strings, zero Length
// and nil slices mean the parameter is absent.
type Magnet struct {
	InfoHash         string            // xt, base 16 or base 32 as given
	DisplayName      string            // dn
	Length           int64             // xl
	ExactSource      string            // xs, torrent file URL
	AcceptableSource string            // as, fallback torrent file URL
	Keywords         []string          // kt
	Trackers         []string          // tr
	Webseeds         []string          // ws (BEP0019)
	X                map[string]string // x.<name>
}

// New returns a magnet link for the info hash given as 40 hex or 32 base32
// characters
func New(infoHash string) (*Magnet, error) {
	if !infoHashRegex.MatchString(infoHash) {
		return nil, &Error{URI: infoHash, Reason: "Invalid info hash"}
	}
	return &Magnet{InfoHash: infoHash}, nil
}

// XT returns the exact topic, "urn:btih:" followed by the info hash
func (m *Magnet) XT() string {
	return "urn:btih:" + m.InfoHash
}

// SetXT sets InfoHash from an exact topic
func (m *Magnet) SetXT(xt string) error {
	match := xtRegex.FindStringSubmatch(xt)
	if match == nil {
		return &Error{URI: xt, Reason: `Invalid exact topic ("xt")`}
	}
	m.InfoHash = match[1]
	return nil
}

// InfohashHex returns the info hash as 40 lower case hex characters,
// converting from base 32 if needed
func (m *Magnet) InfohashHex() (string, error) {
	if len(m.InfoHash) == 40 {
		if _, err := hex.DecodeString(m.InfoHash); err != nil {
			return "", &Error{URI: m.InfoHash, Reason: "Invalid info hash"}
		}
		return strings.ToLower(m.InfoHash), nil
	}
	raw, err := base32.StdEncoding.DecodeString(strings.ToUpper(m.InfoHash))
	if err != nil || len(raw) != 20 {
		return "", &Error{URI: m.InfoHash, Reason: "Invalid info hash"}
	}
	return hex.EncodeToString(raw), nil
}

// Parse parses a magnet link
func Parse(uri string) (*Magnet, error) {
	link, err := url.Parse(uri)
	if err != nil {
		return nil, &Error{URI: uri, Reason: "Invalid URI"}
	}
	if link.Scheme != "magnet" {
		return nil, &Error{URI: uri, Reason: "Not a magnet URI"}
	}

	query, err := url.ParseQuery(link.RawQuery)
	if err != nil {
		return nil, &Error{URI: uri, Reason: "Invalid query"}
	}

	// sorted so the reported parameter doesn't depend on map order
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !knownParameters[key] && !strings.HasPrefix(key, "x.") {
			return nil, &Error{URI: uri, Reason: fmt.Sprintf("%s: Unknown parameter", key)}
		}
	}

	// extract query parameter xt
	xts := query["xt"]
	switch {
	case len(xts) == 0:
		return nil, &Error{URI: uri, Reason: `Missing exact topic ("xt")`}
	case len(xts) > 1:
		return nil, &Error{URI: uri, Reason: `Multiple exact topics ("xt")`}
	}
	m := &Magnet{}
	if err := m.SetXT(xts[0]); err != nil {
		return nil, &Error{URI: uri, Reason: `Invalid exact topic ("xt")`}
	}

	// parameters that accept only one value
	single := func(param, name string) (string, bool, error) {
		values, ok := query[param]
		if !ok {
			return "", false, nil
		}
		if len(values) > 1 {
			return "", false, &Error{URI: uri, Reason: fmt.Sprintf("Multiple %s (%q)", name, param)}
		}
		return values[0], true, nil
	}

	if dn, ok, err := single("dn", "display names"); err != nil {
		return nil, err
	} else if ok {
		m.DisplayName = displayName(dn)
	}

	if xl, ok, err := single("xl", "exact lengths"); err != nil {
		return nil, err
	} else if ok {
		length, err := strconv.ParseInt(xl, 10, 64)
		if err != nil || length < 1 {
			return nil, &Error{URI: uri, Reason: `Invalid exact length ("xl")`}
		}
		m.Length = length
	}

	if xs, ok, err := single("xs", "exact sources"); err != nil {
		return nil, err
	} else if ok {
		if err := urls.Validate(xs); err != nil {
			return nil, err
		}
		m.ExactSource = xs
	}

	if as, ok, err := single("as", "acceptable sources"); err != nil {
		return nil, err
	} else if ok {
		if err := urls.Validate(as); err != nil {
			return nil, err
		}
		m.AcceptableSource = as
	}

	if kt, ok, err := single("kt", "keyword topics"); err != nil {
		return nil, err
	} else if ok {
		m.Keywords = strings.Split(kt, ",")
	}

	// parameters that accept multiple values
	if trs, ok := query["tr"]; ok {
		if err := urls.ValidateAll(trs); err != nil {
			return nil, err
		}
		m.Trackers = trs
	}
	if wss, ok := query["ws"]; ok {
		m.Webseeds = wss
	}

	for _, key := range keys {
		if name := strings.TrimPrefix(key, "x."); name != key {
			if m.X == nil {
				m.X = map[string]string{}
			}
			m.X[name] = query[key][0]
		}
	}

	return m, nil
}

// String renders the magnet link. Parameters appear in the order
// xt, dn, xl, xs, as, kt, tr, ws, x.*
func (m *Magnet) String() string {
	parts := []string{"xt=" + m.XT()}

	if m.DisplayName != "" {
		parts = append(parts, "dn="+quote(displayName(m.DisplayName)))
	}
	if m.Length > 0 {
		parts = append(parts, "xl="+strconv.FormatInt(m.Length, 10))
	}
	if m.ExactSource != "" {
		parts = append(parts, "xs="+quote(m.ExactSource))
	}
	if m.AcceptableSource != "" {
		parts = append(parts, "as="+quote(m.AcceptableSource))
	}
	if m.Keywords != nil {
		keywords := make([]string, len(m.Keywords))
		for i, k := range m.Keywords {
			keywords[i] = quote(k)
		}
		parts = append(parts, "kt="+strings.Join(keywords, ","))
	}
	for _, tr := range m.Trackers {
		parts = append(parts, "tr="+quote(tr))
	}
	for _, ws := range m.Webseeds {
		parts = append(parts, "ws="+quote(ws))
	}

	names := make([]string, 0, len(m.X))
	for name := range m.X {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, "x."+name+"="+quote(m.X[name]))
	}

	return "magnet:?" + strings.Join(parts, "&")
}

func displayName(dn string) string {
	dn = strings.ReplaceAll(dn, "\r\n", " ")
	return strings.ReplaceAll(dn, "\n", " ")
}

// quote percent-encodes a value but keeps URLs readable
func quote(s string) string {
	s = url.QueryEscape(s)
	s = strings.ReplaceAll(s, "%3A", ":")
	return strings.ReplaceAll(s, "%2F", "/")
}
