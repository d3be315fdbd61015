// Package tracker maps tracker tiers to and from the "announce" and
// "announce-list" fields of a torrent (BEP0003, BEP0012).
package tracker

// Tiers derives the tier list from the raw document fields.
//
// The announce URL is treated as its own leading tier unless it already
// belongs to one of the tiers in announce-list.
func Tiers(announce string, announceList [][]string) [][]string {
	var tiers [][]string
	for _, tier := range announceList {
		var urls []string
		for _, u := range tier {
			if u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) > 0 {
			tiers = append(tiers, urls)
		}
	}

	if announce != "" && !contains(tiers, announce) {
		tiers = append([][]string{{announce}}, tiers...)
	}
	return tiers
}

// Render returns the document fields for tiers. Empty tiers are dropped and a
// URL that appears more than once is only kept at its first position.
//
// With no URLs at all both return values are empty. With exactly one URL only
// announce is set and announceList is nil.
func Render(tiers [][]string) (announce string, announceList [][]string) {
	seen := map[string]bool{}
	for _, tier := range tiers {
		var urls []string
		for _, u := range tier {
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
		}
		if len(urls) > 0 {
			announceList = append(announceList, urls)
		}
	}

	switch len(seen) {
	case 0:
		return "", nil
	case 1:
		return announceList[0][0], nil
	default:
		return announceList[0][0], announceList
	}
}

// Flatten lists every URL in tier order
func Flatten(tiers [][]string) []string {
	var urls []string
	for _, tier := range tiers {
		urls = append(urls, tier...)
	}
	return urls
}

// Normalize resolves the accepted setter shapes to tiers:
//
//	nil                      no tiers
//	string                   one tier with one URL
//	[]string                 one tier per URL
//	[][]string               one tier per inner slice
//	[]interface{}            each element a string (own tier) or a list (tier)
//
// ok is false for anything else.
func Normalize(v interface{}) (tiers [][]string, ok bool) {
	switch v := v.(type) {
	case nil:
		return nil, true
	case string:
		return [][]string{{v}}, true
	case []string:
		for _, u := range v {
			tiers = append(tiers, []string{u})
		}
		return tiers, true
	case [][]string:
		for _, tier := range v {
			tiers = append(tiers, append([]string(nil), tier...))
		}
		return tiers, true
	case []interface{}:
		for _, item := range v {
			switch item := item.(type) {
			case string:
				tiers = append(tiers, []string{item})
			default:
				tier, ok := Strings(item)
				if !ok {
					return nil, false
				}
				tiers = append(tiers, tier)
			}
		}
		return tiers, true
	}
	return nil, false
}

// Strings converts a decoded or hand-built list of strings
func Strings(v interface{}) ([]string, bool) {
	switch v := v.(type) {
	case nil:
		return nil, true
	case string:
		return []string{v}, true
	case []string:
		return append([]string(nil), v...), true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// List converts a decoded or hand-built list of lists of strings. Invalid
// tiers are skipped, like a client would skip them when announcing.
func List(v interface{}) [][]string {
	switch v := v.(type) {
	case [][]string:
		return v
	case []interface{}:
		var tiers [][]string
		for _, item := range v {
			if tier, ok := Strings(item); ok {
				tiers = append(tiers, tier)
			}
		}
		return tiers
	}
	return nil
}

func contains(tiers [][]string, url string) bool {
	for _, tier := range tiers {
		for _, u := range tier {
			if u == url {
				return true
			}
		}
	}
	return false
}
