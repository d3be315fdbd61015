package torrentfile

import (
	"fmt"

	"github.com/givxl33t/metatorrent/tracker"
	"github.com/givxl33t/metatorrent/urls"
)

// Trackers is a live view of "announce" and "announce-list". It holds no
// URLs itself: every read derives the tiers from the document and every
// change renders them back immediately.
type Trackers struct {
	t *Torrent
}

// Trackers returns the tracker view of the torrent
func (t *Torrent) Trackers() *Trackers {
	return &Trackers{t: t}
}

// Tiers returns a copy of the current tiers
func (tr *Trackers) Tiers() [][]string {
	announce, _ := tr.t.metainfo["announce"].(string)
	return tracker.Tiers(announce, tracker.List(tr.t.metainfo["announce-list"]))
}

// Len returns the number of tiers
func (tr *Trackers) Len() int {
	return len(tr.Tiers())
}

// URLs returns every tracker URL in tier order
func (tr *Trackers) URLs() []string {
	return tracker.Flatten(tr.Tiers())
}

// Tier returns a view of the tier at index i
func (tr *Trackers) Tier(i int) *Tier {
	return &Tier{trackers: tr, index: i}
}

// Set replaces all trackers. v may be nil, a single URL, a list of URLs (one
// tier each) or a list of tiers.
func (tr *Trackers) Set(v interface{}) error {
	tiers, ok := tracker.Normalize(v)
	if !ok {
		return &TypeError{Want: "string, []string, [][]string or nil", Value: v}
	}
	for _, tier := range tiers {
		if err := urls.ValidateAll(tier); err != nil {
			return err
		}
	}
	tr.render(tiers)
	return nil
}

// Append adds a new tier after the existing ones
func (tr *Trackers) Append(tierURLs ...string) error {
	return tr.Insert(tr.Len(), tierURLs...)
}

// Insert adds a new tier at index i
func (tr *Trackers) Insert(i int, tierURLs ...string) error {
	if err := urls.ValidateAll(tierURLs); err != nil {
		return err
	}
	tiers := tr.Tiers()
	if i < 0 || i > len(tiers) {
		return fmt.Errorf("tier index out of range: %d", i)
	}
	tiers = append(tiers[:i], append([][]string{tierURLs}, tiers[i:]...)...)
	tr.render(tiers)
	return nil
}

// RemoveTier removes the tier at index i
func (tr *Trackers) RemoveTier(i int) error {
	tiers := tr.Tiers()
	if i < 0 || i >= len(tiers) {
		return fmt.Errorf("tier index out of range: %d", i)
	}
	tr.render(append(tiers[:i], tiers[i+1:]...))
	return nil
}

// Remove removes url from every tier and reports whether it was found
func (tr *Trackers) Remove(url string) bool {
	tiers := tr.Tiers()
	found := false
	for i, tier := range tiers {
		kept := tier[:0]
		for _, u := range tier {
			if u == url {
				found = true
				continue
			}
			kept = append(kept, u)
		}
		tiers[i] = kept
	}
	if found {
		tr.render(tiers)
	}
	return found
}

// Clear removes "announce" and "announce-list"
func (tr *Trackers) Clear() {
	tr.render(nil)
}

func (tr *Trackers) render(tiers [][]string) {
	announce, announceList := tracker.Render(tiers)
	if announce == "" {
		delete(tr.t.metainfo, "announce")
	} else {
		tr.t.metainfo["announce"] = announce
	}
	if announceList == nil {
		delete(tr.t.metainfo, "announce-list")
		return
	}

	list := make([]interface{}, len(announceList))
	for i, tier := range announceList {
		list[i] = stringList(tier)
	}
	tr.t.metainfo["announce-list"] = list
}

// Tier is a live view of one tier, addressed by its index
type Tier struct {
	trackers *Trackers
	index    int
}

// URLs returns the URLs of the tier, nil if the tier doesn't exist
func (tier *Tier) URLs() []string {
	tiers := tier.trackers.Tiers()
	if tier.index < 0 || tier.index >= len(tiers) {
		return nil
	}
	return tiers[tier.index]
}

// Append adds URLs to the end of the tier
func (tier *Tier) Append(tierURLs ...string) error {
	return tier.edit(func(current []string) ([]string, error) {
		return append(current, tierURLs...), nil
	}, tierURLs)
}

// Insert adds URLs at position i of the tier
func (tier *Tier) Insert(i int, tierURLs ...string) error {
	return tier.edit(func(current []string) ([]string, error) {
		if i < 0 || i > len(current) {
			return nil, fmt.Errorf("tracker index out of range: %d", i)
		}
		return append(current[:i], append(append([]string(nil), tierURLs...), current[i:]...)...), nil
	}, tierURLs)
}

// Remove removes url from the tier. An emptied tier disappears.
func (tier *Tier) Remove(url string) error {
	return tier.edit(func(current []string) ([]string, error) {
		for i, u := range current {
			if u == url {
				return append(current[:i], current[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%s: not in tier %d", url, tier.index)
	}, nil)
}

func (tier *Tier) edit(fn func([]string) ([]string, error), added []string) error {
	if err := urls.ValidateAll(added); err != nil {
		return err
	}
	tiers := tier.trackers.Tiers()
	if tier.index < 0 || tier.index >= len(tiers) {
		return fmt.Errorf("tier index out of range: %d", tier.index)
	}
	updated, err := fn(tiers[tier.index])
	if err != nil {
		return err
	}
	tiers[tier.index] = updated
	tier.trackers.render(tiers)
	return nil
}

func stringList(ss []string) []interface{} {
	list := make([]interface{}, len(ss))
	for i, s := range ss {
		list[i] = s
	}
	return list
}
