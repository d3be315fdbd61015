// Package urls validates the URLs stored in a torrent: trackers, web seeds,
// HTTP seeds and magnet sources.
package urls

import (
	"fmt"
	"net/url"
	"strconv"
)

// Error is returned for a malformed URL
type Error struct {
	URL string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: Invalid URL", e.URL)
}

// Validate makes sure raw has a scheme and a host, and a numeric port if it
// has one at all
func Validate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &Error{URL: raw}
	}
	if u.Scheme == "" || u.Host == "" || u.Hostname() == "" {
		return &Error{URL: raw}
	}
	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 0 || n > 65535 {
			return &Error{URL: raw}
		}
	}
	return nil
}

// ValidateAll stops at the first invalid URL
func ValidateAll(raws []string) error {
	for _, raw := range raws {
		if err := Validate(raw); err != nil {
			return err
		}
	}
	return nil
}
