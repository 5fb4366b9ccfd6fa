package dav

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveHref resolves a (possibly relative) href against the URL of the
// resource that reported it.
func ResolveHref(base *url.URL, href string) (*url.URL, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("parsing href %q: %w", href, err)
	}
	u := base.ResolveReference(ref)
	u.Fragment = ""
	u.RawQuery = ""
	return u, nil
}

// WithTrailingSlash returns a copy of u whose path ends in a slash.
// Collection URLs are keyed in this form so that two hrefs naming the same
// location compare equal regardless of their textual shape.
func WithTrailingSlash(u *url.URL) *url.URL {
	c := *u
	if !strings.HasSuffix(c.Path, "/") {
		c.Path += "/"
		if c.RawPath != "" {
			c.RawPath += "/"
		}
	}
	return &c
}

// ResolveCollectionURL resolves href against base and normalizes it with a
// trailing slash, returning the canonical string key.
func ResolveCollectionURL(base *url.URL, href string) (string, error) {
	u, err := ResolveHref(base, href)
	if err != nil {
		return "", err
	}
	return WithTrailingSlash(u).String(), nil
}
