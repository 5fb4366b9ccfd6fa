// Package dav implements the WebDAV property client used by collection
// discovery: PROPFIND requests at a given depth returning typed per-resource
// property bags.
package dav

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/beevik/etree"
)

var nsPrefixes = map[string]string{
	NSDav:            "d",
	NSCardDAV:        "card",
	NSCalDAV:         "cal",
	NSCalendarServer: "cs",
	NSApple:          "apple",
}

// Client issues PROPFIND requests against a single DAV endpoint.
type Client struct {
	http   *http.Client
	base   *url.URL
	logger *slog.Logger
}

// NewClient creates a client resolving relative targets against baseURL.
func NewClient(hc *http.Client, baseURL string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", baseURL, err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return &Client{http: hc, base: u, logger: logger}, nil
}

// BaseURL returns the endpoint the client was created with.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// ResolveURL resolves a target (absolute or relative) against the base URL.
func (c *Client) ResolveURL(target string) (*url.URL, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parsing URL %q: %w", target, err)
	}
	return c.base.ResolveReference(ref), nil
}

// Propfind performs a PROPFIND request for the given properties and parses
// the multistatus body. Non-success responses yield an *HTTPError carrying
// the status code.
func (c *Client) Propfind(ctx context.Context, target string, depth int, props ...PropName) (*Multistatus, error) {
	resolved, err := c.ResolveURL(target)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("starting PROPFIND request",
		"url", resolved.String(),
		"depth", depth,
		"properties", len(props))

	body, err := buildPropfindBody(props)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "PROPFIND", resolved.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Depth", strconv.Itoa(depth))
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PROPFIND %s: %w", resolved, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus {
		c.logger.Debug("unexpected response status",
			"status_code", resp.StatusCode,
			"url", resolved.String())
		if resp.StatusCode >= 400 {
			return nil, &HTTPError{Code: resp.StatusCode, URL: resolved.String()}
		}
		return nil, fmt.Errorf("unexpected status %d for PROPFIND %s", resp.StatusCode, resolved)
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("parsing multistatus body: %w", err)
	}

	ms, err := parseMultistatus(doc)
	if err != nil {
		return nil, fmt.Errorf("parsing multistatus for %s: %w", resolved, err)
	}

	c.logger.Debug("PROPFIND request complete",
		"url", resolved.String(),
		"responses", len(ms.Responses))
	return ms, nil
}

func buildPropfindBody(props []PropName) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("d:propfind")
	for space, prefix := range nsPrefixes {
		root.CreateAttr("xmlns:"+prefix, space)
	}

	propElem := root.CreateElement("d:prop")
	for _, p := range props {
		prefix, ok := nsPrefixes[p.Space]
		if !ok {
			return nil, fmt.Errorf("unknown property namespace %q", p.Space)
		}
		propElem.CreateElement(prefix + ":" + p.Local)
	}

	return doc.WriteToBytes()
}
