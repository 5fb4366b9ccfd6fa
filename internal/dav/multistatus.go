package dav

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/samber/mo"
)

// Multistatus is the parsed body of a 207 response.
type Multistatus struct {
	Responses []Response
}

// Response is one resource entry within a multistatus. Props carries the
// properties from all successful propstats; OK is false when the resource
// reported no successful propstat at all.
type Response struct {
	Href  string
	OK    bool
	Props PropSet
}

func parseMultistatus(doc *etree.Document) (*Multistatus, error) {
	if doc == nil || doc.Root() == nil {
		return nil, fmt.Errorf("empty document")
	}

	root := doc.Root()
	if root.Tag != "multistatus" {
		return nil, fmt.Errorf("invalid root tag: %s", root.Tag)
	}

	ms := &Multistatus{}
	for _, respElem := range root.SelectElements("response") {
		resp := Response{}

		if hrefElem := respElem.SelectElement("href"); hrefElem != nil {
			resp.Href = strings.TrimSpace(hrefElem.Text())
		}

		for _, propstatElem := range respElem.SelectElements("propstat") {
			code := 0
			if statusElem := propstatElem.SelectElement("status"); statusElem != nil {
				code = parseStatusCode(statusElem.Text())
			}
			if code/100 != 2 {
				continue
			}
			resp.OK = true
			if propElem := propstatElem.SelectElement("prop"); propElem != nil {
				for _, prop := range propElem.ChildElements() {
					resp.Props.absorb(prop)
				}
			}
		}

		ms.Responses = append(ms.Responses, resp)
	}

	return ms, nil
}

// parseStatusCode extracts the numeric code from a status line such as
// "HTTP/1.1 404 Not Found".
func parseStatusCode(status string) int {
	fields := strings.Fields(status)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

// elementMatches compares a parsed element against a property name. Servers
// that omit namespace declarations are matched on the local name alone.
func elementMatches(el *etree.Element, name PropName) bool {
	uri := el.NamespaceURI()
	if uri == "" {
		return el.Tag == name.Local
	}
	return uri == name.Space && el.Tag == name.Local
}

func hrefsOf(el *etree.Element) []string {
	var hrefs []string
	for _, hrefElem := range el.SelectElements("href") {
		if text := strings.TrimSpace(hrefElem.Text()); text != "" {
			hrefs = append(hrefs, text)
		}
	}
	return hrefs
}

func firstHrefOf(el *etree.Element) mo.Option[string] {
	if hrefs := hrefsOf(el); len(hrefs) > 0 {
		return mo.Some(hrefs[0])
	}
	return mo.None[string]()
}

// absorb folds one property element into the set.
func (p *PropSet) absorb(el *etree.Element) {
	switch {
	case elementMatches(el, PropResourceType):
		for _, child := range el.ChildElements() {
			p.ResourceTypes = append(p.ResourceTypes, PropName{Space: child.NamespaceURI(), Local: child.Tag})
		}
	case elementMatches(el, PropDisplayName):
		if text := strings.TrimSpace(el.Text()); text != "" {
			p.DisplayName = mo.Some(text)
		}
	case elementMatches(el, PropAddressbookDescr), elementMatches(el, PropCalendarDescr):
		if text := strings.TrimSpace(el.Text()); text != "" {
			p.Description = mo.Some(text)
		}
	case elementMatches(el, PropCalendarColor):
		if text := strings.TrimSpace(el.Text()); text != "" {
			p.Color = mo.Some(text)
		}
	case elementMatches(el, PropSource):
		p.Source = firstHrefOf(el)
	case elementMatches(el, PropCurrentUserPrincipal):
		p.CurrentUserPrincipal = firstHrefOf(el)
	case elementMatches(el, PropAddressbookHomeSet), elementMatches(el, PropCalendarHomeSet):
		p.HomeSets = append(p.HomeSets, hrefsOf(el)...)
	case elementMatches(el, PropGroupMembership):
		p.GroupMembership = append(p.GroupMembership, hrefsOf(el)...)
	case elementMatches(el, PropCalendarProxyReadFor):
		p.ProxyReadFor = append(p.ProxyReadFor, hrefsOf(el)...)
	case elementMatches(el, PropCalendarProxyWriteFor):
		p.ProxyWriteFor = append(p.ProxyWriteFor, hrefsOf(el)...)
	case elementMatches(el, PropSupportedComponentSet):
		for _, comp := range el.ChildElements() {
			if comp.Tag != "comp" {
				continue
			}
			if name := comp.SelectAttrValue("name", ""); name != "" {
				p.SupportedComponents = append(p.SupportedComponents, name)
			}
		}
	}
}
