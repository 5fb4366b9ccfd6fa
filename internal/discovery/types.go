// Package discovery implements the collection discovery and reconciliation
// engine: it expands the home-set graph of a DAV principal, lists and
// re-confirms collections, and applies the minimal diff against the
// persisted state while preserving user sync selections.
package discovery

import (
	"sort"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"

	"github.com/hummans/PeopleSyncClient/internal/dav"
	"github.com/hummans/PeopleSyncClient/internal/storage"
)

// typeConfig is the per-service-type table: which home-set property to
// query, which relation properties apply, and which collection resource
// types are acceptable.
type typeConfig struct {
	homeSetProp   dav.PropName
	relationProps []dav.PropName
	wellKnownPath string

	// collectionProps is the full property set requested when listing or
	// re-confirming collections.
	collectionProps []dav.PropName

	// components lists the calendar component names the app can handle; a
	// calendar advertising a component set without any of them is unusable.
	components []string
}

func configFor(t storage.ServiceType) typeConfig {
	switch t {
	case storage.ServiceCalendar:
		return typeConfig{
			homeSetProp: dav.PropCalendarHomeSet,
			relationProps: []dav.PropName{
				dav.PropGroupMembership,
				dav.PropCalendarProxyReadFor,
				dav.PropCalendarProxyWriteFor,
			},
			wellKnownPath: "/.well-known/caldav",
			collectionProps: []dav.PropName{
				dav.PropResourceType,
				dav.PropDisplayName,
				dav.PropCalendarDescr,
				dav.PropCalendarColor,
				dav.PropSupportedComponentSet,
				dav.PropSource,
				dav.PropCurrentUserPrivSet,
			},
			components: []string{ical.CompEvent, ical.CompToDo},
		}
	default:
		return typeConfig{
			homeSetProp:   dav.PropAddressbookHomeSet,
			relationProps: []dav.PropName{dav.PropGroupMembership},
			wellKnownPath: "/.well-known/carddav",
			collectionProps: []dav.PropName{
				dav.PropResourceType,
				dav.PropDisplayName,
				dav.PropAddressbookDescr,
				dav.PropCurrentUserPrivSet,
			},
		}
	}
}

// collectionTypeOf maps the declared resource types onto the collection
// types acceptable for this service type.
func (c typeConfig) collectionTypeOf(ps dav.PropSet) (storage.CollectionType, bool) {
	if c.homeSetProp == dav.PropAddressbookHomeSet {
		if ps.HasResourceType(dav.ResourceTypeAddressbook) {
			return storage.CollectionAddressBook, true
		}
		return "", false
	}
	if ps.HasResourceType(dav.ResourceTypeCalendar) {
		return storage.CollectionCalendar, true
	}
	if ps.HasResourceType(dav.ResourceTypeSubscribed) {
		return storage.CollectionWebcal, true
	}
	return "", false
}

// buildCollection turns a property bag into a collection record, or reports
// that the resource is not a usable collection for this service type. A
// webcal subscription without a source URL and a calendar whose advertised
// component set contains nothing the app handles are both unusable.
func buildCollection(cfg typeConfig, urlStr string, ps dav.PropSet) (storage.Collection, bool) {
	typ, ok := cfg.collectionTypeOf(ps)
	if !ok {
		return storage.Collection{}, false
	}

	col := storage.Collection{
		URL:         urlStr,
		Type:        typ,
		DisplayName: ps.DisplayName,
		Description: ps.Description,
		Color:       ps.Color,
	}

	switch typ {
	case storage.CollectionWebcal:
		source, ok := ps.Source.Get()
		if !ok {
			return storage.Collection{}, false
		}
		col.Source = mo.Some(source)
	case storage.CollectionCalendar:
		if len(ps.SupportedComponents) > 0 && !containsAny(ps.SupportedComponents, cfg.components) {
			return storage.Collection{}, false
		}
	}

	return col, true
}

func containsAny(haystack, needles []string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}

// sortedKeys returns the map keys in lexical order so that DAV queries are
// issued in a stable sequence.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
