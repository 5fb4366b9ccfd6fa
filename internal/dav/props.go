package dav

import "github.com/samber/mo"

// XML namespaces used by the discovery protocol.
const (
	NSDav            = "DAV:"
	NSCardDAV        = "urn:ietf:params:xml:ns:carddav"
	NSCalDAV         = "urn:ietf:params:xml:ns:caldav"
	NSCalendarServer = "http://calendarserver.org/ns/"
	NSApple          = "http://apple.com/ns/ical/"
)

// PropName identifies a WebDAV property by namespace URI and local name.
type PropName struct {
	Space string
	Local string
}

// Properties understood by the client.
var (
	PropResourceType         = PropName{NSDav, "resourcetype"}
	PropDisplayName          = PropName{NSDav, "displayname"}
	PropCurrentUserPrincipal = PropName{NSDav, "current-user-principal"}
	PropGroupMembership      = PropName{NSDav, "group-membership"}
	PropCurrentUserPrivSet   = PropName{NSDav, "current-user-privilege-set"}

	PropAddressbookHomeSet    = PropName{NSCardDAV, "addressbook-home-set"}
	PropAddressbookDescr      = PropName{NSCardDAV, "addressbook-description"}
	PropCalendarHomeSet       = PropName{NSCalDAV, "calendar-home-set"}
	PropCalendarDescr         = PropName{NSCalDAV, "calendar-description"}
	PropSupportedComponentSet = PropName{NSCalDAV, "supported-calendar-component-set"}

	PropCalendarProxyReadFor  = PropName{NSCalendarServer, "calendar-proxy-read-for"}
	PropCalendarProxyWriteFor = PropName{NSCalendarServer, "calendar-proxy-write-for"}
	PropSource                = PropName{NSCalendarServer, "source"}

	PropCalendarColor = PropName{NSApple, "calendar-color"}
)

// Resource type markers found as children of DAV:resourcetype.
var (
	ResourceTypeCollection  = PropName{NSDav, "collection"}
	ResourceTypeAddressbook = PropName{NSCardDAV, "addressbook"}
	ResourceTypeCalendar    = PropName{NSCalDAV, "calendar"}
	ResourceTypeSubscribed  = PropName{NSCalendarServer, "subscribed"}
)

// PropSet is the typed property bag parsed from the successful propstats of
// one multistatus response.
type PropSet struct {
	ResourceTypes []PropName

	DisplayName mo.Option[string]
	Description mo.Option[string]
	Color       mo.Option[string]
	Source      mo.Option[string]

	CurrentUserPrincipal mo.Option[string]

	HomeSets        []string
	GroupMembership []string
	ProxyReadFor    []string
	ProxyWriteFor   []string

	SupportedComponents []string
}

// HasResourceType reports whether the resource declared the given type.
func (p PropSet) HasResourceType(name PropName) bool {
	for _, rt := range p.ResourceTypes {
		if rt == name {
			return true
		}
	}
	return false
}
