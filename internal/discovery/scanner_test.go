package discovery

import (
	"context"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hummans/PeopleSyncClient/internal/storage"
)

const abHomeSetListing = `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <d:response>
    <d:href>/addressbooks/alice/</d:href>
    <d:propstat>
      <d:prop><d:resourcetype><d:collection/></d:resourcetype></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/addressbooks/alice/default/</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/><card:addressbook/></d:resourcetype>
        <d:displayname>Contacts</d:displayname>
        <card:addressbook-description>Personal contacts</card:addressbook-description>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/addressbooks/alice/notes/</d:href>
    <d:propstat>
      <d:prop><d:resourcetype><d:collection/></d:resourcetype></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

func TestScanCollectionsListsHomeSetChildren(t *testing.T) {
	fs := newFakeServer(t, map[string]davResponse{
		"/addressbooks/alice/": {body: abHomeSetListing},
	})
	homeSets := map[string]struct{}{fs.url("/addressbooks/alice/"): {}}

	working, remaining, err := scanCollections(context.Background(), fs.client(t),
		configFor(storage.ServiceAddressBook), homeSets, nil, testLogger())
	require.NoError(t, err)

	assert.Equal(t, homeSets, remaining)
	require.Len(t, working, 1, "only the addressbook child is usable")

	col := working[fs.url("/addressbooks/alice/default/")]
	assert.Equal(t, storage.CollectionAddressBook, col.Type)
	assert.Equal(t, "Contacts", col.DisplayName.OrElse(""))
	assert.Equal(t, "Personal contacts", col.Description.OrElse(""))
	assert.True(t, col.Confirmed)
}

func TestScanCollectionsPreservesIdentityOfKnown(t *testing.T) {
	fs := newFakeServer(t, map[string]davResponse{
		"/addressbooks/alice/": {body: abHomeSetListing},
	})
	homeSets := map[string]struct{}{fs.url("/addressbooks/alice/"): {}}
	known := map[string]storage.Collection{
		fs.url("/addressbooks/alice/default/"): {
			ID:          7,
			ServiceID:   3,
			URL:         fs.url("/addressbooks/alice/default/"),
			Type:        storage.CollectionAddressBook,
			DisplayName: mo.Some("Old name"),
		},
	}

	working, _, err := scanCollections(context.Background(), fs.client(t),
		configFor(storage.ServiceAddressBook), homeSets, known, testLogger())
	require.NoError(t, err)

	col := working[fs.url("/addressbooks/alice/default/")]
	assert.Equal(t, int64(7), col.ID)
	assert.Equal(t, int64(3), col.ServiceID)
	assert.Equal(t, "Contacts", col.DisplayName.OrElse(""), "server state wins for content")
	// The input snapshot stays untouched.
	assert.Equal(t, "Old name", known[fs.url("/addressbooks/alice/default/")].DisplayName.OrElse(""))
}

func TestScanCollectionsPrunesStaleHomeSet(t *testing.T) {
	fs := newFakeServer(t, map[string]davResponse{
		"/addressbooks/alice/": {body: abHomeSetListing},
		"/addressbooks/old/":   {status: 404},
	})
	homeSets := map[string]struct{}{
		fs.url("/addressbooks/alice/"): {},
		fs.url("/addressbooks/old/"):   {},
	}

	_, remaining, err := scanCollections(context.Background(), fs.client(t),
		configFor(storage.ServiceAddressBook), homeSets, nil, testLogger())
	require.NoError(t, err)

	assert.Equal(t, map[string]struct{}{fs.url("/addressbooks/alice/"): {}}, remaining)
	// Inputs are snapshots; the caller's set is not modified.
	assert.Len(t, homeSets, 2)
}

func TestScanCollectionsReconfirmsUnreachedKnown(t *testing.T) {
	okCollection := `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <d:response>
    <d:href>/addressbooks/shared/team/</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/><card:addressbook/></d:resourcetype>
        <d:displayname>Team</d:displayname>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`
	demoted := `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>/addressbooks/shared/plain/</d:href>
    <d:propstat>
      <d:prop><d:resourcetype><d:collection/></d:resourcetype></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

	fs := newFakeServer(t, map[string]davResponse{
		"/addressbooks/shared/team/":  {body: okCollection},
		"/addressbooks/shared/gone/":  {status: 404},
		"/addressbooks/shared/plain/": {body: demoted},
	})
	known := map[string]storage.Collection{
		fs.url("/addressbooks/shared/team/"): {
			ID: 1, ServiceID: 3,
			URL:  fs.url("/addressbooks/shared/team/"),
			Type: storage.CollectionAddressBook,
		},
		fs.url("/addressbooks/shared/gone/"): {
			ID: 2, ServiceID: 3,
			URL:  fs.url("/addressbooks/shared/gone/"),
			Type: storage.CollectionAddressBook,
		},
		fs.url("/addressbooks/shared/plain/"): {
			ID: 3, ServiceID: 3,
			URL:  fs.url("/addressbooks/shared/plain/"),
			Type: storage.CollectionAddressBook,
		},
	}

	working, _, err := scanCollections(context.Background(), fs.client(t),
		configFor(storage.ServiceAddressBook), map[string]struct{}{}, known, testLogger())
	require.NoError(t, err)

	require.Len(t, working, 1)
	col := working[fs.url("/addressbooks/shared/team/")]
	assert.Equal(t, int64(1), col.ID)
	assert.Equal(t, "Team", col.DisplayName.OrElse(""))
	assert.True(t, col.Confirmed)
}

func TestScanCollectionsWebcalRequiresSource(t *testing.T) {
	listing := `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:cal="urn:ietf:params:xml:ns:caldav" xmlns:cs="http://calendarserver.org/ns/">
  <d:response>
    <d:href>/calendars/alice/holidays/</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/><cs:subscribed/></d:resourcetype>
        <cs:source><d:href>webcal://example.com/holidays.ics</d:href></cs:source>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/calendars/alice/broken/</d:href>
    <d:propstat>
      <d:prop><d:resourcetype><d:collection/><cs:subscribed/></d:resourcetype></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

	fs := newFakeServer(t, map[string]davResponse{
		"/calendars/alice/": {body: listing},
	})
	homeSets := map[string]struct{}{fs.url("/calendars/alice/"): {}}

	working, _, err := scanCollections(context.Background(), fs.client(t),
		configFor(storage.ServiceCalendar), homeSets, nil, testLogger())
	require.NoError(t, err)

	require.Len(t, working, 1)
	col := working[fs.url("/calendars/alice/holidays/")]
	assert.Equal(t, storage.CollectionWebcal, col.Type)
	assert.Equal(t, "webcal://example.com/holidays.ics", col.Source.OrElse(""))
}

func TestScanCollectionsSkipsCalendarWithoutUsableComponents(t *testing.T) {
	listing := `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:" xmlns:cal="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/calendars/alice/journal/</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/><cal:calendar/></d:resourcetype>
        <cal:supported-calendar-component-set><cal:comp name="VJOURNAL"/></cal:supported-calendar-component-set>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/calendars/alice/work/</d:href>
    <d:propstat>
      <d:prop>
        <d:resourcetype><d:collection/><cal:calendar/></d:resourcetype>
        <cal:supported-calendar-component-set><cal:comp name="VEVENT"/></cal:supported-calendar-component-set>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/calendars/alice/unadvertised/</d:href>
    <d:propstat>
      <d:prop><d:resourcetype><d:collection/><cal:calendar/></d:resourcetype></d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

	fs := newFakeServer(t, map[string]davResponse{
		"/calendars/alice/": {body: listing},
	})
	homeSets := map[string]struct{}{fs.url("/calendars/alice/"): {}}

	working, _, err := scanCollections(context.Background(), fs.client(t),
		configFor(storage.ServiceCalendar), homeSets, nil, testLogger())
	require.NoError(t, err)

	assert.Contains(t, working, fs.url("/calendars/alice/work/"))
	assert.Contains(t, working, fs.url("/calendars/alice/unadvertised/"),
		"no advertised component set means no restriction")
	assert.NotContains(t, working, fs.url("/calendars/alice/journal/"))
}

func TestScanCollectionsServerErrorAborts(t *testing.T) {
	fs := newFakeServer(t, map[string]davResponse{
		"/addressbooks/alice/": {status: 503},
	})
	homeSets := map[string]struct{}{fs.url("/addressbooks/alice/"): {}}

	_, _, err := scanCollections(context.Background(), fs.client(t),
		configFor(storage.ServiceAddressBook), homeSets, nil, testLogger())
	assert.Error(t, err)
}
