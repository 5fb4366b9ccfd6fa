package dav

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestResolveCollectionURL(t *testing.T) {
	base := mustParse(t, "https://dav.example.com/principals/alice/")

	tests := []struct {
		name string
		href string
		want string
	}{
		{"relative", "work", "https://dav.example.com/principals/alice/work/"},
		{"absolute path", "/addressbooks/alice/default", "https://dav.example.com/addressbooks/alice/default/"},
		{"already slashed", "/addressbooks/alice/default/", "https://dav.example.com/addressbooks/alice/default/"},
		{"full URL", "https://dav.example.com/calendars/work", "https://dav.example.com/calendars/work/"},
		{"strips query", "/calendars/work/?export", "https://dav.example.com/calendars/work/"},
		{"strips fragment", "/calendars/work#section", "https://dav.example.com/calendars/work/"},
		{"dot segments", "/addressbooks/alice/../alice/default/", "https://dav.example.com/addressbooks/alice/default/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCollectionURL(base, tt.href)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Two textual shapes of the same location must collapse to one key.
func TestResolveCollectionURLAliases(t *testing.T) {
	base := mustParse(t, "https://dav.example.com/home/")

	a, err := ResolveCollectionURL(base, "/home/contacts")
	require.NoError(t, err)
	b, err := ResolveCollectionURL(base, "contacts/")
	require.NoError(t, err)
	c, err := ResolveCollectionURL(base, "https://dav.example.com/home/contacts/")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestWithTrailingSlashPreservesInput(t *testing.T) {
	u := mustParse(t, "https://dav.example.com/home")
	slashed := WithTrailingSlash(u)
	assert.Equal(t, "/home/", slashed.Path)
	assert.Equal(t, "/home", u.Path, "input must not be mutated")
}
