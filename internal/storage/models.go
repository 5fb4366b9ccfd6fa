package storage

import (
	"database/sql"

	"github.com/samber/mo"
)

// ServiceType selects which discovery protocol a service speaks.
type ServiceType string

const (
	ServiceAddressBook ServiceType = "addressbook"
	ServiceCalendar    ServiceType = "calendar"
)

// Service identifies one remote DAV endpoint for one account. It is read
// once at refresh start and never mutated during a refresh.
type Service struct {
	ID           int64
	AccountName  string
	Type         ServiceType
	PrincipalURL mo.Option[string]
}

// HomeSet is a URL known to host collections for a service. The URL is its
// identity; rows are inserted and deleted, never updated in place.
type HomeSet struct {
	ID        int64
	ServiceID int64
	URL       string
}

// CollectionType classifies a discovered collection resource.
type CollectionType string

const (
	CollectionAddressBook CollectionType = "addressbook"
	CollectionCalendar    CollectionType = "calendar"
	CollectionWebcal      CollectionType = "webcal"
)

// Collection is one addressbook, calendar or webcal resource keyed by URL
// within its service. SyncEnabled is a user preference and must survive
// refreshes; Confirmed is a transient per-refresh marker and is never
// persisted.
type Collection struct {
	ID        int64
	ServiceID int64
	URL       string
	Type      CollectionType

	DisplayName mo.Option[string]
	Description mo.Option[string]
	Color       mo.Option[string]
	Source      mo.Option[string]

	SyncEnabled bool

	Confirmed bool
}

// SameContent reports whether two records carry the same server-derived
// fields and sync selection, ignoring database identity and the transient
// confirmation marker. The reconciler skips writes for unchanged records.
func (c Collection) SameContent(other Collection) bool {
	return c.URL == other.URL &&
		c.Type == other.Type &&
		c.DisplayName == other.DisplayName &&
		c.Description == other.Description &&
		c.Color == other.Color &&
		c.Source == other.Source &&
		c.SyncEnabled == other.SyncEnabled
}

func nullString(o mo.Option[string]) sql.NullString {
	if v, ok := o.Get(); ok {
		return sql.NullString{String: v, Valid: true}
	}
	return sql.NullString{}
}

func optionString(ns sql.NullString) mo.Option[string] {
	if ns.Valid {
		return mo.Some(ns.String)
	}
	return mo.None[string]()
}
