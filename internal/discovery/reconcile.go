package discovery

import "github.com/hummans/PeopleSyncClient/internal/storage"

// diffHomeSets computes the minimal home-set diff. Persisted rows whose URL
// is still present are kept untouched; rows whose URL vanished are deleted;
// URLs with no persisted row are inserted.
func diffHomeSets(persisted []storage.HomeSet, next map[string]struct{}) (insertURLs []string, deleteIDs []int64) {
	remaining := make(map[string]struct{}, len(next))
	for u := range next {
		remaining[u] = struct{}{}
	}

	for _, hs := range persisted {
		if _, ok := remaining[hs.URL]; ok {
			delete(remaining, hs.URL)
		} else {
			deleteIDs = append(deleteIDs, hs.ID)
		}
	}

	insertURLs = sortedKeys(remaining)
	return insertURLs, deleteIDs
}

// diffCollections computes the minimal collection diff. A persisted record
// whose URL survives keeps its database identity and is updated only when
// its content actually changed; vanished URLs are deleted; the rest of the
// working map is inserted as new records.
func diffCollections(persisted []storage.Collection, next map[string]storage.Collection) (insert, update []storage.Collection, deleteIDs []int64) {
	remaining := make(map[string]storage.Collection, len(next))
	for u, col := range next {
		remaining[u] = col
	}

	for _, old := range persisted {
		nw, ok := remaining[old.URL]
		if !ok {
			deleteIDs = append(deleteIDs, old.ID)
			continue
		}
		delete(remaining, old.URL)

		nw.ID = old.ID
		nw.ServiceID = old.ServiceID
		nw.Confirmed = false
		if !nw.SameContent(old) {
			update = append(update, nw)
		}
	}

	for _, u := range sortedKeys(remaining) {
		col := remaining[u]
		col.ID = 0
		col.Confirmed = false
		insert = append(insert, col)
	}

	return insert, update, deleteIDs
}
