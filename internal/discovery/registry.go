package discovery

import (
	"sort"
	"sync"
)

// StatusFunc receives one call per refresh state transition of a service.
type StatusFunc func(serviceID int64, refreshing bool)

// Registry tracks which services currently have a refresh in flight and
// fans state transitions out to subscribers. It is safe for use from any
// goroutine; callbacks are invoked outside the registry lock.
type Registry struct {
	mu         sync.Mutex
	refreshing map[int64]struct{}
	subs       map[*Subscription]StatusFunc
}

// Subscription is a revocable handle to a status subscription. The registry
// holds subscriptions strongly: callers must Cancel subscriptions they no
// longer need.
type Subscription struct {
	registry *Registry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		refreshing: make(map[int64]struct{}),
		subs:       make(map[*Subscription]StatusFunc),
	}
}

// IsRefreshing reports whether a refresh is in flight for the service.
func (r *Registry) IsRefreshing(serviceID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.refreshing[serviceID]
	return ok
}

// RefreshingIDs returns the ids of all currently refreshing services.
func (r *Registry) RefreshingIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshingIDsLocked()
}

func (r *Registry) refreshingIDsLocked() []int64 {
	ids := make([]int64, 0, len(r.refreshing))
	for id := range r.refreshing {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Subscribe registers fn for future state transitions. When replayCurrent
// is set, fn is additionally invoked once for every service refreshing at
// subscription time.
func (r *Registry) Subscribe(fn StatusFunc, replayCurrent bool) *Subscription {
	r.mu.Lock()
	sub := &Subscription{registry: r}
	r.subs[sub] = fn
	var replay []int64
	if replayCurrent {
		replay = r.refreshingIDsLocked()
	}
	r.mu.Unlock()

	for _, id := range replay {
		fn(id, true)
	}
	return sub
}

// Cancel removes the subscription. Cancelling twice is harmless.
func (s *Subscription) Cancel() {
	s.registry.mu.Lock()
	delete(s.registry.subs, s)
	s.registry.mu.Unlock()
}

// beginRefresh marks the service as refreshing and notifies subscribers.
// It returns false, without any side effect, when a refresh is already in
// flight for the id.
func (r *Registry) beginRefresh(serviceID int64) bool {
	r.mu.Lock()
	if _, inFlight := r.refreshing[serviceID]; inFlight {
		r.mu.Unlock()
		return false
	}
	r.refreshing[serviceID] = struct{}{}
	fns := r.subscribersLocked()
	r.mu.Unlock()

	for _, fn := range fns {
		fn(serviceID, true)
	}
	return true
}

// endRefresh clears the refreshing mark and notifies subscribers.
func (r *Registry) endRefresh(serviceID int64) {
	r.mu.Lock()
	delete(r.refreshing, serviceID)
	fns := r.subscribersLocked()
	r.mu.Unlock()

	for _, fn := range fns {
		fn(serviceID, false)
	}
}

func (r *Registry) subscribersLocked() []StatusFunc {
	fns := make([]StatusFunc, 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	return fns
}
