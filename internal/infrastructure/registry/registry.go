// Package registry tracks live per-meeting occupancy for capacity
// admission. Process-local only: counts reset on restart and are never
// persisted.
package registry

import "sync"

type Registry struct {
	mu       sync.Mutex
	capacity int
	counts   map[string]int
}

func New(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		counts:   make(map[string]int),
	}
}

// TryJoin admits a peer into the meeting. Check and increment happen under
// one lock so two racing joins can never both slip past a full room.
func (r *Registry) TryJoin(meetingID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.counts[meetingID] >= r.capacity {
		return false
	}
	r.counts[meetingID]++
	return true
}

// Leave releases a slot, clamping at zero. Empty entries are dropped so the
// map doesn't accumulate dead meeting ids.
func (r *Registry) Leave(meetingID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.counts[meetingID]
	if !ok {
		return
	}
	if n <= 1 {
		delete(r.counts, meetingID)
		return
	}
	r.counts[meetingID] = n - 1
}

func (r *Registry) Count(meetingID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[meetingID]
}

// Full reports whether the meeting is at capacity. Best-effort when used as
// a pre-check: TryJoin remains the authoritative admission decision.
func (r *Registry) Full(meetingID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[meetingID] >= r.capacity
}

func (r *Registry) Capacity() int {
	return r.capacity
}
