// Package registry holds the authoritative list of joined chat participants.
//
// A Registry is not safe for concurrent use. It is owned by the hub loop,
// which is the only goroutine that reads or mutates it.
package registry

import (
	"sort"

	"github.com/bandsite/fan-chat/internal/domain"
)

// Entry binds a joined identity to the connection it owns.
type Entry struct {
	Identity domain.Identity
	Conn     domain.Connection
}

// Registry maps connection id to joined participant.
type Registry struct {
	entries map[string]Entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register inserts or overwrites the entry for id. Display names are not
// required to be unique.
func (r *Registry) Register(id string, e Entry) {
	r.entries[id] = e
}

// Unregister removes id and reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id string) (Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Snapshot returns a point-in-time copy of all joined identities, ordered
// by username then id.
func (r *Registry) Snapshot() []domain.DirectoryEntry {
	out := make([]domain.DirectoryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Identity.Entry())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Connections returns a stable copy of the registered connections for a
// broadcast pass.
func (r *Registry) Connections() []domain.Connection {
	out := make([]domain.Connection, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Conn)
	}
	return out
}
