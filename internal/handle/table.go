// SPDX-License-Identifier: MIT

// Package handle maps opaque server-assigned string identifiers onto the
// small non-negative integer handles the host understands.
package handle

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const handleMask = 0x7FFFFFFF

// Derive returns the deterministic 31-bit candidate handle for a server
// id. It is always non-negative and stable across processes.
func Derive(serverID string) int32 {
	return int32(xxhash.Sum64String(serverID) & handleMask)
}

// Table is a bidirectional handle<->serverID map with session lifetime.
// The candidate handle is Derive(serverID); when a different serverID
// already occupies that slot the table probes upward, so two ids never
// silently share a handle. An id seen again keeps the handle it was first
// given, which keeps handles stable across directory reloads.
type Table struct {
	mu         sync.RWMutex
	byHandle   map[int32]string
	byServerID map[string]int32
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		byHandle:   make(map[int32]string),
		byServerID: make(map[string]int32),
	}
}

// Acquire returns the handle for serverID, allocating one on first sight.
func (t *Table) Acquire(serverID string) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.byServerID[serverID]; ok {
		return h
	}

	h := Derive(serverID)
	for {
		if _, taken := t.byHandle[h]; !taken {
			break
		}
		h = (h + 1) & handleMask
	}
	t.byHandle[h] = serverID
	t.byServerID[serverID] = h
	return h
}

// ServerID resolves a handle back to its server id. A miss is a normal,
// expected outcome for unknown handles.
func (t *Table) ServerID(h int32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byHandle[h]
	return id, ok
}

// Handle resolves a server id to its handle without allocating.
func (t *Table) Handle(serverID string) (int32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.byServerID[serverID]
	return h, ok
}

// Len returns the number of allocated handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byHandle)
}
