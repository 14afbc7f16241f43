// Package testutil provides in-memory collaborators and call recorders for
// tests and scenario runs.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/formtree/internal/idgen"
	"github.com/roach88/formtree/internal/ir"
)

// MemoryRecords is an in-memory record store.
//
// Thread-safety: all methods are safe for concurrent use.
type MemoryRecords struct {
	mu      sync.Mutex
	gen     idgen.Generator
	records map[ir.RecordRef]ir.Object
	saves   int
}

// NewMemoryRecords creates an empty record store minting ids from gen.
func NewMemoryRecords(gen idgen.Generator) *MemoryRecords {
	if gen == nil {
		gen = idgen.UUIDv7{}
	}
	return &MemoryRecords{gen: gen, records: make(map[ir.RecordRef]ir.Object)}
}

// Save stores e, assigning an id to new records.
func (m *MemoryRecords) Save(_ context.Context, e ir.Entity) (ir.RecordRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := e.Ref
	if !ref.Identified() {
		ref.ID = m.gen.Generate()
	}
	m.records[ref] = e.Data.Clone()
	m.saves++
	return ref, nil
}

// Load returns the stored data of ref.
func (m *MemoryRecords) Load(_ context.Context, ref ir.RecordRef) (ir.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.records[ref]
	if !ok {
		return nil, fmt.Errorf("record %s not found", ref)
	}
	return data.Clone(), nil
}

// Saves returns how many times Save was called.
func (m *MemoryRecords) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// MemoryAttachments is an in-memory attachment store with the same
// semantics as the SQLite one.
//
// Thread-safety: all methods are safe for concurrent use.
type MemoryAttachments struct {
	mu    sync.Mutex
	gen   idgen.Generator
	items map[string]*ir.Attachment
}

// NewMemoryAttachments creates an empty attachment store.
func NewMemoryAttachments(gen idgen.Generator) *MemoryAttachments {
	if gen == nil {
		gen = idgen.UUIDv7{}
	}
	return &MemoryAttachments{gen: gen, items: make(map[string]*ir.Attachment)}
}

// CreatePending registers an upload that is not attached to any record yet.
func (m *MemoryAttachments) CreatePending(_ context.Context, name string) (ir.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := &ir.Attachment{ID: m.gen.Generate(), Name: name, Properties: ir.Object{}}
	m.items[a.ID] = a
	return *a, nil
}

// Attach moves ids into the bucket (owner, collection), appending them after
// the attachments already there.
func (m *MemoryAttachments) Attach(_ context.Context, ids []string, owner ir.RecordRef, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := int64(len(m.bucket(owner, collection)))
	for _, id := range ids {
		a, ok := m.items[id]
		if !ok {
			return fmt.Errorf("attachment %q not found", id)
		}
		if a.Owner == owner && a.Collection == collection {
			continue
		}
		a.Owner = owner
		a.Collection = collection
		a.Position = next
		next++
	}
	return nil
}

// SetOrder puts the listed attachments first, in the given order. Ids outside
// the bucket are ignored.
func (m *MemoryAttachments) SetOrder(_ context.Context, owner ir.RecordRef, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.bucket(owner, collection)
	rank := func(a *ir.Attachment) int {
		if i := slices.Index(ids, a.ID); i >= 0 {
			return i
		}
		return len(ids)
	}
	slices.SortStableFunc(bucket, func(a, b *ir.Attachment) int {
		return rank(a) - rank(b)
	})
	for i, a := range bucket {
		a.Position = int64(i)
	}
	return nil
}

// SetProperties merges props into the attachment's properties.
func (m *MemoryAttachments) SetProperties(_ context.Context, id string, props ir.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.items[id]
	if !ok {
		return fmt.Errorf("attachment %q not found", id)
	}
	if a.Properties == nil {
		a.Properties = ir.Object{}
	}
	for k, v := range props {
		a.Properties[k] = ir.CloneValue(v)
	}
	return nil
}

// DeleteWhere deletes ids from the bucket, or the whole bucket when ids is
// empty.
func (m *MemoryAttachments) DeleteWhere(_ context.Context, owner ir.RecordRef, collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.bucket(owner, collection) {
		if len(ids) == 0 || slices.Contains(ids, a.ID) {
			delete(m.items, a.ID)
		}
	}
	return nil
}

// List returns the bucket's attachments by position.
func (m *MemoryAttachments) List(_ context.Context, owner ir.RecordRef, collection string) ([]ir.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.bucket(owner, collection)
	out := make([]ir.Attachment, len(bucket))
	for i, a := range bucket {
		out[i] = *a
		out[i].Properties = a.Properties.Clone()
	}
	return out, nil
}

// bucket returns the attachments of (owner, collection) sorted by position.
// Caller must hold mu.
func (m *MemoryAttachments) bucket(owner ir.RecordRef, collection string) []*ir.Attachment {
	var out []*ir.Attachment
	for _, a := range m.items {
		if a.Owner == owner && a.Collection == collection && owner.Identified() {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b *ir.Attachment) int {
		if a.Position != b.Position {
			if a.Position < b.Position {
				return -1
			}
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}
