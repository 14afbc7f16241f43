package collection

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/formtree/internal/coordinator"
	"github.com/roach88/formtree/internal/ir"
	"github.com/roach88/formtree/internal/repeater"
)

// Store is the attachment store the planned actions call.
//
// Attachments live in buckets identified by (owner, collection).
// DeleteWhere with no ids deletes every attachment in the bucket.
type Store interface {
	Attach(ctx context.Context, ids []string, owner ir.RecordRef, collection string) error
	SetOrder(ctx context.Context, owner ir.RecordRef, collection string, ids []string) error
	SetProperties(ctx context.Context, id string, props ir.Object) error
	DeleteWhere(ctx context.Context, owner ir.RecordRef, collection string, ids []string) error
	List(ctx context.Context, owner ir.RecordRef, collection string) ([]ir.Attachment, error)
}

// Mutation is the attachment side-channel submitted for one field.
type Mutation struct {
	// Uploaded holds ids of fresh uploads to attach.
	Uploaded []string `json:"uploaded,omitempty"`

	// Deleted holds ids to delete from the collection.
	Deleted []string `json:"deleted,omitempty"`

	// Order is the new display order.
	Order []string `json:"order,omitempty"`

	// Properties holds per-attachment property overrides by id.
	Properties map[string]ir.Object `json:"properties,omitempty"`
}

// Empty reports whether the mutation changes nothing.
func (m Mutation) Empty() bool {
	return len(m.Uploaded) == 0 && len(m.Deleted) == 0 && len(m.Order) == 0 && len(m.Properties) == 0
}

// Planner queues attachment actions on a coordinator.
type Planner struct {
	Resolver Resolver
	Store    Store
	Queue    *coordinator.Coordinator
}

// Plan resolves the collection of f and queues the deferred actions m
// implies, in the order attach, delete, order, properties. Everything an
// action needs is copied when it is queued. It returns the collection name.
func (p *Planner) Plan(f Attachable, m Mutation) (string, error) {
	name, err := p.Resolver.ResolveName(f)
	if err != nil {
		return "", err
	}
	store := p.Store

	if ids := slices.Clone(m.Uploaded); len(ids) > 0 {
		p.Queue.AddDeferred("attach "+name, func(ctx context.Context, record ir.RecordRef) error {
			return store.Attach(ctx, ids, record, name)
		})
	}
	if ids := slices.Clone(m.Deleted); len(ids) > 0 {
		p.Queue.AddDeferred("delete from "+name, func(ctx context.Context, record ir.RecordRef) error {
			return store.DeleteWhere(ctx, record, name, ids)
		})
	}
	if ids := slices.Clone(m.Order); len(ids) > 0 {
		p.Queue.AddDeferred("order "+name, func(ctx context.Context, record ir.RecordRef) error {
			return store.SetOrder(ctx, record, name, ids)
		})
	}
	for _, id := range sortedKeys(m.Properties) {
		props := m.Properties[id].Clone()
		p.Queue.AddDeferred("properties "+id, func(ctx context.Context, _ ir.RecordRef) error {
			return store.SetProperties(ctx, id, props)
		})
	}
	return name, nil
}

// PlanCleanup queues the release of every attachment collection a removed
// item owned, nested items included. owner is the stored record the item
// belonged to.
func (p *Planner) PlanCleanup(owner ir.RecordRef, it *repeater.Item) error {
	if it.IsTemplate() {
		return nil
	}
	store := p.Store
	for _, f := range it.Tree().Attachments() {
		name, err := p.Resolver.ResolveName(f)
		if err != nil {
			return err
		}
		p.Queue.AddCleanup(fmt.Sprintf("release %s of %s", name, owner), func(ctx context.Context) error {
			return store.DeleteWhere(ctx, owner, name, nil)
		})
	}
	return nil
}

func sortedKeys(m map[string]ir.Object) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
