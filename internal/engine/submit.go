package engine

import (
	"context"
	"fmt"

	"github.com/roach88/formtree/internal/collection"
	"github.com/roach88/formtree/internal/coordinator"
	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/input"
	"github.com/roach88/formtree/internal/ir"
	"github.com/roach88/formtree/internal/repeater"
)

// Result describes a processed submission.
type Result struct {
	// Record is the saved record, with its id.
	Record ir.RecordRef `json:"record"`

	// Data is the record data as saved.
	Data ir.Object `json:"data"`

	// Changes lists how each repeating group changed, nested groups included.
	Changes []*repeater.Changes `json:"-"`

	// Collections maps the address of every attachment field that had
	// pending attachment changes to its collection.
	Collections map[string]string `json:"collections,omitempty"`

	// CleanupErr holds the joined cleanup failures. Cleanup failures do not
	// stop the submission.
	CleanupErr error `json:"-"`
}

// Submit reconciles submitted data against the stored record and saves it.
//
// The pipeline, in order:
//  1. bind the stored data and reconcile every group with the submission;
//     stored items left without values survive while their attachment
//     buckets hold attachments
//  2. release the attachments of removed items (stored records only)
//  3. queue the attachment side-channel actions of every attachment field
//  4. save the record through the record store
//  5. run the queued actions against the saved, identified record
//
// An error in steps 1 to 4 discards every queued action and nothing touches
// the attachment store for the owning record. An error in step 5 is
// returned together with the result, since the record is already saved.
func (e *Engine) Submit(ctx context.Context, form *Form, ref ir.RecordRef, submitted ir.Object) (*Result, error) {
	if ref.Type == "" {
		ref.Type = form.Owner
	}
	if ref.Type != form.Owner {
		return nil, fmt.Errorf("submit %s: form edits %q records, got %q", form.Name, form.Owner, ref.Type)
	}

	stored, err := e.load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", form.Name, err)
	}

	queue := coordinator.New(coordinator.WithLogger(e.logger))
	planner := &collection.Planner{Resolver: e.resolver, Store: e.attachments, Queue: queue}

	binder := repeater.NewBinder(e.gen)
	binder.NameCollections(func(f *field.Field) (string, error) { return e.resolver.ResolveName(f) })
	if ref.Identified() {
		binder.RetainWhen(func(l *repeater.List, it *repeater.Item) (bool, error) {
			keep, err := e.holdsAttachments(ctx, ref, it)
			if keep {
				e.logger.Debug("item kept for its attachments", "group", l.Address(), "id", it.ID)
			}
			return keep, err
		})
	}
	prev, err := binder.Load(form.Nodes, stored)
	if err != nil {
		return nil, fmt.Errorf("submit %s: bind stored data: %w", form.Name, err)
	}

	var hookErr error
	binder.OnRemove(func(l *repeater.List, it *repeater.Item) {
		e.logger.Debug("item removed", "group", l.Address(), "id", it.ID)
		if !ref.Identified() || hookErr != nil {
			return
		}
		hookErr = planner.PlanCleanup(ref, it)
	})

	tree, changes, err := binder.Apply(prev, form.Nodes, submitted)
	if err == nil {
		err = hookErr
	}
	if err != nil {
		queue.Discard()
		return nil, fmt.Errorf("submit %s: %w", form.Name, err)
	}
	for _, c := range changes {
		e.logger.Debug("group reconciled",
			"group", c.Address,
			"added", len(c.Added),
			"kept", len(c.Kept),
			"removed", len(c.Removed))
	}

	result := &Result{Changes: changes}
	if err := queue.RunCleanup(ctx); err != nil {
		e.logger.Warn("cleanup failed", "form", form.Name, "record", ref.String(), "error", err)
		result.CleanupErr = err
	}

	collections, err := e.planAttachments(planner, tree)
	if err != nil {
		queue.Discard()
		return nil, fmt.Errorf("submit %s: %w", form.Name, err)
	}
	result.Collections = collections

	data := mergeObjects(stored, tree.Export())
	saved, err := e.records.Save(ctx, ir.Entity{Ref: ref, Data: data})
	if err != nil {
		queue.Discard()
		return nil, fmt.Errorf("submit %s: save: %w", form.Name, err)
	}
	result.Record = saved
	result.Data = data

	deferred, _ := queue.Len()
	e.logger.Info("record saved",
		"form", form.Name,
		"record", saved.String(),
		"deferred", deferred)

	if err := queue.RunDeferred(ctx, saved); err != nil {
		return result, fmt.Errorf("submit %s: %w", form.Name, err)
	}
	return result, nil
}

// planAttachments queues the side-channel actions of every attachment field
// bound to a real item or the root.
func (e *Engine) planAttachments(planner *collection.Planner, tree *repeater.Tree) (map[string]string, error) {
	var collections map[string]string
	for _, f := range tree.Attachments() {
		if field.IsTemplate(f) {
			continue
		}
		v, ok := f.Value()
		if !ok {
			continue
		}
		addr, err := field.Resolve(f)
		if err != nil {
			return nil, err
		}
		m, err := input.Attachment(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", addr, err)
		}
		if m.Empty() {
			continue
		}
		name, err := planner.Plan(f, m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", addr, err)
		}
		if collections == nil {
			collections = make(map[string]string)
		}
		collections[addr] = name
	}
	return collections, nil
}

// holdsAttachments reports whether any attachment field of the stored item
// has a non-empty bucket.
func (e *Engine) holdsAttachments(ctx context.Context, ref ir.RecordRef, it *repeater.Item) (bool, error) {
	for _, f := range it.Tree().Attachments() {
		if field.IsTemplate(f) {
			continue
		}
		name, err := e.resolver.ResolveName(f)
		if err != nil {
			return false, err
		}
		list, err := e.attachments.List(ctx, ref, name)
		if err != nil {
			return false, fmt.Errorf("list %s: %w", name, err)
		}
		if len(list) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// mergeObjects overlays src onto a copy of dst. Nested objects are merged;
// everything else in src replaces what dst holds.
func mergeObjects(dst, src ir.Object) ir.Object {
	out := dst.Clone()
	if out == nil {
		out = ir.Object{}
	}
	for k, v := range src {
		if sub, ok := v.(ir.Object); ok {
			if cur, ok := out[k].(ir.Object); ok {
				out[k] = mergeObjects(cur, sub)
				continue
			}
		}
		out[k] = ir.CloneValue(v)
	}
	return out
}
