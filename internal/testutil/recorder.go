package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/formtree/internal/ir"
)

// AttachmentStore is the attachment store surface the recorder wraps.
type AttachmentStore interface {
	Attach(ctx context.Context, ids []string, owner ir.RecordRef, collection string) error
	SetOrder(ctx context.Context, owner ir.RecordRef, collection string, ids []string) error
	SetProperties(ctx context.Context, id string, props ir.Object) error
	DeleteWhere(ctx context.Context, owner ir.RecordRef, collection string, ids []string) error
	List(ctx context.Context, owner ir.RecordRef, collection string) ([]ir.Attachment, error)
}

// Call is one recorded mutating call.
type Call struct {
	Seq        int64     `json:"seq"`
	Op         string    `json:"op"`
	Owner      string    `json:"owner,omitempty"`
	Collection string    `json:"collection,omitempty"`
	IDs        []string  `json:"ids,omitempty"`
	ID         string    `json:"id,omitempty"`
	Properties ir.Object `json:"properties,omitempty"`
	Err        string    `json:"error,omitempty"`
}

// Recorder wraps an attachment store and records every mutating call with a
// monotonic sequence number. Reads are passed through unrecorded.
//
// An error injected with FailOn is returned instead of calling the wrapped
// store.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder struct {
	inner AttachmentStore

	mu    sync.Mutex
	seq   int64
	calls []Call
	fail  map[string]error
}

// NewRecorder wraps inner.
func NewRecorder(inner AttachmentStore) *Recorder {
	return &Recorder{inner: inner, fail: make(map[string]error)}
}

// FailOn makes every later call of op fail with err.
func (r *Recorder) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[op] = err
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Ops returns the recorded operation names in order.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, len(r.calls))
	for i, c := range r.calls {
		ops[i] = c.Op
	}
	return ops
}

// Reset forgets every recorded call and restarts the sequence at 1.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.seq = 0
}

func (r *Recorder) record(c Call, call func() error) error {
	r.mu.Lock()
	r.seq++
	c.Seq = r.seq
	injected := r.fail[c.Op]
	r.mu.Unlock()

	err := injected
	if err == nil {
		err = call()
	}
	if err != nil {
		c.Err = err.Error()
	}

	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	return err
}

// Attach implements AttachmentStore.
func (r *Recorder) Attach(ctx context.Context, ids []string, owner ir.RecordRef, collection string) error {
	c := Call{Op: "attach", Owner: owner.String(), Collection: collection, IDs: slices.Clone(ids)}
	return r.record(c, func() error { return r.inner.Attach(ctx, ids, owner, collection) })
}

// SetOrder implements AttachmentStore.
func (r *Recorder) SetOrder(ctx context.Context, owner ir.RecordRef, collection string, ids []string) error {
	c := Call{Op: "set_order", Owner: owner.String(), Collection: collection, IDs: slices.Clone(ids)}
	return r.record(c, func() error { return r.inner.SetOrder(ctx, owner, collection, ids) })
}

// SetProperties implements AttachmentStore.
func (r *Recorder) SetProperties(ctx context.Context, id string, props ir.Object) error {
	c := Call{Op: "set_properties", ID: id, Properties: props.Clone()}
	return r.record(c, func() error { return r.inner.SetProperties(ctx, id, props) })
}

// DeleteWhere implements AttachmentStore.
func (r *Recorder) DeleteWhere(ctx context.Context, owner ir.RecordRef, collection string, ids []string) error {
	c := Call{Op: "delete_where", Owner: owner.String(), Collection: collection, IDs: slices.Clone(ids)}
	return r.record(c, func() error { return r.inner.DeleteWhere(ctx, owner, collection, ids) })
}

// List implements AttachmentStore.
func (r *Recorder) List(ctx context.Context, owner ir.RecordRef, collection string) ([]ir.Attachment, error) {
	return r.inner.List(ctx, owner, collection)
}
