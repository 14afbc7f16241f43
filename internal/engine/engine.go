package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/formtree/internal/collection"
	"github.com/roach88/formtree/internal/idgen"
	"github.com/roach88/formtree/internal/ir"
)

// RecordStore persists records.
type RecordStore interface {
	// Save writes e and returns its reference, assigning an id to new
	// records.
	Save(ctx context.Context, e ir.Entity) (ir.RecordRef, error)

	// Load returns the stored data of ref.
	Load(ctx context.Context, ref ir.RecordRef) (ir.Object, error)
}

// AttachmentStore holds attachments in (owner, collection) buckets.
type AttachmentStore interface {
	collection.Store
}

// Engine binds forms and processes submissions.
//
// Thread-safety: an Engine holds no per-request state and may be shared.
// Every Bind and Submit call builds its own binder and coordinator.
type Engine struct {
	records     RecordStore
	attachments AttachmentStore
	gen         idgen.Generator
	logger      *slog.Logger
	resolver    collection.Resolver
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithIDGenerator sets the generator for new item ids. Defaults to UUIDv7.
func WithIDGenerator(gen idgen.Generator) EngineOption {
	return func(e *Engine) {
		e.gen = gen
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDefaultCollection sets the collection of root attachment fields that
// declare none. Defaults to collection.DefaultName.
func WithDefaultCollection(name string) EngineOption {
	return func(e *Engine) {
		e.resolver.Default = name
	}
}

// New creates an Engine over the given stores.
func New(records RecordStore, attachments AttachmentStore, opts ...EngineOption) *Engine {
	e := &Engine{
		records:     records,
		attachments: attachments,
		gen:         idgen.UUIDv7{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// load returns the stored data of ref, or an empty object for new records.
func (e *Engine) load(ctx context.Context, ref ir.RecordRef) (ir.Object, error) {
	if !ref.Identified() {
		return ir.Object{}, nil
	}
	return e.records.Load(ctx, ref)
}
