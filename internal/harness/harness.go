package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/formtree/internal/compiler"
	"github.com/roach88/formtree/internal/engine"
	"github.com/roach88/formtree/internal/formerr"
	"github.com/roach88/formtree/internal/idgen"
	"github.com/roach88/formtree/internal/input"
	"github.com/roach88/formtree/internal/ir"
	"github.com/roach88/formtree/internal/store"
	"github.com/roach88/formtree/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with fixed item, record and upload ids.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	recorder *testutil.Recorder
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Fixed id generators make the recorded calls reproducible.
//
// Execution flow:
// 1. Load and compile the CUE schema, pick the form
// 2. Create fresh in-memory database
// 3. Create pending uploads, the stored record and its attachments
// 4. Submit through the engine, recording attachment calls
// 5. Bind the form to the saved record and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	loaded, errs := compiler.LoadDir(scenario.Schema, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load schema: %w", errors.Join(errs...))
	}
	form, ok := loaded.Form(scenario.Form)
	if !ok {
		return nil, fmt.Errorf("form %q not found in %s", scenario.Form, scenario.Schema)
	}

	st, err := store.Open(":memory:", store.WithIDGenerator(idgen.NewFixed(scenario.StoreIDs...)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	rec := testutil.NewRecorder(st)
	h := &Harness{
		store:    st,
		recorder: rec,
		logger:   logger,
		engine: engine.New(st, rec,
			engine.WithIDGenerator(idgen.NewFixed(scenario.ItemIDs...)),
			engine.WithLogger(logger),
		),
	}

	ctx := context.Background()
	ref := ir.RecordRef{Type: scenario.Record.Type, ID: scenario.Record.ID}
	if ref.Type == "" {
		ref.Type = form.Owner
	}

	if err := h.executeSetup(ctx, scenario, ref); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	submitted, err := submission(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to parse submission: %w", err)
	}

	result := NewResult()
	if err := h.submit(ctx, form, ref, submitted, scenario.ExpectError, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Ctx: ctx, Store: st}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSetup creates pending uploads, the stored record, and the
// attachments the record already owns. Setup bypasses the recorder.
func (h *Harness) executeSetup(ctx context.Context, scenario *Scenario, ref ir.RecordRef) error {
	for i, name := range scenario.Uploads {
		a, err := h.store.CreatePending(ctx, name)
		if err != nil {
			return fmt.Errorf("upload %d: %w", i, err)
		}
		h.logger.Info("pending upload created", "id", a.ID, "name", name)
	}

	if scenario.Stored != nil {
		data, err := toObject(scenario.Stored)
		if err != nil {
			return fmt.Errorf("stored: %w", err)
		}
		if _, err := h.store.Save(ctx, ir.Entity{Ref: ref, Data: data}); err != nil {
			return fmt.Errorf("stored: %w", err)
		}
	}

	for i, step := range scenario.Attachments {
		if err := h.store.Attach(ctx, step.IDs, ref, step.Collection); err != nil {
			return fmt.Errorf("attachments[%d]: %w", i, err)
		}
	}
	return nil
}

// submit runs the submission and fills result with the outcome. A
// submission error is part of the outcome, not a harness failure.
func (h *Harness) submit(ctx context.Context, form *engine.Form, ref ir.RecordRef, submitted ir.Object, expectError string, result *Result) error {
	res, subErr := h.engine.Submit(ctx, form, ref, submitted)
	result.Calls = h.recorder.Calls()

	switch {
	case res != nil:
		result.Record = res.Record
		result.Data = res.Data
	case ref.Identified():
		data, err := h.store.Load(ctx, ref)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to reload record: %w", err)
		}
		result.Record = ref
		result.Data = data
	default:
		result.Record = ref
	}

	switch {
	case subErr != nil:
		result.Err = subErr.Error()
		if expectError == "" {
			result.AddError(fmt.Sprintf("submission failed: %v", subErr))
		} else if !formerr.HasCode(subErr, formerr.Code(expectError)) {
			result.AddError(fmt.Sprintf("expected %s error, got: %v", expectError, subErr))
		}
	case expectError != "":
		result.AddError(fmt.Sprintf("expected %s error, submission succeeded", expectError))
	}

	h.logger.Info("submission completed",
		"record", result.Record.String(),
		"calls", len(result.Calls),
		"error", result.Err,
	)

	bound, err := h.engine.Bind(ctx, form, result.Record)
	if err != nil {
		return fmt.Errorf("failed to bind saved record: %w", err)
	}
	result.Bound = bound
	return nil
}

// submission converts the scenario's submitted data into an object.
func submission(s *Scenario) (ir.Object, error) {
	if s.Fields != nil {
		return input.ParseFlat(s.Fields)
	}
	if s.Submit == nil {
		return ir.Object{}, nil
	}
	return toObject(s.Submit)
}

func toObject(m map[string]any) (ir.Object, error) {
	v, err := ir.FromAny(m)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
	return obj, nil
}
