package harness

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/ir"
	"github.com/roach88/formtree/internal/store"
	"github.com/roach88/formtree/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Calls    []testutil.Call // Recorded calls for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Calls) > 0 {
		fmt.Fprintf(&buf, "\nAttachment calls:\n")
		for _, c := range e.Calls {
			fmt.Fprintf(&buf, "  [%d] %s %s %s %v\n", c.Seq, c.Op, c.Owner, c.Collection, c.IDs)
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx   context.Context
	Store *store.Store
}

// lookupData follows a dotted path through objects and arrays.
func lookupData(data ir.Object, path string) (ir.Value, bool) {
	var cur ir.Value = data
	for _, tok := range field.Split(path) {
		switch v := cur.(type) {
		case ir.Object:
			next, ok := v[tok]
			if !ok {
				return nil, false
			}
			cur = next
		case ir.Array:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// assertRecordData checks the value at a path in the saved record.
func assertRecordData(result *Result, a Assertion) error {
	actual, found := lookupData(result.Data, a.Path)
	if a.Absent {
		if found {
			return &AssertionError{
				Type:     AssertRecordData,
				Expected: fmt.Sprintf("%s absent", a.Path),
				Actual:   fmt.Sprintf("%s = %s", a.Path, render(actual)),
			}
		}
		return nil
	}

	expected, err := ir.FromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("record_data %s: expect: %w", a.Path, err)
	}
	if !found {
		return &AssertionError{
			Type:     AssertRecordData,
			Expected: fmt.Sprintf("%s = %s", a.Path, render(expected)),
			Actual:   "path not found",
		}
	}
	if !ir.Equal(expected, actual) {
		return &AssertionError{
			Type:     AssertRecordData,
			Expected: fmt.Sprintf("%s = %s", a.Path, render(expected)),
			Actual:   fmt.Sprintf("%s = %s", a.Path, render(actual)),
		}
	}
	return nil
}

// assertCollection checks the ordered attachment ids of a collection of the
// saved record.
func assertCollection(actx *AssertionContext, result *Result, a Assertion) error {
	list, err := actx.Store.List(actx.Ctx, result.Record, a.Collection)
	if err != nil {
		return fmt.Errorf("collection %s: %w", a.Collection, err)
	}
	ids := make([]string, len(list))
	for i, att := range list {
		ids[i] = att.ID
	}
	if !slices.Equal(ids, a.IDs) {
		return &AssertionError{
			Type:     AssertCollection,
			Expected: fmt.Sprintf("%s holds %v", a.Collection, a.IDs),
			Actual:   fmt.Sprintf("%s holds %v", a.Collection, ids),
			Calls:    result.Calls,
		}
	}
	return nil
}

// assertAddress checks a field of the form bound to the saved record.
func assertAddress(result *Result, a Assertion) error {
	if result.Bound == nil {
		return fmt.Errorf("address %s: no bound form", a.Address)
	}
	bf, ok := result.Bound.Field(a.Address)
	if !ok {
		return &AssertionError{
			Type:     AssertAddress,
			Expected: fmt.Sprintf("bound field at %s", a.Address),
			Actual:   "not found",
		}
	}
	if bf.Template != a.Template {
		return &AssertionError{
			Type:     AssertAddress,
			Expected: fmt.Sprintf("%s template=%t", a.Address, a.Template),
			Actual:   fmt.Sprintf("%s template=%t", a.Address, bf.Template),
		}
	}
	if a.Collection != "" && bf.Collection != a.Collection {
		return &AssertionError{
			Type:     AssertAddress,
			Expected: fmt.Sprintf("%s in collection %q", a.Address, a.Collection),
			Actual:   fmt.Sprintf("%s in collection %q", a.Address, bf.Collection),
		}
	}
	return nil
}

// assertRuleKey checks that the form declares a validation rule key.
func assertRuleKey(result *Result, a Assertion) error {
	if result.Bound == nil {
		return fmt.Errorf("rule_key %s: no bound form", a.RuleKey)
	}
	if !slices.Contains(result.Bound.Rules, a.RuleKey) {
		return &AssertionError{
			Type:     AssertRuleKey,
			Expected: fmt.Sprintf("rule key %s", a.RuleKey),
			Actual:   fmt.Sprintf("rule keys %v", result.Bound.Rules),
		}
	}
	return nil
}

// assertCalls checks the exact sequence of attachment store operations.
func assertCalls(result *Result, a Assertion) error {
	ops := make([]string, len(result.Calls))
	for i, c := range result.Calls {
		ops[i] = c.Op
	}
	if !slices.Equal(ops, a.Ops) && (len(ops) > 0 || len(a.Ops) > 0) {
		return &AssertionError{
			Type:     AssertCalls,
			Expected: fmt.Sprintf("calls %v", a.Ops),
			Actual:   fmt.Sprintf("calls %v", ops),
			Calls:    result.Calls,
		}
	}
	return nil
}

func render(v ir.Value) string {
	data, err := ir.MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store access for collection assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRecordData:
			err = assertRecordData(result, assertion)
		case AssertCollection:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: collection requires store context", i)
			} else {
				err = assertCollection(actx, result, assertion)
			}
		case AssertAddress:
			err = assertAddress(result, assertion)
		case AssertRuleKey:
			err = assertRuleKey(result, assertion)
		case AssertCalls:
			err = assertCalls(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
