package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/formtree/internal/collection"
	"github.com/roach88/formtree/internal/engine"
	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/repeater"
)

// Validation error codes (E100-E199)
const (
	ErrFormNameEmpty      = "E101" // form name is required
	ErrFormOwnerEmpty     = "E102" // owner record type is required
	ErrFormNoFields       = "E103" // at least one field required
	ErrDuplicateKey       = "E104" // two root nodes share a key
	ErrDuplicateRuleKey   = "E105" // two leaves share a rule key
	ErrCollectionShared   = "E106" // two attachment fields resolve to one collection
	ErrInvalidCollection  = "E107" // declared collection is not a dotted name
	ErrOverlappingAddress = "E108" // a leaf address lies beneath another leaf
)

// ValidationError represents a form validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// collectionPattern matches dotted collection names such as "media.gallery".
var collectionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

// leaf is a declared leaf with its wildcard address.
type leaf struct {
	field   *field.Field
	address string
	// item is the wildcard prefix of the innermost group item, e.g.
	// chapters.*.sections.*; empty at the root.
	item string
}

// Validate validates a form declaration against the rules that span more
// than one node. Returns all errors found (does not fail-fast).
func Validate(form *engine.Form) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(form.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "form name is required", Code: ErrFormNameEmpty})
	}
	if strings.TrimSpace(form.Owner) == "" {
		errs = append(errs, ValidationError{Field: "owner", Message: "owner record type is required", Code: ErrFormOwnerEmpty})
	}
	if len(form.Nodes) == 0 {
		errs = append(errs, ValidationError{Field: "fields", Message: "at least one field is required", Code: ErrFormNoFields})
		return errs
	}

	seen := make(map[string]bool)
	for i, n := range form.Nodes {
		for _, k := range field.AddressedKeys(n) {
			if seen[k] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("fields[%d]", i),
					Message: fmt.Sprintf("duplicate field key %q", k),
					Code:    ErrDuplicateKey,
				})
			}
			seen[k] = true
		}
	}

	rules, err := repeater.RuleKeys(form.Nodes)
	if err != nil {
		errs = append(errs, ValidationError{Field: "fields", Message: err.Error(), Code: ErrDuplicateRuleKey})
	}
	seenRules := make(map[string]bool, len(rules))
	for _, k := range rules {
		if seenRules[k] {
			errs = append(errs, ValidationError{
				Field:   k,
				Message: "two fields share this address",
				Code:    ErrDuplicateRuleKey,
			})
		}
		seenRules[k] = true
	}

	var leaves []leaf
	collectLeaves(form.Nodes, "", "", &leaves)
	errs = append(errs, validateOverlap(leaves)...)
	errs = append(errs, validateCollections(leaves)...)
	return errs
}

func collectLeaves(nodes []field.Node, prefix, item string, out *[]leaf) {
	for _, n := range nodes {
		switch x := n.(type) {
		case *repeater.Group:
			base := x.ExplicitAddress()
			if base == "" {
				base = field.Join(prefix, x.Key())
			}
			inner := field.Join(base, field.Wildcard)
			collectLeaves(x.Schema(), inner, inner, out)
		case *field.Field:
			addr := x.ExplicitAddress()
			if addr == "" {
				addr = field.Join(prefix, x.Key())
			}
			if children := x.Children(); len(children) > 0 {
				collectLeaves(children, addr, item, out)
				continue
			}
			if !x.IsLayout() {
				*out = append(*out, leaf{field: x, address: addr, item: item})
			}
		}
	}
}

func validateOverlap(leaves []leaf) []ValidationError {
	var errs []ValidationError
	for i, a := range leaves {
		for j, b := range leaves {
			if i == j || a.address == b.address {
				continue
			}
			if field.HasPrefix(b.address, a.address) {
				errs = append(errs, ValidationError{
					Field:   b.address,
					Message: fmt.Sprintf("address lies beneath field %q", a.address),
					Code:    ErrOverlappingAddress,
				})
			}
		}
	}
	return errs
}

// validateCollections checks that no two attachment fields can resolve to
// the same collection for the same item.
func validateCollections(leaves []leaf) []ValidationError {
	var errs []ValidationError
	owners := make(map[string]string)
	for _, l := range leaves {
		if !l.field.IsAttachment() {
			continue
		}
		declared := l.field.DeclaredCollection()
		if declared != "" && !collectionPattern.MatchString(declared) {
			errs = append(errs, ValidationError{
				Field:   l.address,
				Message: fmt.Sprintf("invalid collection name %q", declared),
				Code:    ErrInvalidCollection,
			})
			continue
		}

		name := declared
		switch {
		case l.item != "":
			if name == "" {
				name = l.field.Key()
			}
			name = field.Join(name, l.item)
		case name == "":
			name = collection.DefaultName
		}

		if prev, ok := owners[name]; ok {
			errs = append(errs, ValidationError{
				Field:   l.address,
				Message: fmt.Sprintf("collection %q is already used by %q", name, prev),
				Code:    ErrCollectionShared,
			})
			continue
		}
		owners[name] = l.address
	}
	return errs
}
