package engine

import (
	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/formerr"
	"github.com/roach88/formtree/internal/repeater"
)

// Form is a named form declaration for one record type.
type Form struct {
	// Name identifies the form.
	Name string

	// Owner is the record type the form edits.
	Owner string

	// Nodes are the root declarations in order.
	Nodes []field.Node
}

// NewForm declares a form and validates it.
func NewForm(name, owner string, nodes ...field.Node) (*Form, error) {
	f := &Form{Name: name, Owner: owner, Nodes: nodes}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks that the form has a name and owner, and that no two
// leaves share a validation rule key, which would make them share an
// address.
func (f *Form) Validate() error {
	if f.Name == "" {
		return formerr.Structural("", "form needs a name")
	}
	if f.Owner == "" {
		return formerr.Structural(f.Name, "form needs an owner record type")
	}
	if len(f.Nodes) == 0 {
		return formerr.Structural(f.Name, "form has no fields")
	}
	roots := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if n == nil {
			return formerr.Structural(f.Name, "nil field")
		}
		for _, k := range field.AddressedKeys(n) {
			if roots[k] {
				return formerr.Structural(k, "duplicate field key in form %q", f.Name)
			}
			roots[k] = true
		}
	}

	keys, err := f.RuleKeys()
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			return formerr.Structural(k, "two fields of form %q share this address", f.Name)
		}
		seen[k] = true
	}
	return nil
}

// RuleKeys returns the validation rule key of every leaf, with item tokens
// replaced by "*", e.g. gallery.*.image.
func (f *Form) RuleKeys() ([]string, error) {
	return repeater.RuleKeys(f.Nodes)
}
