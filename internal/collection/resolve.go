// Package collection derives attachment collection names and plans the
// attachment store mutations a submission implies.
//
// A collection name is computed, never stored on its own:
//
//  1. a per-instance override (a name persisted earlier in the item's life)
//  2. inside a repeating group: base + "." + innermost item prefix, where
//     base is the declared collection or the field key
//  3. at the root: the declared collection or the default name
//
// Sibling items differ in their item token and sibling fields in their
// base, so no two fields of one record share a collection by accident.
package collection

import (
	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/formerr"
)

// DefaultName is the collection of root attachment fields that declare none.
const DefaultName = "default"

// Attachable is an attachment-bearing node.
type Attachable interface {
	field.Node
	DeclaredCollection() string
	CollectionOverride() string
}

// Resolver resolves collection names.
type Resolver struct {
	// Default is used for root fields without a declared collection.
	// Empty means DefaultName.
	Default string
}

// ResolveName resolves with the default root collection name.
func ResolveName(f Attachable) (string, error) {
	return Resolver{}.ResolveName(f)
}

// ResolveName returns the collection name of f.
// Template fields have no backing record and fail with a collection
// resolution error.
func (r Resolver) ResolveName(f Attachable) (string, error) {
	if f == nil {
		return "", formerr.CollectionResolution("", "nil field")
	}
	if field.IsTemplate(f) {
		addr, _ := field.TemplateSafeAddress(f)
		return "", formerr.CollectionResolution(addr, "template fields have no collection")
	}
	if name := f.CollectionOverride(); name != "" {
		return name, nil
	}

	scope, ok := field.NearestItem(f)
	if !ok {
		if name := f.DeclaredCollection(); name != "" {
			return name, nil
		}
		if r.Default != "" {
			return r.Default, nil
		}
		return DefaultName, nil
	}

	prefix, err := scope.ChildPrefix(field.ModeConcrete)
	if err != nil {
		return "", err
	}
	base := f.DeclaredCollection()
	if base == "" {
		base = f.Key()
	}
	return field.Join(base, prefix), nil
}
