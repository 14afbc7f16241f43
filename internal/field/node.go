package field

import "github.com/roach88/formtree/internal/ir"

// Mode selects how item tokens are rendered while resolving an address.
type Mode int

const (
	// ModeConcrete renders each item's own token.
	ModeConcrete Mode = iota
	// ModeTemplate replaces every item token with TemplateToken.
	ModeTemplate
	// ModeWildcard replaces every item token with Wildcard (validation rule keys).
	ModeWildcard
)

// Node is anything declared in a form schema.
type Node interface {
	// Key is the node's own path segment. Layout nodes have an empty key.
	Key() string

	// ExplicitAddress is the state path override, or "" when none is set.
	ExplicitAddress() string

	// IsTemplate reports whether the node is a template stencil.
	IsTemplate() bool

	// Container is the container the node is bound to, nil at the root.
	Container() Container

	// Bind returns a copy of the node attached to c.
	// The receiver is not modified.
	Bind(c Container) Node

	// MarkTemplate returns a template-marked copy of the node and its subtree.
	MarkTemplate() Node
}

// Container provides the address prefix for nodes bound to it.
type Container interface {
	ChildPrefix(mode Mode) (string, error)
}

// Parent is a node holding non-repeating children bound to itself.
type Parent interface {
	Node
	Container
	Children() []Node
}

// Repeating is implemented by repeating groups. Schema returns the unbound
// child declarations; they are bound per item through an ItemScope.
type Repeating interface {
	Node
	Schema() []Node
}

// Valued is a node carrying a bound value.
type Valued interface {
	Node
	Value() (ir.Value, bool)
}
