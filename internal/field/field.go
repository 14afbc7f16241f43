package field

import (
	"github.com/roach88/formtree/internal/formerr"
	"github.com/roach88/formtree/internal/ir"
)

// Field is the atomic schema node. A Field with children acts as a
// container; a Field with an empty key is a layout that groups children
// without contributing an address segment.
//
// Fields are values in spirit: every With*/Bind/MarkTemplate call returns a
// fresh copy.
type Field struct {
	key        string
	explicit   string
	template   bool
	container  Container
	children   []Node
	attachment bool
	collection string
	override   string
	label      string
	value      ir.Value
	hasValue   bool
}

// Option configures a Field at declaration time.
type Option func(*Field)

// WithStatePath sets an explicit address that replaces the composed one.
func WithStatePath(path string) Option {
	return func(f *Field) {
		f.explicit = path
	}
}

// WithCollection declares the attachment collection base name.
// Implies Attachment().
func WithCollection(name string) Option {
	return func(f *Field) {
		f.attachment = true
		f.collection = name
	}
}

// Attachment marks the field as attachment-bearing.
func Attachment() Option {
	return func(f *Field) {
		f.attachment = true
	}
}

// WithLabel sets a display label.
func WithLabel(label string) Option {
	return func(f *Field) {
		f.label = label
	}
}

// WithChildren gives the field non-repeating children, making it a container.
func WithChildren(children ...Node) Option {
	return func(f *Field) {
		f.children = append(f.children, children...)
	}
}

// New declares a field. The key is NFC normalized and validated.
func New(key string, opts ...Option) (*Field, error) {
	key = NormalizeKey(key)
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return build(key, opts)
}

// NewLayout declares a keyless container whose children are addressed as if
// they were declared directly in the layout's own container.
func NewLayout(children ...Node) (*Field, error) {
	return build("", []Option{WithChildren(children...)})
}

// MustNew is like New but panics on error.
// Use only for literal schemas in tests and examples.
func MustNew(key string, opts ...Option) *Field {
	f, err := New(key, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func build(key string, opts []Option) (*Field, error) {
	f := &Field{key: key}
	for _, opt := range opts {
		opt(f)
	}
	if f.key == "" && f.attachment {
		return nil, formerr.Structural("", "a layout cannot carry attachments")
	}
	if f.key == "" && f.explicit != "" {
		return nil, formerr.Structural(f.explicit, "a layout cannot have a state path")
	}
	if f.attachment && len(f.children) > 0 {
		return nil, formerr.Structural(f.key, "an attachment field cannot hold children")
	}

	seen := make(map[string]bool, len(f.children))
	for _, child := range f.children {
		if child == nil {
			return nil, formerr.Structural(f.key, "nil child")
		}
		for _, k := range AddressedKeys(child) {
			if seen[k] {
				return nil, formerr.Structural(f.key, "duplicate child key %q", k)
			}
			seen[k] = true
		}
	}

	f.children = rebindAll(f.children, f)
	return f, nil
}

// AddressedKeys lists the keys a node occupies in its container. Layouts
// occupy the keys of their children.
func AddressedKeys(n Node) []string {
	if n.Key() != "" {
		return []string{n.Key()}
	}
	p, ok := n.(Parent)
	if !ok {
		return nil
	}
	var keys []string
	for _, c := range p.Children() {
		keys = append(keys, AddressedKeys(c)...)
	}
	return keys
}

func rebindAll(nodes []Node, c Container) []Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Bind(c)
	}
	return out
}

// Key implements Node.
func (f *Field) Key() string { return f.key }

// ExplicitAddress implements Node.
func (f *Field) ExplicitAddress() string { return f.explicit }

// IsTemplate implements Node.
func (f *Field) IsTemplate() bool { return f.template }

// Container implements Node.
func (f *Field) Container() Container { return f.container }

// Children implements Parent.
func (f *Field) Children() []Node {
	out := make([]Node, len(f.children))
	copy(out, f.children)
	return out
}

// Label returns the display label, defaulting to the key.
func (f *Field) Label() string {
	if f.label != "" {
		return f.label
	}
	return f.key
}

// IsLayout reports whether the field is a keyless layout container.
func (f *Field) IsLayout() bool { return f.key == "" }

// IsAttachment reports whether the field carries attachments.
func (f *Field) IsAttachment() bool { return f.attachment }

// DeclaredCollection is the collection base name given at declaration.
func (f *Field) DeclaredCollection() string { return f.collection }

// CollectionOverride is a previously persisted collection name pinned on
// this instance, or "".
func (f *Field) CollectionOverride() string { return f.override }

// Value implements Valued.
func (f *Field) Value() (ir.Value, bool) { return f.value, f.hasValue }

// ChildPrefix implements Container. A keyed field prefixes children with its
// own address; a layout passes its container's prefix through.
func (f *Field) ChildPrefix(mode Mode) (string, error) {
	if f.key == "" {
		if f.container == nil {
			return "", nil
		}
		return f.container.ChildPrefix(mode)
	}
	return resolve(f, mode)
}

// Bind implements Node. Children are re-bound to the copy, top-down.
func (f *Field) Bind(c Container) Node {
	clone := f.clone()
	clone.container = c
	clone.children = rebindAll(f.children, clone)
	return clone
}

// MarkTemplate implements Node.
func (f *Field) MarkTemplate() Node {
	clone := f.clone()
	clone.template = true
	marked := make([]Node, len(f.children))
	for i, child := range f.children {
		marked[i] = child.MarkTemplate()
	}
	clone.children = rebindAll(marked, clone)
	return clone
}

// WithValue returns a copy holding v.
func (f *Field) WithValue(v ir.Value) *Field {
	clone := f.clone()
	clone.value = v
	clone.hasValue = true
	clone.children = rebindAll(f.children, clone)
	return clone
}

// WithCollectionOverride returns a copy pinned to a persisted collection name.
func (f *Field) WithCollectionOverride(name string) *Field {
	clone := f.clone()
	clone.override = name
	clone.children = rebindAll(f.children, clone)
	return clone
}

// WithChildNodes returns a copy whose children are replaced by nodes, each
// bound to the copy.
func (f *Field) WithChildNodes(nodes []Node) *Field {
	clone := f.clone()
	clone.children = rebindAll(nodes, clone)
	return clone
}

func (f *Field) clone() *Field {
	c := *f
	return &c
}
