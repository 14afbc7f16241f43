package repeater

import (
	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/formerr"
)

// Group is a repeating group declaration (or a bound copy of one).
type Group struct {
	key       string
	explicit  string
	label     string
	template  bool
	container field.Container
	schema    []field.Node
	minItems  int
	maxItems  int
}

// Option configures a Group at declaration time.
type Option func(*Group)

// MinItems sets the minimum number of items.
func MinItems(n int) Option {
	return func(g *Group) {
		g.minItems = n
	}
}

// MaxItems sets the maximum number of items. Zero means unbounded.
func MaxItems(n int) Option {
	return func(g *Group) {
		g.maxItems = n
	}
}

// WithStatePath sets an explicit address for the group.
func WithStatePath(path string) Option {
	return func(g *Group) {
		g.explicit = path
	}
}

// WithLabel sets a display label.
func WithLabel(label string) Option {
	return func(g *Group) {
		g.label = label
	}
}

// New declares a repeating group over schema.
//
// Declaration fails with a structural error when the key is invalid, the
// schema is empty or repeats a key, the count bounds are inconsistent, or a
// schema entry is itself a repeating group. Groups may still nest through a
// layout or a keyed fieldset.
func New(key string, schema []field.Node, opts ...Option) (*Group, error) {
	key = field.NormalizeKey(key)
	if err := field.ValidateKey(key); err != nil {
		return nil, err
	}

	g := &Group{key: key}
	for _, opt := range opts {
		opt(g)
	}

	if len(schema) == 0 {
		return nil, formerr.Structural(key, "repeating group needs at least one child")
	}
	if g.minItems < 0 || g.maxItems < 0 {
		return nil, formerr.Structural(key, "item bounds must not be negative")
	}
	if g.maxItems > 0 && g.minItems > g.maxItems {
		return nil, formerr.Structural(key, "min_items %d exceeds max_items %d", g.minItems, g.maxItems)
	}

	seen := make(map[string]bool, len(schema))
	for _, child := range schema {
		if child == nil {
			return nil, formerr.Structural(key, "nil child")
		}
		if _, ok := child.(field.Repeating); ok {
			return nil, formerr.Structural(key,
				"repeating group %q cannot be a direct child of repeating group %q; wrap it in a layout or fieldset",
				child.Key(), key)
		}
		for _, k := range field.AddressedKeys(child) {
			if seen[k] {
				return nil, formerr.Structural(key, "duplicate child key %q", k)
			}
			seen[k] = true
		}
	}

	g.schema = append([]field.Node(nil), schema...)
	return g, nil
}

// MustNew is like New but panics on error.
// Use only for literal schemas in tests and examples.
func MustNew(key string, schema []field.Node, opts ...Option) *Group {
	g, err := New(key, schema, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

// Key implements field.Node.
func (g *Group) Key() string { return g.key }

// ExplicitAddress implements field.Node.
func (g *Group) ExplicitAddress() string { return g.explicit }

// IsTemplate implements field.Node.
func (g *Group) IsTemplate() bool { return g.template }

// Container implements field.Node.
func (g *Group) Container() field.Container { return g.container }

// Schema implements field.Repeating. The returned declarations are unbound.
func (g *Group) Schema() []field.Node {
	out := make([]field.Node, len(g.schema))
	copy(out, g.schema)
	return out
}

// Label returns the display label, defaulting to the key.
func (g *Group) Label() string {
	if g.label != "" {
		return g.label
	}
	return g.key
}

// Bounds returns the item count constraint. max == 0 means unbounded.
func (g *Group) Bounds() (minItems, maxItems int) {
	return g.minItems, g.maxItems
}

// Bind implements field.Node. The schema stays a list of declarations.
func (g *Group) Bind(c field.Container) field.Node {
	clone := *g
	clone.container = c
	return &clone
}

// MarkTemplate implements field.Node.
func (g *Group) MarkTemplate() field.Node {
	clone := *g
	clone.template = true
	return &clone
}

// Address resolves the group's own address.
func (g *Group) Address() (string, error) {
	return field.Address(g)
}

// RuleKeys returns the wildcard validation rule key of every leaf reachable
// from the group, e.g. gallery.*.image, in declaration order.
func (g *Group) RuleKeys() ([]string, error) {
	scope := field.NewTemplateScope(g)
	var keys []string
	for _, decl := range g.schema {
		bound := decl.Bind(scope)
		if err := collectRuleKeys(bound, &keys); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// RuleKeys returns the validation rule keys for a list of root nodes.
func RuleKeys(nodes []field.Node) ([]string, error) {
	var keys []string
	for _, n := range nodes {
		if err := collectRuleKeys(n, &keys); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func collectRuleKeys(n field.Node, keys *[]string) error {
	switch x := n.(type) {
	case *Group:
		nested, err := x.RuleKeys()
		if err != nil {
			return err
		}
		*keys = append(*keys, nested...)
		return nil
	case field.Parent:
		children := x.Children()
		if len(children) > 0 {
			for _, c := range children {
				if err := collectRuleKeys(c, keys); err != nil {
					return err
				}
			}
			return nil
		}
		if f, ok := x.(*field.Field); ok && f.IsLayout() {
			return nil
		}
	}
	key, err := field.RuleKey(n)
	if err != nil {
		return err
	}
	*keys = append(*keys, key)
	return nil
}
