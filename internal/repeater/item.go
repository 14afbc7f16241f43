package repeater

import (
	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/ir"
)

// Item is one bound instance of a group's schema.
type Item struct {
	// Index is the item's current position. It changes on reorder.
	Index int

	// ID is the stable id. It never changes once assigned.
	ID string

	// Data is the raw item data the fields were filled from, by unprefixed
	// key and without the id.
	Data ir.Object

	scope *field.ItemScope
	tree  *Tree
	name  NameFunc
}

// Scope returns the item scope the fields are bound to.
func (it *Item) Scope() *field.ItemScope { return it.scope }

// IsTemplate reports whether the item is a template stencil.
func (it *Item) IsTemplate() bool { return it.scope != nil && it.scope.IsTemplate() }

// Fields returns the item's bound nodes in schema order.
func (it *Item) Fields() []field.Node { return it.tree.Nodes() }

// Tree returns the item's bound subtree.
func (it *Item) Tree() *Tree { return it.tree }

// Field returns the bound node with the given key, looking through layouts.
func (it *Item) Field(key string) (field.Node, bool) {
	return findKey(it.tree.nodes, key)
}

func findKey(nodes []field.Node, key string) (field.Node, bool) {
	for _, n := range nodes {
		if n.Key() == key {
			return n, true
		}
		if f, ok := n.(*field.Field); ok && f.IsLayout() {
			if found, ok := findKey(f.Children(), key); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// Lists returns the lists of repeating groups nested directly in the item.
func (it *Item) Lists() []*List { return it.tree.Lists() }

// Meaningful reports whether the item carries any non-empty value.
func (it *Item) Meaningful() bool { return Meaningful(it.Data) }

// Collections returns the collection name of each attachment field of the
// item, by item-relative path: the pinned name, else the one the binder's
// naming function resolves. Fields it cannot name are left out, and nested
// items keep their own.
func (it *Item) Collections() map[string]string {
	out := make(map[string]string)
	if it.IsTemplate() {
		return out
	}
	walkAttachments(it.tree.nodes, "", func(path string, f *field.Field) {
		name := f.CollectionOverride()
		if name == "" && it.name != nil {
			if n, err := it.name(f); err == nil {
				name = n
			}
		}
		if name != "" {
			out[path] = name
		}
	})
	return out
}

// Export renders the item as stored data, id and collection names included.
// Values of nodes with an explicit address are written into root instead.
func (it *Item) Export(root ir.Object) ir.Object {
	out := ir.Object{field.IDKey: ir.String(it.ID)}
	if root == nil {
		root = ir.Object{}
	}
	it.tree.exportInto(root, out, it.tree.nodes)
	if pins := it.Collections(); len(pins) > 0 {
		names := make(ir.Object, len(pins))
		for path, name := range pins {
			names[path] = ir.String(name)
		}
		out[field.CollectionsKey] = names
	}
	return out
}

// walkAttachments calls fn for every attachment leaf among nodes with its
// path relative to the nodes' container. Layouts add no segment. Repeating
// groups are not entered.
func walkAttachments(nodes []field.Node, rel string, fn func(path string, f *field.Field)) {
	for _, n := range nodes {
		f, ok := n.(*field.Field)
		if !ok {
			continue
		}
		path := rel
		if !f.IsLayout() {
			path = field.Join(rel, f.Key())
		}
		if children := f.Children(); len(children) > 0 {
			walkAttachments(children, path, fn)
			continue
		}
		if f.IsAttachment() {
			fn(path, f)
		}
	}
}

// pinsOf decodes the collection names stored under field.CollectionsKey.
// Entries that are not strings are ignored.
func pinsOf(v ir.Value) map[string]string {
	obj, ok := v.(ir.Object)
	if !ok || len(obj) == 0 {
		return nil
	}
	pins := make(map[string]string, len(obj))
	for path, name := range obj {
		if s, ok := name.(ir.String); ok && s != "" {
			pins[path] = string(s)
		}
	}
	return pins
}

// Factory builds items of one bound group.
type Factory struct {
	group *Group
	cx    *buildCtx
}

// Build clones every schema declaration, binds the clones to scope and
// fills them from data by unprefixed key. Schema order is preserved.
// Nested groups are expanded from data, reconciled against prev when the
// factory runs in a submission.
//
// Collection names pinned in stored data are re-pinned on the item's
// attachment fields. In a submission they come from prev only; names sent
// by the client are ignored.
func (f *Factory) Build(index int, scope *field.ItemScope, data ir.Object, prev *Item) (*Item, error) {
	data = data.Clone()
	if data == nil {
		data = ir.Object{}
	}
	pins := pinsOf(data[field.CollectionsKey])
	delete(data, field.CollectionsKey)

	decls := f.group.Schema()
	switch {
	case scope.IsTemplate():
		pins = nil
		for i, d := range decls {
			decls[i] = field.MarkAsTemplate(d)
		}
	case f.cx.apply:
		pins = nil
		if prev != nil {
			pins = prev.Collections()
		}
	}

	var prevTree *Tree
	if prev != nil {
		prevTree = prev.tree
	}
	t, err := f.cx.tree(decls, scope, data, prevTree, pins)
	if err != nil {
		return nil, err
	}
	return &Item{
		Index: index,
		ID:    scope.Token(),
		Data:  data,
		scope: scope,
		tree:  t,
		name:  f.cx.binder.name,
	}, nil
}
