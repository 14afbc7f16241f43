package repeater

import (
	"fmt"

	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/idgen"
	"github.com/roach88/formtree/internal/ir"
)

// RemoveHook is called for every item leaving a list, whether removed
// explicitly, dropped from a submission, or pruned.
type RemoveHook func(list *List, item *Item)

// NameFunc resolves the collection name of a bound attachment field.
type NameFunc func(f *field.Field) (string, error)

// RetainFunc reports whether a stored item that was resubmitted without any
// values still holds something worth keeping.
type RetainFunc func(list *List, item *Item) (bool, error)

// Binder binds form declarations to data. It is request-scoped: create one
// per request with the request's id generator and removal hooks.
type Binder struct {
	gen    idgen.Generator
	hooks  []RemoveHook
	name   NameFunc
	retain RetainFunc
}

// NewBinder creates a Binder minting fresh item ids from gen.
func NewBinder(gen idgen.Generator) *Binder {
	if gen == nil {
		gen = idgen.UUIDv7{}
	}
	return &Binder{gen: gen}
}

// OnRemove registers a hook called for every removed item, in registration
// order.
func (b *Binder) OnRemove(hook RemoveHook) {
	b.hooks = append(b.hooks, hook)
}

// NameCollections makes exported items pin the collection name of each of
// their attachment fields under field.CollectionsKey. Fields without a
// pinned name are named by fn.
func (b *Binder) NameCollections(fn NameFunc) {
	b.name = fn
}

// RetainWhen keeps a stored item whose submission carries no values when fn
// reports true for it. Without fn such items are pruned.
func (b *Binder) RetainWhen(fn RetainFunc) {
	b.retain = fn
}

func (b *Binder) retained(l *List, it *Item) (bool, error) {
	if b.retain == nil || it == nil {
		return false, nil
	}
	return b.retain(l, it)
}

func (b *Binder) removed(l *List, it *Item) {
	for _, hook := range b.hooks {
		hook(l, it)
	}
}

// Load binds decls to stored record data for display. Stored items keep
// their ids; legacy items without one are keyed by position. Count
// constraints are not enforced on load.
func (b *Binder) Load(decls []field.Node, data ir.Object) (*Tree, error) {
	cx := &buildCtx{binder: b, root: data}
	return cx.tree(decls, nil, data, nil, nil)
}

// Apply binds decls to submitted data, reconciling every repeating group
// against prev (nil for a record without stored data). It returns the new
// tree and the changes of every list, nested lists included, in binding
// order.
func (b *Binder) Apply(prev *Tree, decls []field.Node, submitted ir.Object) (*Tree, []*Changes, error) {
	cx := &buildCtx{binder: b, root: submitted, apply: true}
	t, err := cx.tree(decls, nil, submitted, prev, nil)
	if err != nil {
		return nil, nil, err
	}
	return t, cx.changes, nil
}

// buildCtx carries the per-bind state shared by every level of a tree.
type buildCtx struct {
	binder  *Binder
	root    ir.Object
	apply   bool
	changes []*Changes
}

// valueFor returns the data for n: its explicit address looked up from the
// record root, otherwise its key within data.
func (cx *buildCtx) valueFor(n field.Node, data ir.Object) (ir.Value, bool) {
	if p := n.ExplicitAddress(); p != "" {
		return lookupPath(cx.root, field.Split(p))
	}
	if data == nil {
		return nil, false
	}
	v, ok := data[n.Key()]
	return v, ok
}

// childData returns the object holding the children of a fieldset or layout.
func (cx *buildCtx) childData(n *field.Field, data ir.Object) ir.Object {
	if n.IsLayout() {
		return data
	}
	v, _ := cx.valueFor(n, data)
	obj, _ := v.(ir.Object)
	return obj
}

// fill returns a copy of the unbound declaration carrying its values.
// Attachment leaves whose item-relative path is in pins are pinned to that
// collection name.
func (cx *buildCtx) fill(decl field.Node, data ir.Object, pins map[string]string, rel string) field.Node {
	f, ok := decl.(*field.Field)
	if !ok {
		return decl
	}
	path := rel
	if !f.IsLayout() {
		path = field.Join(rel, f.Key())
	}
	children := f.Children()
	if len(children) == 0 {
		if f.IsLayout() {
			return f
		}
		if name := pins[path]; name != "" && f.IsAttachment() {
			f = f.WithCollectionOverride(name)
		}
		if v, ok := cx.valueFor(f, data); ok {
			return f.WithValue(v)
		}
		return f
	}
	sub := cx.childData(f, data)
	filled := make([]field.Node, len(children))
	for i, c := range children {
		filled[i] = cx.fill(c, sub, pins, path)
	}
	return f.WithChildNodes(filled)
}

func (cx *buildCtx) tree(decls []field.Node, c field.Container, data ir.Object, prev *Tree, pins map[string]string) (*Tree, error) {
	t := &Tree{
		container: c,
		byAddress: make(map[string]*List),
		byGroup:   make(map[*Group]*List),
	}
	t.nodes = make([]field.Node, len(decls))
	for i, decl := range decls {
		t.nodes[i] = cx.fill(decl, data, pins, "").Bind(c)
	}
	if err := cx.attach(t, t.nodes, data, prev); err != nil {
		return nil, err
	}
	return t, nil
}

// attach creates a list for every repeating group among nodes.
func (cx *buildCtx) attach(t *Tree, nodes []field.Node, data ir.Object, prev *Tree) error {
	for _, n := range nodes {
		switch x := n.(type) {
		case *Group:
			if err := cx.attachGroup(t, x, data, prev); err != nil {
				return err
			}
		case *field.Field:
			if children := x.Children(); len(children) > 0 {
				if err := cx.attach(t, children, cx.childData(x, data), prev); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (cx *buildCtx) attachGroup(t *Tree, g *Group, data ir.Object, prev *Tree) error {
	address, err := field.Address(g)
	if err != nil {
		return err
	}
	v, _ := cx.valueFor(g, data)
	raws, err := Normalize(v)
	if err != nil {
		return fmt.Errorf("%s: %w", address, err)
	}

	l := newList(g, address, cx)
	if cx.apply {
		var prevList *List
		if prev != nil {
			prevList = prev.byAddress[address]
		}
		changes, err := l.reconcile(prevList, raws)
		if err != nil {
			return err
		}
		cx.changes = append(cx.changes, changes)
	} else if err := l.load(raws); err != nil {
		return err
	}

	t.lists = append(t.lists, l)
	t.byAddress[address] = l
	t.byGroup[g] = l
	return nil
}

func lookupPath(obj ir.Object, tokens []string) (ir.Value, bool) {
	var cur ir.Value = obj
	for _, tok := range tokens {
		o, ok := cur.(ir.Object)
		if !ok {
			return nil, false
		}
		if cur, ok = o[tok]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(obj ir.Object, tokens []string, v ir.Value) {
	for i, tok := range tokens {
		if i == len(tokens)-1 {
			obj[tok] = v
			return
		}
		next, ok := obj[tok].(ir.Object)
		if !ok {
			next = ir.Object{}
			obj[tok] = next
		}
		obj = next
	}
}

// Tree is one level of bound nodes: a form's root, or one item's fields.
type Tree struct {
	container field.Container
	nodes     []field.Node
	lists     []*List
	byAddress map[string]*List
	byGroup   map[*Group]*List
}

// Nodes returns the bound nodes of this level in declaration order.
func (t *Tree) Nodes() []field.Node {
	out := make([]field.Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Lists returns the lists of the groups at this level.
func (t *Tree) Lists() []*List {
	out := make([]*List, len(t.lists))
	copy(out, t.lists)
	return out
}

// ListFor returns the list bound to group g.
func (t *Tree) ListFor(g *Group) (*List, bool) {
	l, ok := t.byGroup[g]
	return l, ok
}

// List finds a list by its group's address anywhere in the tree.
func (t *Tree) List(address string) (*List, bool) {
	if l, ok := t.byAddress[address]; ok {
		return l, true
	}
	for _, l := range t.lists {
		if !field.HasPrefix(address, l.address) {
			continue
		}
		for _, it := range l.items {
			if found, ok := it.tree.List(address); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// Leaves returns every bound leaf, expanding repeating groups into their
// items' leaves, in document order.
func (t *Tree) Leaves() []field.Node {
	var out []field.Node
	t.walkLeaves(t.nodes, &out)
	return out
}

func (t *Tree) walkLeaves(nodes []field.Node, out *[]field.Node) {
	for _, n := range nodes {
		switch x := n.(type) {
		case *Group:
			if l, ok := t.byGroup[x]; ok {
				for _, it := range l.items {
					it.tree.walkLeaves(it.tree.nodes, out)
				}
			}
		case *field.Field:
			if children := x.Children(); len(children) > 0 {
				t.walkLeaves(children, out)
				continue
			}
			if !x.IsLayout() {
				*out = append(*out, x)
			}
		default:
			*out = append(*out, n)
		}
	}
}

// Attachments returns every attachment-bearing leaf in document order.
func (t *Tree) Attachments() []*field.Field {
	var out []*field.Field
	for _, n := range t.Leaves() {
		if f, ok := n.(*field.Field); ok && f.IsAttachment() {
			out = append(out, f)
		}
	}
	return out
}

// Export renders the tree as record data. Attachment fields are not part of
// record data and are skipped; leaves without a value are left out.
func (t *Tree) Export() ir.Object {
	root := ir.Object{}
	t.exportInto(root, root, t.nodes)
	return root
}

func (t *Tree) exportInto(root, out ir.Object, nodes []field.Node) {
	for _, n := range nodes {
		target, tokens := out, []string{n.Key()}
		if p := n.ExplicitAddress(); p != "" {
			target, tokens = root, field.Split(p)
		}
		switch x := n.(type) {
		case *Group:
			l, ok := t.byGroup[x]
			if !ok {
				continue
			}
			setPath(target, tokens, l.export(root))
		case *field.Field:
			if x.IsAttachment() {
				continue
			}
			if x.IsLayout() {
				t.exportInto(root, out, x.Children())
				continue
			}
			if children := x.Children(); len(children) > 0 {
				sub := ir.Object{}
				t.exportInto(root, sub, children)
				setPath(target, tokens, sub)
				continue
			}
			if v, ok := x.Value(); ok {
				setPath(target, tokens, ir.CloneValue(v))
			}
		}
	}
}
