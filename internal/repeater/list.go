package repeater

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/formerr"
	"github.com/roach88/formtree/internal/ir"
)

// List is a bound group instance holding its items in order.
type List struct {
	group   *Group
	address string
	cx      *buildCtx
	factory *Factory
	items   []*Item

	// used holds every id this list instance has handed out or loaded,
	// including ids of removed items.
	used map[string]bool
}

func newList(g *Group, address string, cx *buildCtx) *List {
	return &List{
		group:   g,
		address: address,
		cx:      cx,
		factory: &Factory{group: g, cx: cx},
		used:    make(map[string]bool),
	}
}

// Group returns the bound group.
func (l *List) Group() *Group { return l.group }

// Address returns the group's address.
func (l *List) Address() string { return l.address }

// Factory returns the list's item factory.
func (l *List) Factory() *Factory { return l.factory }

// Items returns the items in order.
func (l *List) Items() []*Item {
	out := make([]*Item, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of items.
func (l *List) Len() int { return len(l.items) }

// Item returns the item with the given stable id.
func (l *List) Item(id string) (*Item, bool) {
	i := l.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return l.items[i], true
}

func (l *List) indexOf(id string) int {
	return slices.IndexFunc(l.items, func(it *Item) bool { return it.ID == id })
}

// Template builds the stencil item used to stamp out new items client-side.
// Its nodes resolve under the template token and carry no values.
func (l *List) Template() (*Item, error) {
	f := &Factory{group: l.group, cx: &buildCtx{binder: l.cx.binder, root: ir.Object{}}}
	return f.Build(-1, field.NewTemplateScope(l.group), nil, nil)
}

// Add appends a new item with a freshly minted id.
func (l *List) Add(data ir.Object) (*Item, error) {
	if _, maxItems := l.group.Bounds(); maxItems > 0 && len(l.items) >= maxItems {
		return nil, formerr.CountViolation(l.address, "add", len(l.items)+1, maxItems)
	}
	scope := field.NewItemScope(l.group, l.mint())
	it, err := l.rebuildFactory().Build(len(l.items), scope, stripID(data), nil)
	if err != nil {
		return nil, err
	}
	l.items = append(l.items, it)
	return it, nil
}

// Remove removes the item with the given id and fires the removal hooks.
func (l *List) Remove(id string) error {
	i := l.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%s: no item %q", l.address, id)
	}
	if minItems, _ := l.group.Bounds(); len(l.items) <= minItems {
		return formerr.CountViolation(l.address, "remove", len(l.items)-1, minItems)
	}
	it := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	l.reindex()
	l.cx.binder.removed(l, it)
	return nil
}

// Move moves the item with the given id to position to. Only indexes change.
func (l *List) Move(id string, to int) error {
	i := l.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%s: no item %q", l.address, id)
	}
	if to < 0 || to >= len(l.items) {
		return fmt.Errorf("%s: position %d out of range [0, %d)", l.address, to, len(l.items))
	}
	it := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	l.items = slices.Insert(l.items, to, it)
	l.reindex()
	return nil
}

// Set edits one value of an item and rebinds the item's fields.
// The item keeps its id, index and nested items.
func (l *List) Set(id, key string, v ir.Value) (*Item, error) {
	i := l.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%s: no item %q", l.address, id)
	}
	if key == field.IDKey || key == field.CollectionsKey {
		return nil, formerr.Structural(l.address, "reserved key %q cannot be edited", key)
	}
	old := l.items[i]
	root := ir.Object{}
	data := old.Export(root)
	delete(data, field.IDKey)
	data[key] = v

	f := &Factory{group: l.group, cx: &buildCtx{binder: l.cx.binder, root: root}}
	it, err := f.Build(old.Index, old.scope, data, nil)
	if err != nil {
		return nil, err
	}
	inheritUsed(it.tree, old.tree)
	l.items[i] = it
	return it, nil
}

// inheritUsed carries the used ids of every list in prev over to the list
// at the same address in t, nested items included, so a rebuilt item never
// reissues an id its lists handed out before.
func inheritUsed(t, prev *Tree) {
	for _, nl := range t.lists {
		ol, ok := prev.byAddress[nl.address]
		if !ok {
			continue
		}
		for id := range ol.used {
			nl.used[id] = true
		}
		for _, it := range nl.items {
			if oit, ok := ol.Item(it.ID); ok {
				inheritUsed(it.tree, oit.tree)
			}
		}
	}
}

// rebuildFactory returns a load-mode factory for items created after binding.
func (l *List) rebuildFactory() *Factory {
	if !l.cx.apply {
		return l.factory
	}
	return &Factory{group: l.group, cx: &buildCtx{binder: l.cx.binder, root: l.cx.root}}
}

func (l *List) reindex() {
	for i, it := range l.items {
		it.Index = i
	}
}

// mint returns a fresh valid id never used by this list.
func (l *List) mint() string {
	for {
		id := l.cx.binder.gen.Generate()
		if !l.used[id] && field.ValidateToken(id) == nil {
			l.used[id] = true
			return id
		}
	}
}

// claim marks id as used if it is a valid, unused token.
func (l *List) claim(id string) bool {
	if id == "" || l.used[id] || field.ValidateToken(id) != nil {
		return false
	}
	l.used[id] = true
	return true
}

// load binds stored items. Each item takes its stored id, else its token,
// else its position, else a fresh id.
func (l *List) load(raws []Raw) error {
	for i, r := range raws {
		id := r.ID
		if !l.claim(id) {
			id = r.Token
			if !l.claim(id) {
				id = strconv.Itoa(i)
				if !l.claim(id) {
					id = l.mint()
				}
			}
		}
		it, err := l.factory.Build(len(l.items), field.NewItemScope(l.group, id), r.Data, nil)
		if err != nil {
			return err
		}
		l.items = append(l.items, it)
	}
	return nil
}

// reconcile binds submitted items against the stored list prev.
//
// A submitted item keeps the stored item it names by id (or, failing that,
// by token). Items without a known id get a fresh one. Items without
// meaningful data are pruned unless they name a stored item the binder's
// retain function keeps. Stored items that are not kept are removed and
// reported to the removal hooks once the final count is within bounds.
func (l *List) reconcile(prev *List, raws []Raw) (*Changes, error) {
	stored := make(map[string]*Item)
	if prev != nil {
		for id := range prev.used {
			l.used[id] = true
		}
		for _, it := range prev.items {
			stored[it.ID] = it
		}
	}

	changes := &Changes{Address: l.address}
	claimed := make(map[string]bool)
	take := func(id string) bool {
		if id == "" || claimed[id] || field.ValidateToken(id) != nil {
			return false
		}
		if _, ok := stored[id]; ok {
			claimed[id] = true
			return true
		}
		if l.claim(id) {
			claimed[id] = true
			return true
		}
		return false
	}

	for _, r := range raws {
		id := r.ID
		if !take(id) {
			id = ""
			if _, ok := stored[r.Token]; ok && take(r.Token) {
				id = r.Token
			}
		}
		if !Meaningful(r.Data) {
			keep, err := l.cx.binder.retained(l, stored[id])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", l.address, err)
			}
			if !keep {
				continue
			}
		}
		if id == "" {
			id = l.mint()
			claimed[id] = true
		}
		it, err := l.factory.Build(len(l.items), field.NewItemScope(l.group, id), r.Data, stored[id])
		if err != nil {
			return nil, err
		}
		l.items = append(l.items, it)
		if _, ok := stored[id]; ok {
			changes.Kept = append(changes.Kept, id)
		} else {
			changes.Added = append(changes.Added, id)
		}
	}

	if prev != nil {
		for _, it := range prev.items {
			if l.indexOf(it.ID) < 0 {
				changes.Removed = append(changes.Removed, it)
			}
		}
	}

	minItems, maxItems := l.group.Bounds()
	if maxItems > 0 && len(l.items) > maxItems {
		return nil, formerr.CountViolation(l.address, "add", len(l.items), maxItems)
	}
	if len(l.items) < minItems {
		return nil, formerr.CountViolation(l.address, "remove", len(l.items), minItems)
	}

	for _, it := range changes.Removed {
		l.cx.binder.removed(l, it)
	}
	return changes, nil
}

// export renders the items as a stored array, ids included.
func (l *List) export(root ir.Object) ir.Array {
	out := make(ir.Array, len(l.items))
	for i, it := range l.items {
		out[i] = it.Export(root)
	}
	return out
}

// Export renders the items as stored data.
func (l *List) Export() ir.Array {
	return l.export(ir.Object{})
}

func stripID(data ir.Object) ir.Object {
	if data == nil {
		return ir.Object{}
	}
	out := data.Clone()
	delete(out, field.IDKey)
	delete(out, field.CollectionsKey)
	return out
}
