package engine

import (
	"context"
	"fmt"

	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/ir"
	"github.com/roach88/formtree/internal/repeater"
)

// BoundField is the rendering view of one bound leaf.
type BoundField struct {
	Key         string          `json:"key"`
	Address     string          `json:"address"`
	RuleKey     string          `json:"rule_key"`
	Value       ir.Value        `json:"value,omitempty"`
	Template    bool            `json:"template,omitempty"`
	Attachment  bool            `json:"attachment,omitempty"`
	Collection  string          `json:"collection,omitempty"`
	Attachments []ir.Attachment `json:"attachments,omitempty"`
}

// BoundItem is the rendering view of one group item.
type BoundItem struct {
	ID      string       `json:"id"`
	Index   int          `json:"index"`
	Address string       `json:"address"`
	Fields  []BoundField `json:"fields"`
	Groups  []BoundGroup `json:"groups,omitempty"`
}

// BoundGroup is the rendering view of one repeating group instance.
type BoundGroup struct {
	Key      string      `json:"key"`
	Address  string      `json:"address"`
	MinItems int         `json:"min_items,omitempty"`
	MaxItems int         `json:"max_items,omitempty"`
	Items    []BoundItem `json:"items"`
	Template BoundItem   `json:"template"`
}

// BoundForm is a form bound to a record, as exposed to the rendering layer.
type BoundForm struct {
	Form   string         `json:"form"`
	Record ir.RecordRef   `json:"record"`
	Fields []BoundField   `json:"fields"`
	Groups []BoundGroup   `json:"groups,omitempty"`
	Rules  []string       `json:"rules"`
	tree   *repeater.Tree
	index  map[string]BoundField
}

// Field returns the bound field at address, including template fields.
func (b *BoundForm) Field(address string) (BoundField, bool) {
	f, ok := b.index[address]
	return f, ok
}

// Tree returns the underlying bound tree.
func (b *BoundForm) Tree() *repeater.Tree { return b.tree }

// Bind loads the record's stored data (nothing for a new record) and binds
// the form to it.
func (e *Engine) Bind(ctx context.Context, form *Form, ref ir.RecordRef) (*BoundForm, error) {
	stored, err := e.load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", form.Name, err)
	}
	tree, err := repeater.NewBinder(e.gen).Load(form.Nodes, stored)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", form.Name, err)
	}
	rules, err := form.RuleKeys()
	if err != nil {
		return nil, err
	}

	v := &viewer{engine: e, record: ref, index: make(map[string]BoundField)}
	fields, groups, err := v.level(ctx, tree)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", form.Name, err)
	}

	e.logger.Debug("form bound",
		"form", form.Name,
		"record", ref.String(),
		"fields", len(v.index))

	return &BoundForm{
		Form:   form.Name,
		Record: ref,
		Fields: fields,
		Groups: groups,
		Rules:  rules,
		tree:   tree,
		index:  v.index,
	}, nil
}

// viewer renders bound trees into views.
type viewer struct {
	engine *Engine
	record ir.RecordRef
	index  map[string]BoundField
}

func (v *viewer) level(ctx context.Context, t *repeater.Tree) ([]BoundField, []BoundGroup, error) {
	fields := []BoundField{}
	var groups []BoundGroup
	err := v.walk(ctx, t, t.Nodes(), &fields, &groups)
	return fields, groups, err
}

func (v *viewer) walk(ctx context.Context, t *repeater.Tree, nodes []field.Node, fields *[]BoundField, groups *[]BoundGroup) error {
	for _, n := range nodes {
		switch x := n.(type) {
		case *repeater.Group:
			l, ok := t.ListFor(x)
			if !ok {
				continue
			}
			g, err := v.group(ctx, l)
			if err != nil {
				return err
			}
			*groups = append(*groups, g)
		case *field.Field:
			if children := x.Children(); len(children) > 0 {
				if err := v.walk(ctx, t, children, fields, groups); err != nil {
					return err
				}
				continue
			}
			if x.IsLayout() {
				continue
			}
			bf, err := v.field(ctx, x)
			if err != nil {
				return err
			}
			*fields = append(*fields, bf)
		}
	}
	return nil
}

func (v *viewer) field(ctx context.Context, f *field.Field) (BoundField, error) {
	addr, err := field.Address(f)
	if err != nil {
		return BoundField{}, err
	}
	rule, err := field.RuleKey(f)
	if err != nil {
		return BoundField{}, err
	}
	bf := BoundField{
		Key:        f.Key(),
		Address:    addr,
		RuleKey:    rule,
		Template:   field.IsTemplate(f),
		Attachment: f.IsAttachment(),
	}
	if val, ok := f.Value(); ok && !f.IsAttachment() {
		bf.Value = val
	}

	if f.IsAttachment() && !bf.Template {
		name, err := v.engine.resolver.ResolveName(f)
		if err != nil {
			return BoundField{}, err
		}
		bf.Collection = name
		if v.record.Identified() {
			list, err := v.engine.attachments.List(ctx, v.record, name)
			if err != nil {
				return BoundField{}, fmt.Errorf("%s: %w", addr, err)
			}
			bf.Attachments = list
		}
	}
	v.index[addr] = bf
	return bf, nil
}

func (v *viewer) group(ctx context.Context, l *repeater.List) (BoundGroup, error) {
	minItems, maxItems := l.Group().Bounds()
	g := BoundGroup{
		Key:      l.Group().Key(),
		Address:  l.Address(),
		MinItems: minItems,
		MaxItems: maxItems,
		Items:    []BoundItem{},
	}
	for _, it := range l.Items() {
		bi, err := v.item(ctx, it)
		if err != nil {
			return BoundGroup{}, err
		}
		g.Items = append(g.Items, bi)
	}

	tmpl, err := l.Template()
	if err != nil {
		return BoundGroup{}, err
	}
	if g.Template, err = v.item(ctx, tmpl); err != nil {
		return BoundGroup{}, err
	}
	return g, nil
}

func (v *viewer) item(ctx context.Context, it *repeater.Item) (BoundItem, error) {
	prefix, err := it.Scope().ChildPrefix(field.ModeConcrete)
	if err != nil {
		return BoundItem{}, err
	}
	fields, groups, err := v.level(ctx, it.Tree())
	if err != nil {
		return BoundItem{}, err
	}
	return BoundItem{
		ID:      it.ID,
		Index:   it.Index,
		Address: prefix,
		Fields:  fields,
		Groups:  groups,
	}, nil
}
