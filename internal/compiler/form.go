package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/formtree/internal/engine"
	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/repeater"
)

// CompileForm parses a CUE form declaration into an engine.Form.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the form struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`form: article: { owner: "article", fields: [...] }`)
//	form, err := CompileForm(v.LookupPath(cue.ParsePath("form.article")))
//
// Each entry of fields is one of:
//
//	{key: "title", label?: string, state_path?: string}
//	{key: "cover", attachment: true, collection?: string}
//	{key: "seo", children: [...]}                        // fieldset
//	{layout: true, children: [...]}                      // layout
//	{key: "gallery", repeat: {min_items?: int, max_items?: int, fields: [...]}}
func CompileForm(v cue.Value) (*engine.Form, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	form := &engine.Form{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		form.Name = labels[len(labels)-1].Unquoted()
	}

	ownerVal := v.LookupPath(cue.ParsePath("owner"))
	if !ownerVal.Exists() {
		return nil, &CompileError{Field: "owner", Message: "owner is required", Pos: v.Pos()}
	}
	owner, err := ownerVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	form.Owner = owner

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Field: "fields", Message: "fields are required", Pos: v.Pos()}
	}
	form.Nodes, err = parseNodes(fieldsVal, "fields")
	if err != nil {
		return nil, err
	}

	if err := form.Validate(); err != nil {
		return nil, &CompileError{Field: "fields", Message: err.Error(), Pos: fieldsVal.Pos(), Err: err}
	}
	return form, nil
}

// parseNodes parses a list of field entries.
func parseNodes(v cue.Value, path string) ([]field.Node, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var nodes []field.Node
	for i := 0; iter.Next(); i++ {
		n, err := parseNode(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 0 {
		return nil, &CompileError{Field: path, Message: "at least one field is required", Pos: v.Pos()}
	}
	return nodes, nil
}

// parseNode parses a single field entry.
func parseNode(v cue.Value, path string) (field.Node, error) {
	layout, err := optionalBool(v, "layout")
	if err != nil {
		return nil, err
	}
	if layout {
		childrenVal := v.LookupPath(cue.ParsePath("children"))
		if !childrenVal.Exists() {
			return nil, &CompileError{Field: path + ".children", Message: "a layout needs children", Pos: v.Pos()}
		}
		children, err := parseNodes(childrenVal, path+".children")
		if err != nil {
			return nil, err
		}
		l, err := field.NewLayout(children...)
		if err != nil {
			return nil, declError(path, v, err)
		}
		return l, nil
	}

	key, err := optionalString(v, "key")
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, &CompileError{Field: path + ".key", Message: "key is required", Pos: v.Pos()}
	}
	label, err := optionalString(v, "label")
	if err != nil {
		return nil, err
	}
	statePath, err := optionalString(v, "state_path")
	if err != nil {
		return nil, err
	}

	if repeatVal := v.LookupPath(cue.ParsePath("repeat")); repeatVal.Exists() {
		return parseGroup(repeatVal, path, key, label, statePath)
	}

	var opts []field.Option
	if label != "" {
		opts = append(opts, field.WithLabel(label))
	}
	if statePath != "" {
		opts = append(opts, field.WithStatePath(statePath))
	}

	attachment, err := optionalBool(v, "attachment")
	if err != nil {
		return nil, err
	}
	if attachment {
		opts = append(opts, field.Attachment())
	}
	collection, err := optionalString(v, "collection")
	if err != nil {
		return nil, err
	}
	if collection != "" {
		if !attachment {
			return nil, &CompileError{
				Field:   path + ".collection",
				Message: "only attachment fields have a collection",
				Pos:     v.Pos(),
			}
		}
		opts = append(opts, field.WithCollection(collection))
	}

	if childrenVal := v.LookupPath(cue.ParsePath("children")); childrenVal.Exists() {
		children, err := parseNodes(childrenVal, path+".children")
		if err != nil {
			return nil, err
		}
		opts = append(opts, field.WithChildren(children...))
	}

	f, err := field.New(key, opts...)
	if err != nil {
		return nil, declError(path, v, err)
	}
	return f, nil
}

func parseGroup(v cue.Value, path, key, label, statePath string) (field.Node, error) {
	var opts []repeater.Option
	if label != "" {
		opts = append(opts, repeater.WithLabel(label))
	}
	if statePath != "" {
		opts = append(opts, repeater.WithStatePath(statePath))
	}

	minItems, err := optionalInt(v, "min_items")
	if err != nil {
		return nil, err
	}
	maxItems, err := optionalInt(v, "max_items")
	if err != nil {
		return nil, err
	}
	opts = append(opts, repeater.MinItems(minItems), repeater.MaxItems(maxItems))

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Field: path + ".repeat.fields", Message: "a repeating group needs fields", Pos: v.Pos()}
	}
	schema, err := parseNodes(fieldsVal, path+".repeat.fields")
	if err != nil {
		return nil, err
	}

	g, err := repeater.New(key, schema, opts...)
	if err != nil {
		return nil, declError(path, v, err)
	}
	return g, nil
}

// declError turns a declaration error into a CompileError at v.
func declError(path string, v cue.Value, err error) error {
	return &CompileError{Field: path, Message: err.Error(), Pos: v.Pos(), Err: err}
}

func optionalString(v cue.Value, name string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, name string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optionalInt(v cue.Value, name string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return 0, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}
