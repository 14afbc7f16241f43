package repeater

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/ir"
)

// OrderKey is the reserved group-level key carrying an explicit item order
// in keyed submissions, e.g. gallery[_order]=b,a.
const OrderKey = "_order"

// Raw is one item's data before binding.
type Raw struct {
	// Token is the key the item arrived under in a keyed submission, or ""
	// for list submissions.
	Token string

	// ID is the explicit stable id carried in the item's own data, if any.
	ID string

	// Data holds field values by unprefixed key, without the id.
	Data ir.Object
}

// Normalize turns a group's stored or submitted value into ordered raw items.
//
// Accepted shapes:
//   - nil or null: no items
//   - an array of objects, in array order
//   - an object keyed by item token; order comes from the OrderKey entry when
//     present, otherwise numeric tokens ascending, then other tokens
//     lexically
//
// Entries keyed by the template token are UI stencils and are dropped.
func Normalize(v ir.Value) ([]Raw, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return nil, nil
	case ir.String:
		if strings.TrimSpace(string(val)) == "" {
			return nil, nil
		}
		return nil, fmt.Errorf("repeating group value must be a list or object, got string")
	case ir.Array:
		raws := make([]Raw, 0, len(val))
		for i, elem := range val {
			obj, ok := elem.(ir.Object)
			if !ok {
				if ir.IsEmpty(elem) {
					continue
				}
				return nil, fmt.Errorf("item %d: expected object, got %T", i, elem)
			}
			raws = append(raws, newRaw("", obj))
		}
		return raws, nil
	case ir.Object:
		tokens, err := orderTokens(val)
		if err != nil {
			return nil, err
		}
		raws := make([]Raw, 0, len(tokens))
		for _, token := range tokens {
			obj, ok := val[token].(ir.Object)
			if !ok {
				if ir.IsEmpty(val[token]) {
					continue
				}
				return nil, fmt.Errorf("item %q: expected object, got %T", token, val[token])
			}
			raws = append(raws, newRaw(token, obj))
		}
		return raws, nil
	default:
		return nil, fmt.Errorf("repeating group value must be a list or object, got %T", v)
	}
}

func newRaw(token string, obj ir.Object) Raw {
	data := obj.Clone()
	raw := Raw{Token: token}
	if id, ok := data[field.IDKey]; ok {
		if s, ok := ir.AsString(id); ok {
			raw.ID = strings.TrimSpace(s)
		}
		delete(data, field.IDKey)
	}
	if data == nil {
		data = ir.Object{}
	}
	raw.Data = data
	return raw
}

// orderTokens returns the item tokens of a keyed group value in order.
func orderTokens(obj ir.Object) ([]string, error) {
	var explicit []string
	if v, ok := obj[OrderKey]; ok {
		list, err := tokenList(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", OrderKey, err)
		}
		explicit = list
	}

	seen := make(map[string]bool, len(obj))
	var ordered []string
	for _, token := range explicit {
		if _, ok := obj[token]; !ok || seen[token] || isReservedGroupKey(token) {
			continue
		}
		seen[token] = true
		ordered = append(ordered, token)
	}

	var rest []string
	for token := range obj {
		if isReservedGroupKey(token) || seen[token] {
			continue
		}
		rest = append(rest, token)
	}
	slices.SortFunc(rest, compareTokens)
	return append(ordered, rest...), nil
}

func isReservedGroupKey(token string) bool {
	return token == OrderKey || token == field.TemplateToken
}

// compareTokens orders numeric tokens numerically before any other token,
// and other tokens lexically.
func compareTokens(a, b string) int {
	an, aErr := strconv.ParseUint(a, 10, 64)
	bn, bErr := strconv.ParseUint(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return strings.Compare(a, b)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// tokenList decodes an id list given as an array or a comma-separated string.
func tokenList(v ir.Value) ([]string, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return nil, nil
	case ir.String, ir.Number:
		s, _ := ir.AsString(val)
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case ir.Array:
		var out []string
		for i, elem := range val {
			s, ok := ir.AsString(elem)
			if !ok {
				return nil, fmt.Errorf("entry %d: expected string, got %T", i, elem)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list or comma-separated string, got %T", v)
	}
}

// TokenList is the exported form of the id list decoder, shared with the
// attachment side-channel parser.
func TokenList(v ir.Value) ([]string, error) {
	return tokenList(v)
}

// Meaningful reports whether raw item data carries any non-empty value.
// The reserved id and collection keys are not values.
func Meaningful(data ir.Object) bool {
	for k, v := range data {
		if k == field.IDKey || k == field.CollectionsKey {
			continue
		}
		if !ir.IsEmpty(v) {
			return true
		}
	}
	return false
}

// Prune drops raw items that carry no meaningful data. Prune is idempotent.
func Prune(raws []Raw) []Raw {
	out := make([]Raw, 0, len(raws))
	for _, r := range raws {
		if Meaningful(r.Data) {
			out = append(out, r)
		}
	}
	return out
}
