package input

import (
	"fmt"
	"strings"

	"github.com/roach88/formtree/internal/collection"
	"github.com/roach88/formtree/internal/ir"
	"github.com/roach88/formtree/internal/repeater"
)

// Side-channel keys submitted under an attachment field's address.
const (
	KeyUploaded   = "uploaded"
	KeyDeleted    = "deleted"
	KeyOrder      = "order"
	KeyProperties = "properties"
)

// Attachment decodes the side-channel value of an attachment field.
//
// The value is an object with any of the keys uploaded, deleted, order
// (id lists, as arrays or comma-separated strings) and properties (an object
// of per-id property objects, nested or JSON-encoded). A bare id list is
// shorthand for uploaded.
func Attachment(v ir.Value) (collection.Mutation, error) {
	var m collection.Mutation
	switch val := v.(type) {
	case nil, ir.Null:
		return m, nil
	case ir.String, ir.Array:
		ids, err := repeater.TokenList(val)
		if err != nil {
			return m, fmt.Errorf("%s: %w", KeyUploaded, err)
		}
		m.Uploaded = ids
		return m, nil
	case ir.Object:
		for _, k := range val.SortedKeys() {
			var err error
			switch k {
			case KeyUploaded:
				m.Uploaded, err = repeater.TokenList(val[k])
			case KeyDeleted:
				m.Deleted, err = repeater.TokenList(val[k])
			case KeyOrder:
				m.Order, err = repeater.TokenList(val[k])
			case KeyProperties:
				m.Properties, err = properties(val[k])
			default:
				err = fmt.Errorf("unknown key")
			}
			if err != nil {
				return collection.Mutation{}, fmt.Errorf("%s: %w", k, err)
			}
		}
		return m, nil
	default:
		return m, fmt.Errorf("attachment value must be an object or id list, got %T", v)
	}
}

func properties(v ir.Value) (map[string]ir.Object, error) {
	if s, ok := v.(ir.String); ok {
		if strings.TrimSpace(string(s)) == "" {
			return nil, nil
		}
		decoded, err := ir.Decode([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		v = decoded
	}

	switch val := v.(type) {
	case nil, ir.Null:
		return nil, nil
	case ir.Object:
		if len(val) == 0 {
			return nil, nil
		}
		out := make(map[string]ir.Object, len(val))
		for id, props := range val {
			obj, ok := props.(ir.Object)
			if !ok {
				return nil, fmt.Errorf("%s: expected object, got %T", id, props)
			}
			out[strings.TrimSpace(id)] = obj.Clone()
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected object, got %T", v)
	}
}
