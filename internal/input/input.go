// Package input turns submitted form payloads into nested record data.
//
// Three payload shapes are accepted and normalised to the same ir.Object:
//
//	gallery[2][photo]=a.png     bracket notation (form posts)
//	gallery.2.photo=a.png       dotted notation
//	{"gallery": {"2": {...}}}   nested JSON
//
// A trailing "[]" appends to a list, and a key given more than once
// collects its values into a list.
package input

import (
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"

	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/ir"
	"github.com/roach88/formtree/internal/repeater"
)

// ParseValues parses url-encoded form values. Keys are applied in sorted
// order so the result does not depend on map iteration.
func ParseValues(values url.Values) (ir.Object, error) {
	root := ir.Object{}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		for _, v := range values[key] {
			if err := set(root, key, ir.String(v)); err != nil {
				return nil, err
			}
		}
	}
	return root, nil
}

// ParseFlat parses a flat map of encoded keys to plain Go values.
func ParseFlat(flat map[string]any) (ir.Object, error) {
	root := ir.Object{}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		v, err := ir.FromAny(flat[key])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if err := set(root, key, v); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// ParseJSON decodes a nested JSON object. Numbers keep their textual form.
func ParseJSON(r io.Reader) (ir.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	v, err := ir.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("body must be a JSON object, got %T", v)
	}
	return obj, nil
}

// Items normalises a group's submitted value into ordered raw items.
func Items(v ir.Value) ([]repeater.Raw, error) {
	return repeater.Normalize(v)
}

// SplitKey splits an encoded key into address tokens. appendLast reports a
// trailing "[]".
func SplitKey(key string) (tokens []string, appendLast bool, err error) {
	if key == "" {
		return nil, false, fmt.Errorf("empty key")
	}
	head, rest, hasBracket := strings.Cut(key, "[")
	tokens = append(tokens, splitDotted(head)...)
	if !hasBracket {
		return validate(key, tokens, false)
	}

	rest = "[" + rest
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			next := strings.IndexAny(rest, ".[")
			if next < 0 {
				next = len(rest)
			}
			tokens = append(tokens, rest[:next])
			rest = rest[next:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, false, fmt.Errorf("%s: unclosed '['", key)
			}
			tok := rest[1:end]
			rest = rest[end+1:]
			if tok == "" {
				if rest != "" {
					return nil, false, fmt.Errorf("%s: '[]' must come last", key)
				}
				return validate(key, tokens, true)
			}
			tokens = append(tokens, tok)
		default:
			return nil, false, fmt.Errorf("%s: unexpected %q after ']'", key, rest[0])
		}
	}
	return validate(key, tokens, false)
}

func splitDotted(s string) []string {
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, field.Separator)
}

func validate(key string, tokens []string, appendLast bool) ([]string, bool, error) {
	for _, t := range tokens {
		if strings.TrimSpace(t) == "" {
			return nil, false, fmt.Errorf("%s: empty path segment", key)
		}
	}
	return tokens, appendLast, nil
}

// set writes v at the path encoded by key.
func set(root ir.Object, key string, v ir.Value) error {
	tokens, appendLast, err := SplitKey(key)
	if err != nil {
		return err
	}

	obj := root
	for i, tok := range tokens[:len(tokens)-1] {
		switch next := obj[tok].(type) {
		case nil:
			child := ir.Object{}
			obj[tok] = child
			obj = child
		case ir.Object:
			obj = next
		default:
			return fmt.Errorf("%s: %s already holds a value", key, strings.Join(tokens[:i+1], field.Separator))
		}
	}

	last := tokens[len(tokens)-1]
	existing, present := obj[last]
	switch {
	case !present && !appendLast:
		obj[last] = v
	case !present:
		obj[last] = ir.Array{v}
	default:
		switch cur := existing.(type) {
		case ir.Array:
			obj[last] = append(cur, v)
		case ir.Object:
			return fmt.Errorf("%s: %s already holds nested values", key, strings.Join(tokens, field.Separator))
		default:
			obj[last] = ir.Array{cur, v}
		}
	}
	return nil
}
