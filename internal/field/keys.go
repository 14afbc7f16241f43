package field

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/formtree/internal/formerr"
)

const (
	// Separator joins address tokens.
	Separator = "."

	// TemplateToken stands in for the item token of template stencils.
	TemplateToken = "__TEMPLATE__"

	// Wildcard stands in for the item token in validation rule keys.
	Wildcard = "*"

	// IDKey is the reserved item data key carrying an item's stable id.
	IDKey = "_id"

	// CollectionsKey is the reserved item data key holding the collection
	// names pinned on the item's attachment fields, by item-relative path.
	CollectionsKey = "_collections"

	// reservedPrefix marks tokens and keys no user data may use.
	reservedPrefix = "__"
)

// NormalizeKey returns the NFC form of a key.
func NormalizeKey(key string) string {
	return norm.NFC.String(key)
}

// ValidateKey checks a declared node key.
// Keys may not contain address syntax and may not shadow reserved names.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return formerr.Structural(key, "key must not be empty")
	case key == IDKey:
		return formerr.Structural(key, "key %q is reserved for item ids", IDKey)
	case key == CollectionsKey:
		return formerr.Structural(key, "key %q is reserved for collection names", CollectionsKey)
	case strings.HasPrefix(key, reservedPrefix):
		return formerr.Structural(key, "keys starting with %q are reserved", reservedPrefix)
	case strings.ContainsAny(key, ".[]*"):
		return formerr.Structural(key, "key must not contain '.', '[', ']' or '*'")
	}
	return nil
}

// ValidateToken checks an item token (a stable id).
// A valid token can never collide with TemplateToken or Wildcard.
func ValidateToken(token string) error {
	switch {
	case token == "":
		return formerr.Structural(token, "item token must not be empty")
	case token == Wildcard:
		return formerr.Structural(token, "item token %q is reserved", Wildcard)
	case strings.HasPrefix(token, reservedPrefix):
		return formerr.Structural(token, "item tokens starting with %q are reserved", reservedPrefix)
	case strings.ContainsAny(token, ".[]"):
		return formerr.Structural(token, "item token must not contain '.', '[' or ']'")
	}
	return nil
}

// IsReservedToken reports whether token is one of the placeholder tokens.
func IsReservedToken(token string) bool {
	return token == TemplateToken || token == Wildcard || strings.HasPrefix(token, reservedPrefix)
}
