package field

import (
	"strings"

	"github.com/roach88/formtree/internal/formerr"
)

// Resolve returns the canonical address of n.
//
//   - an explicit address is returned verbatim
//   - a node without a container resolves to its key
//   - otherwise the container's child prefix and the key are joined
func Resolve(n Node) (string, error) {
	return resolve(n, ModeConcrete)
}

// TemplateSafeAddress is Resolve with every item token contributed by an
// enclosing repeating group replaced by TemplateToken.
func TemplateSafeAddress(n Node) (string, error) {
	return resolve(n, ModeTemplate)
}

// Address resolves n the way it should be rendered: template nodes get their
// template-safe address, everything else its concrete one.
func Address(n Node) (string, error) {
	if n != nil && n.IsTemplate() {
		return TemplateSafeAddress(n)
	}
	return Resolve(n)
}

// RuleKey returns the validation rule key for n: the address with every item
// token replaced by Wildcard, e.g. gallery.*.image.
func RuleKey(n Node) (string, error) {
	return resolve(n, ModeWildcard)
}

func resolve(n Node, mode Mode) (string, error) {
	if n == nil {
		return "", formerr.AddressResolution("", "nil node")
	}
	if p := n.ExplicitAddress(); p != "" {
		return p, nil
	}
	c := n.Container()
	if c == nil {
		return n.Key(), nil
	}
	prefix, err := c.ChildPrefix(mode)
	if err != nil {
		return "", err
	}
	return Join(prefix, n.Key()), nil
}

// Join joins address tokens, skipping empty ones.
func Join(tokens ...string) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, Separator)
}

// Split splits an address into its tokens.
func Split(address string) []string {
	if address == "" {
		return nil
	}
	return strings.Split(address, Separator)
}

// HasPrefix reports whether address equals prefix or lies beneath it.
func HasPrefix(address, prefix string) bool {
	if prefix == "" {
		return true
	}
	return address == prefix || strings.HasPrefix(address, prefix+Separator)
}
