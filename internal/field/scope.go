package field

import (
	"github.com/roach88/formtree/internal/formerr"
)

// ItemScope is the container of one item of a repeating group. Its child
// prefix is the group's address followed by the item token.
//
// A template scope always renders TemplateToken, whatever mode it is
// resolved in (except ModeWildcard).
//
// The scope is keyed by the item's stable token only. An item's position can
// change after binding without touching any address built from its scope.
type ItemScope struct {
	group    Repeating
	token    string
	template bool
}

// NewItemScope creates the scope of the item with the given stable token.
func NewItemScope(group Repeating, token string) *ItemScope {
	return &ItemScope{group: group, token: token}
}

// NewTemplateScope creates the scope used to stamp out template items.
func NewTemplateScope(group Repeating) *ItemScope {
	return &ItemScope{group: group, token: TemplateToken, template: true}
}

// Group returns the repeating group the scope belongs to.
func (s *ItemScope) Group() Repeating { return s.group }

// Token returns the item token (the stable id, or TemplateToken).
func (s *ItemScope) Token() string { return s.token }

// IsTemplate reports whether this is a template scope.
func (s *ItemScope) IsTemplate() bool { return s.template }

// ChildPrefix implements Container.
func (s *ItemScope) ChildPrefix(mode Mode) (string, error) {
	if s == nil || s.group == nil {
		return "", formerr.AddressResolution("", "item scope has no group")
	}
	groupAddress, err := resolve(s.group, mode)
	if err != nil {
		return "", err
	}

	token := s.token
	switch {
	case mode == ModeWildcard:
		token = Wildcard
	case mode == ModeTemplate || s.template:
		token = TemplateToken
	}
	if token == "" {
		return "", formerr.AddressResolution(groupAddress, "item scope has no token")
	}
	return Join(groupAddress, token), nil
}

// Container returns the container the scope's group is bound to.
func (s *ItemScope) Container() Container {
	if s == nil || s.group == nil {
		return nil
	}
	return s.group.Container()
}

// enclosed is satisfied by every container that sits inside another one.
type enclosed interface {
	Container() Container
}

// NearestItem returns the innermost item scope enclosing n.
func NearestItem(n Node) (*ItemScope, bool) {
	scopes := Scopes(n)
	if len(scopes) == 0 {
		return nil, false
	}
	return scopes[len(scopes)-1], true
}

// Scopes returns every item scope enclosing n, outermost first.
func Scopes(n Node) []*ItemScope {
	if n == nil {
		return nil
	}
	var inner []*ItemScope
	c := n.Container()
	for depth := 0; c != nil; depth++ {
		if depth > maxDepth {
			break
		}
		if s, ok := c.(*ItemScope); ok {
			if s == nil {
				break
			}
			inner = append(inner, s)
		}
		e, ok := c.(enclosed)
		if !ok {
			break
		}
		c = e.Container()
	}
	for i, j := 0, len(inner)-1; i < j; i, j = i+1, j-1 {
		inner[i], inner[j] = inner[j], inner[i]
	}
	return inner
}

// maxDepth bounds container walks. Chains are built top-down and cannot
// cycle; the bound only guards against hand-built Container implementations.
const maxDepth = 256
