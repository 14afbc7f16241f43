package field

import "errors"

// SkipChildren can be returned by a WalkFunc to skip a node's children.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every node visited by Walk.
type WalkFunc func(n Node) error

// Walk visits nodes depth-first in declaration order, descending into the
// children of Parents. Repeating groups are visited but their schema is not
// descended; their children only exist once bound to an item.
func Walk(nodes []Node, fn WalkFunc) error {
	for _, n := range nodes {
		err := fn(n)
		if errors.Is(err, SkipChildren) {
			continue
		}
		if err != nil {
			return err
		}
		if p, ok := n.(Parent); ok {
			if err := Walk(p.Children(), fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Leaves returns the non-container, non-repeating nodes under nodes.
func Leaves(nodes []Node) []Node {
	var out []Node
	_ = Walk(nodes, func(n Node) error {
		if _, ok := n.(Repeating); ok {
			return SkipChildren
		}
		if p, ok := n.(Parent); ok && len(p.Children()) > 0 {
			return nil
		}
		if f, ok := n.(*Field); ok && f.IsLayout() {
			return nil
		}
		out = append(out, n)
		return nil
	})
	return out
}
