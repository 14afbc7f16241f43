package field

// MarkAsTemplate returns a template-marked copy of n. The original
// declaration is left untouched so it stays reusable.
func MarkAsTemplate(n Node) Node {
	if n == nil {
		return nil
	}
	return n.MarkTemplate()
}

// IsTemplate reports whether n is a template stencil, either marked itself
// or bound inside a template item scope.
func IsTemplate(n Node) bool {
	if n == nil {
		return false
	}
	if n.IsTemplate() {
		return true
	}
	for _, s := range Scopes(n) {
		if s.IsTemplate() {
			return true
		}
	}
	return false
}
