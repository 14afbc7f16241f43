// Package field implements form field nodes and their addresses.
//
// A form schema is a tree of Nodes. Every node has a key; nodes bound to a
// Container take their address from the container's child prefix, so the
// address of a field is a pure function of its container chain at bind time:
//
//	address(node) == childPrefix(container(node)) + "." + key(node)
//
// An explicit address (state path) always wins and is returned verbatim.
//
// Three kinds of container exist:
//   - a keyed Field holding children (a fieldset); its prefix is its own address
//   - a keyless Field (layout); it contributes no segment of its own
//   - an ItemScope, the per-item container of a repeating group; its prefix is
//     the group's address followed by the item token
//
// Binding never mutates a declaration. Bind and MarkTemplate return fresh
// copies so one schema declaration can be stamped out into any number of
// items and requests.
//
// Template nodes are UI-only stencils used to stamp out new items on the
// client. Their addresses carry TemplateToken in place of every item token,
// which no real item token may equal.
package field
