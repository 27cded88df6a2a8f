/*
Package tree implements the editable, in-memory dialogue tree.

Every element is either a Node (owning content and an ordered list of children) or a Link
(a non-owning alias that makes an existing Node reachable from a second parent). Elements
live in a slot-map arena and are addressed by generation-checked Handles, so references
between elements (parent, link target, the target -> links back-index) are plain values and
never dangle: a Handle to a removed element is reported as stale.

The tree has no internal locking. Callers serialize edits, typically one editor session
per tree.

Structural invariants enforced by every mutation:

  - The root is a Node with no parent and cannot be moved or removed.
  - No element is reachable from itself through child or link-target edges.
  - Removing a Node removes its whole subtree and every Link aliasing any removed Node.
*/
package tree
