/*
Package schema defines the persisted form of a dialogue tree and converts between it
and the editable tree.

A Document is a flat map from integer ID to Record. Records carry the node content, the
parent ID, the ordered child IDs and, for links, the ID of the aliased node. IDs are
assigned in depth-first child order on every export and are not stable across exports.

Import validates the whole document before building anything; on failure it returns an
*AggregateError of *ValidationError values (matching domain.ErrValidation) and no tree.
Nodes whose content is missing are pruned, together with their subtree and every link
aliasing them.
*/
package schema
