/*
Package domain contains the core content model of an arbor dialogue tree.

It defines the dialogue unit carried by every node (NodeData), the opaque capabilities a
host plugs into the tree (Condition, Action) and the error taxonomy shared by the tree,
the persisted schema and the adapters. The package is kept pure: no I/O, no persistence,
no logging.

# Key Entities

  - NodeData: the content of a single Line or Choice (speaker, text, condition, action, notes).
  - Condition: an expression gating whether a Choice is presented. Empty means always.
  - Action: a named side effect fired when a node is visited during playback.
  - GameState: the host-provided variables conditions are evaluated against.
*/
package domain
