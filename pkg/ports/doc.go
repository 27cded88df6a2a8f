/*
Package ports defines the driven ports (interfaces) of the arbor dialogue engine.

These interfaces decouple the tree core from storage backends and from the host game,
which supplies condition evaluation and action invocation.

# Key Interfaces

  - TreeStore: persists whole dialogue documents (memory, file, redis).
  - Locker: keeps a tree to a single active editor session.
  - ConditionEvaluator: decides whether a node is eligible given the game state.
  - ActionInvoker: fires the side effect attached to a visited node.
*/
package ports
