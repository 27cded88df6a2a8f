/*
Package arbor is an editing engine for branching dialogue.

A dialogue is a tree of spoken lines and player choices. Besides owning its children, any node
can hold links: read-only aliases of another node that let several branches converge on shared
content without duplicating it. The tree package enforces the structure (links never close a
cycle, removing a node takes every alias with it), the schema package persists it as a flat,
ID-addressed document, and this package ties both to a store in an editing Session.

# Concept

An Editor is configured once with a store (memory, file or redis), an optional lock so only one
session edits a tree at a time, and the host capabilities used to query the tree: a condition
evaluator and an action invoker. Open returns a Session over one named tree. Stores can be
wrapped with the persistence/middleware package for encryption at rest and timing metrics.

# Usage

	ed := arbor.New(
		arbor.WithStore(file.New("./trees")),
		arbor.WithInvoker(registry),
	)

	s, err := ed.Open(ctx, "tavern")
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close(ctx)

	line, _ := s.Tree.AddNode(s.Tree.Root(), domain.NodeTypeLine)
	_ = s.Copy(line)
	_, _ = s.PasteLink(s.Tree.Root())

	branches, _ := s.Options(ctx, s.Tree.Root(), domain.GameState{"gold": 10})

	if err := s.Save(ctx); err != nil {
		log.Fatal(err)
	}

Opening a tree that does not exist, or whose stored document fails validation, yields a Session
over the default tree with Recovered set, so a broken file never locks an author out.
*/
package arbor
