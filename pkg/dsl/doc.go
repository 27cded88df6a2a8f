/*
Package dsl provides a fluent Go builder for dialogue trees.

It is the programmatic alternative to hand-written YAML or JSON documents, and is handy for
tests, seed content and generated dialogue.

Example usage:

	b := dsl.New("The tavern is loud tonight.")

	greet := b.Root().Line("Welcome, traveler.").Speaker("innkeeper").Label("greet")
	greet.Choice("I need a room.").
		When("gold >= 5").
		Do("rent_room", map[string]any{"price": 5}).
		Line("Upstairs, second door.").Label("upstairs")
	greet.Choice("Where was my room?").LinkTo("upstairs")

	t, err := b.Tree()
*/
package dsl
