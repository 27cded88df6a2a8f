package arbor

import (
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/tree"
)

// DefaultTree returns the sample dialogue a session falls back to. It has every element
// kind: lines, choices with conditions and actions, and a link that lets two branches share
// the same farewell.
func DefaultTree() (*tree.Tree, error) {
	b := dsl.New("A traveler walks into the inn.").Named("default")

	greet := b.Root().Line("Evening. What can I get you?").Speaker("innkeeper")

	greet.Choice("A room for the night.").
		When("gold >= 5").
		Do("pay", map[string]any{"amount": 5}).
		Line("Up the stairs, second door on the left.").Speaker("innkeeper")

	rumor := greet.Choice("Heard any rumors?").
		Line("Folk say the old mill is haunted.").Speaker("innkeeper")
	rumor.Choice("Tell me more.").
		When("NOT heard_rumor").
		Do("set_flag", map[string]any{"flag": "heard_rumor"}).
		Line("Nobody who goes there at night comes back.").Speaker("innkeeper")
	rumor.Choice("Goodbye.").LinkTo("farewell")

	greet.Choice("Goodbye.").
		Line("Safe travels.").Speaker("innkeeper").Label("farewell")

	return b.Tree()
}
