package dsl_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tavern() *dsl.Builder {
	b := dsl.New("The tavern is loud tonight.").Named("tavern")
	greet := b.Root().Line("Welcome, traveler.").Speaker("innkeeper").Label("greet")
	greet.Choice("I need a room.").
		When("gold >= 5").
		Do("rent_room", map[string]any{"price": 5}).
		Line("Upstairs, second door.").Label("upstairs")
	greet.Choice("Where was my room?").LinkTo("upstairs")
	return b
}

func TestBuilder_Build(t *testing.T) {
	doc, err := tavern().Build()
	require.NoError(t, err)

	assert.Equal(t, "tavern", doc.Name)
	require.Len(t, doc.Records, 6)

	root := doc.Records[0]
	assert.Nil(t, root.ParentID)
	assert.Equal(t, []int{1}, root.ChildIDs)

	greet := doc.Records[1]
	assert.Equal(t, "innkeeper", greet.Data.Speaker)
	assert.Equal(t, []int{2, 4}, greet.ChildIDs)

	room := doc.Records[2]
	assert.Equal(t, domain.NodeTypeChoice, room.Data.Type)
	assert.Equal(t, "gold >= 5", room.Data.Condition.Expression)
	assert.Equal(t, "rent_room", room.Data.Action.Name)

	link := doc.Records[5]
	assert.True(t, link.IsLink)
	require.NotNil(t, link.LinkTargetID)
	assert.Equal(t, 3, *link.LinkTargetID)
	assert.Nil(t, link.Data)
}

func TestBuilder_Tree(t *testing.T) {
	tr, err := tavern().Tree()
	require.NoError(t, err)
	assert.Equal(t, 6, tr.Len())

	greet, err := tr.Children(tr.Root())
	require.NoError(t, err)
	choices, err := tr.Children(greet[0])
	require.NoError(t, err)
	require.Len(t, choices, 2)

	upstairs, err := tr.Children(choices[0])
	require.NoError(t, err)
	again, err := tr.Children(choices[1])
	require.NoError(t, err)
	require.Len(t, again, 1)
	require.True(t, tr.IsLink(again[0]))

	orig, err := tr.Original(again[0])
	require.NoError(t, err)
	assert.Equal(t, upstairs[0], orig)
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("unknown label", func(t *testing.T) {
		b := dsl.New("root")
		b.Root().LinkTo("nowhere")
		_, err := b.Build()
		assert.ErrorContains(t, err, `unknown label "nowhere"`)
	})

	t.Run("duplicate label", func(t *testing.T) {
		b := dsl.New("root")
		b.Root().Line("a").Label("x")
		b.Root().Line("b").Label("x")
		_, err := b.Build()
		assert.ErrorContains(t, err, `duplicate label "x"`)
	})

	t.Run("link cycle rejected on import", func(t *testing.T) {
		b := dsl.New("root")
		a := b.Root().Line("a").Label("a")
		c := b.Root().Line("b").Label("b")
		a.LinkTo("b")
		c.LinkTo("a")
		_, err := b.Build()
		require.NoError(t, err, "the flat document is well formed")

		_, err = b.Tree()
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("link to own ancestor", func(t *testing.T) {
		b := dsl.New("root")
		b.Root().Label("top").Line("child").LinkTo("top")
		_, err := b.Tree()
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestBuilder_Up(t *testing.T) {
	b := dsl.New("root")
	b.Root().Line("a").Up().Line("b")

	tr := b.MustTree()
	kids, err := tr.Children(tr.Root())
	require.NoError(t, err)
	require.Len(t, kids, 2)

	var texts []string
	for _, h := range kids {
		d, err := tr.Data(h)
		require.NoError(t, err)
		texts = append(texts, d.Text)
	}
	assert.Equal(t, []string{"a", "b"}, texts)
}
