package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutline_Render(t *testing.T) {
	b := dsl.New("The tavern is loud.")
	greet := b.Root().Line("").Speaker("innkeeper").Label("greet")
	greet.Choice("A room").When("gold >= 5").Do("rent_room", nil)
	greet.Choice("Again").LinkTo("greet")
	doc, err := b.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	o := &tui.Outline{Profile: termenv.Ascii, Details: true}
	require.NoError(t, o.Render(&buf, doc))

	want := `#0 The tavern is loud.
└─ #1 innkeeper: <empty>
   ├─ #2 > A room  [if gold >= 5]  [do rent_room]
   └─ #3 > Again
      └─ #4 ↪ #1 <empty>
`
	assert.Equal(t, want, buf.String())
}

func TestOutline_DeadAndPlain(t *testing.T) {
	b := dsl.New("root")
	b.Root().Line("gone")
	b.Root().Choice("kept").When("x")
	doc, err := b.Build()
	require.NoError(t, err)
	doc.Records[1].Data = nil

	var buf bytes.Buffer
	o := &tui.Outline{Profile: termenv.Ascii}
	require.NoError(t, o.Render(&buf, doc))

	assert.Contains(t, buf.String(), "#1 (dead)")
	assert.Contains(t, buf.String(), "#2 > kept\n")
}

func TestOutline_NoRoot(t *testing.T) {
	var buf bytes.Buffer
	o := &tui.Outline{Profile: termenv.Ascii}
	assert.Error(t, o.Render(&buf, nil))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, termenv.Ascii)
	assert.Contains(t, buf.String(), `/_/   \_\_|`)
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestProfileFor_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, termenv.Ascii, tui.ProfileFor(&buf))
}
