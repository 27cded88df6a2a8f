package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeData_Defaults(t *testing.T) {
	d := domain.NewNodeData(domain.NodeTypeChoice)

	assert.Equal(t, domain.NodeTypeChoice, d.Type())
	assert.Equal(t, domain.DefaultText, d.Text)
	require.NotNil(t, d.Condition)
	assert.True(t, d.Condition.Always())
	assert.Nil(t, d.Action)
}

func TestNodeData_DisplayText(t *testing.T) {
	d := domain.NewNodeData(domain.NodeTypeLine)
	d.Text = ""
	assert.Equal(t, domain.EmptyText, d.DisplayText())

	d.Text = "Hello"
	assert.Equal(t, "Hello", d.DisplayText())
}

func TestNodeData_CloneIsDeep(t *testing.T) {
	d := domain.NewNodeData(domain.NodeTypeLine)
	d.Condition.Expression = "gold > 3"
	d.Action = &domain.Action{Name: "give", Args: map[string]any{"item": "key"}}

	c := d.Clone()
	c.Condition.Expression = "gold > 4"
	c.Action.Args["item"] = "map"

	assert.Equal(t, "gold > 3", d.Condition.Expression)
	assert.Equal(t, "key", d.Action.Args["item"])
	assert.Equal(t, domain.NodeTypeLine, c.Type())
}

func TestParseNodeType(t *testing.T) {
	typ, err := domain.ParseNodeType("choice")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeTypeChoice, typ)

	_, err = domain.ParseNodeType("question")
	assert.Error(t, err)
}

func TestStructuralError_Is(t *testing.T) {
	err := domain.Violation("move", "node %d is its own parent", 3)
	assert.True(t, errors.Is(err, domain.ErrStructuralViolation))
	assert.Contains(t, err.Error(), "node 3 is its own parent")
}

func TestGameState_Resolve(t *testing.T) {
	s := domain.GameState{
		"gold":      10,
		"inventory": map[string]any{"keys": 2},
	}

	v, ok := s.Get("inventory.keys")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = s.Get("inventory.maps")
	assert.False(t, ok)

	_, ok = s.Get("gold.amount")
	assert.False(t, ok)
}
