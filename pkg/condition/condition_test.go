package condition_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/condition"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	state := domain.GameState{
		"gold":          float64(12),
		"level":         3,
		"name":          "Mira",
		"met_innkeeper": true,
		"quest":         map[string]any{"stage": 2, "done": false},
		"tags":          []any{"brave", "thief"},
	}

	cases := []struct {
		name    string
		expr    string
		want    bool
		wantErr bool
	}{
		{name: "gt true", expr: "gold > 10", want: true},
		{name: "gt false", expr: "gold > 20", want: false},
		{name: "int state vs float literal", expr: "level == 3", want: true},
		{name: "lte", expr: "level <= 2", want: false},
		{name: "string eq", expr: `name == "Mira"`, want: true},
		{name: "single quotes", expr: `name != 'Ovid'`, want: true},
		{name: "nested path", expr: "quest.stage >= 2", want: true},
		{name: "bare var", expr: "met_innkeeper", want: true},
		{name: "bare nested false", expr: "quest.done", want: false},
		{name: "missing bare var is false", expr: "has_key", want: false},
		{name: "not keyword", expr: "NOT quest.done", want: true},
		{name: "bang", expr: "!met_innkeeper", want: false},
		{name: "and", expr: "gold > 10 AND level == 3", want: true},
		{name: "symbolic and", expr: "gold > 10 && level == 4", want: false},
		{name: "or short circuit", expr: "met_innkeeper || missing > 1", want: true},
		{name: "parens", expr: "(gold < 5 OR level == 3) and name == 'Mira'", want: true},
		{name: "contains string", expr: `name contains "ir"`, want: true},
		{name: "contains list", expr: `tags contains "thief"`, want: true},
		{name: "matches", expr: `name matches "^M.*a$"`, want: true},
		{name: "bool literal", expr: "met_innkeeper == true", want: true},
		{name: "negative number", expr: "gold > -1", want: true},
		{name: "missing var in comparison", expr: "reputation > 1", wantErr: true},
		{name: "non numeric ordering", expr: "name > 1", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := condition.Parse(tc.expr)
			require.NoError(t, err)

			got, err := condition.Eval(e, state)
			if tc.wantErr {
				assert.Error(t, err)
				assert.False(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{
		"",
		"gold >",
		"(gold > 1",
		"gold = 1",
		`name == "open`,
		"gold > 1 gold",
		"AND gold",
		"gold & 1",
		"gold > 1 #",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := condition.Parse(src)
			assert.Error(t, err)
		})
	}
}

func TestCheck(t *testing.T) {
	assert.NoError(t, condition.Check(""))
	assert.NoError(t, condition.Check("  "))
	assert.NoError(t, condition.Check("gold > 1"))
	assert.Error(t, condition.Check("gold >"))
}

func TestEvaluator(t *testing.T) {
	ev := condition.NewEvaluator()
	ctx := context.Background()
	state := domain.GameState{"gold": 5}

	ok, err := ev.Evaluate(ctx, domain.Condition{}, nil)
	require.NoError(t, err)
	assert.True(t, ok, "empty condition always holds")

	ok, err = ev.Evaluate(ctx, domain.Condition{Expression: "gold >= 5"}, state)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second call hits the cache and sees the new state.
	ok, err = ev.Evaluate(ctx, domain.Condition{Expression: "gold >= 5"}, domain.GameState{"gold": 1})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ev.Evaluate(ctx, domain.Condition{Expression: "gold >>"}, state)
	assert.Error(t, err)

	ok, err = ev.Evaluate(ctx, domain.Condition{Expression: "flag"}, nil)
	require.NoError(t, err)
	assert.False(t, ok, "nil state behaves as empty")
}
