package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *schema.Document {
	t.Helper()
	b := dsl.New("Welcome")
	greet := b.Root().Line("").Speaker("innkeeper").Label("greet")
	greet.Choice(`Say "hi"`).When(`mood == "good"`)
	greet.Choice("Again").LinkTo("greet")
	doc, err := b.Build()
	require.NoError(t, err)
	return doc
}

func TestGenerateMermaid(t *testing.T) {
	doc := sample(t)

	tests := []struct {
		name     string
		contains []string
	}{
		{
			name:     "Root Shape",
			contains: []string{`n0(("#0 Welcome"))`},
		},
		{
			name:     "Empty Text With Speaker",
			contains: []string{`n1["#1 innkeeper: <empty>"]`},
		},
		{
			name:     "Choice Shape And Quote Escaping",
			contains: []string{`n2[/"#2 Say 'hi'"/]`},
		},
		{
			name:     "Condition Label",
			contains: []string{`n1 -- "mood == 'good'" --> n2`},
		},
		{
			name:     "Link As Dashed Edge",
			contains: []string{"n3 -.-> n1"},
		},
	}

	got := graph.GenerateMermaid(doc, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}

	assert.NotContains(t, got, "n4[", "links are edges, not nodes")
	assert.NotContains(t, got, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	doc := sample(t)
	cur := 2
	got := graph.GenerateMermaid(doc, &graph.Overlay{Selected: []int{1, 1}, Current: &cur})

	assert.Equal(t, 1, strings.Count(got, "class n1 selected;"))
	assert.Contains(t, got, "class n2 current;")
}

func TestGenerateMermaid_DeadNode(t *testing.T) {
	doc := sample(t)
	doc.Records[2].Data = nil

	got := graph.GenerateMermaid(doc, nil)
	assert.Contains(t, got, `n2[("#2 (dead)")]`)
	assert.Contains(t, got, "class n2 dead;")
}
