package plandiff

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmatrix/planmatrix/pkg/queryplan"
	"github.com/planmatrix/planmatrix/pkg/supergraph"
)

func entityFetch(service, field string) *queryplan.FetchNode {
	return &queryplan.FetchNode{
		ServiceName: service,
		Requires: queryplan.SelectionSet{
			queryplan.InlineFragment("T", queryplan.Field("__typename"), queryplan.Field("id")),
		},
		Selections: queryplan.SelectionSet{
			queryplan.InlineFragment("T", queryplan.Field(field)),
		},
		VariableUsages: []string{"representations"},
	}
}

// scenarioPlan mirrors the planner's output shape for the progressive
// override scenario: root fetch, then parallel flattened entity fetches.
func scenarioPlan(data1Service, data2Service string) *queryplan.Plan {
	return &queryplan.Plan{
		Node: &queryplan.SequenceNode{
			Nodes: []queryplan.Node{
				&queryplan.FetchNode{
					ServiceName: "entrypoint",
					Selections: queryplan.SelectionSet{
						queryplan.Field("t", queryplan.Field("__typename"), queryplan.Field("id")),
					},
				},
				&queryplan.ParallelNode{
					Nodes: []queryplan.Node{
						&queryplan.FlattenNode{Path: []string{"t"}, Node: entityFetch(data1Service, "data1")},
						&queryplan.FlattenNode{Path: []string{"t"}, Node: entityFetch(data2Service, "data2")},
					},
				},
			},
		},
	}
}

func TestCompare_Reflexive(t *testing.T) {
	p := scenarioPlan("monolith", "B")
	report, err := Compare(nil, p, p)
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestCompare_EqualTreesDistinctValues(t *testing.T) {
	report, err := Compare(nil, scenarioPlan("monolith", "B"), scenarioPlan("monolith", "B"))
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestCompare_DivergenceNamesFetchService(t *testing.T) {
	// No overrides vs percent(90): data2 moves from monolith to B.
	baseline := scenarioPlan("monolith", "monolith")
	overridden := scenarioPlan("monolith", "B")

	report, err := Compare(nil, baseline, overridden)
	require.NoError(t, err)
	require.NotNil(t, report)
	require.NotNil(t, report.Divergence)

	div := report.Divergence
	assert.Equal(t, MismatchValue, div.Kind)
	assert.Equal(t, "QueryPlan/Sequence[1]/Parallel[1]/Flatten(t)/Fetch", div.Path)
	assert.Contains(t, div.Detail, `"monolith"`)
	assert.Contains(t, div.Detail, `"B"`)
	assert.Contains(t, div.Detail, "fetch target service")
}

func TestCompare_UnifiedDiffCoversChange(t *testing.T) {
	report, err := Compare(nil, scenarioPlan("monolith", "monolith"), scenarioPlan("monolith", "B"))
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Contains(t, report.UnifiedDiff, "--- plan/a")
	assert.Contains(t, report.UnifiedDiff, "+++ plan/b")
	assert.Contains(t, report.UnifiedDiff, `-        Fetch(service: "monolith") {`)
	assert.Contains(t, report.UnifiedDiff, `+        Fetch(service: "B") {`)
}

func TestCompare_SymmetricClassification(t *testing.T) {
	a := scenarioPlan("monolith", "monolith")
	b := scenarioPlan("monolith", "B")

	ab, err := Compare(nil, a, b)
	require.NoError(t, err)
	ba, err := Compare(nil, b, a)
	require.NoError(t, err)

	require.NotNil(t, ab)
	require.NotNil(t, ba)
	assert.Equal(t, ab.Divergence.Path, ba.Divergence.Path)
	assert.Equal(t, ab.Divergence.Kind, ba.Divergence.Kind)
}

func TestCompare_KindMismatch(t *testing.T) {
	a := &queryplan.Plan{Node: &queryplan.SequenceNode{Nodes: []queryplan.Node{
		&queryplan.FetchNode{ServiceName: "entrypoint", Selections: queryplan.SelectionSet{queryplan.Field("t")}},
	}}}
	b := &queryplan.Plan{Node: &queryplan.ParallelNode{Nodes: []queryplan.Node{
		&queryplan.FetchNode{ServiceName: "entrypoint", Selections: queryplan.SelectionSet{queryplan.Field("t")}},
	}}}

	report, err := Compare(nil, a, b)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, MismatchNodeKind, report.Divergence.Kind)
	assert.Equal(t, "QueryPlan", report.Divergence.Path)
	assert.Contains(t, report.Divergence.Detail, "Sequence vs Parallel")
}

func TestCompare_MissingChild(t *testing.T) {
	shorter := &queryplan.Plan{Node: &queryplan.ParallelNode{Nodes: []queryplan.Node{
		&queryplan.FlattenNode{Path: []string{"t"}, Node: entityFetch("monolith", "data1")},
	}}}
	longer := &queryplan.Plan{Node: &queryplan.ParallelNode{Nodes: []queryplan.Node{
		&queryplan.FlattenNode{Path: []string{"t"}, Node: entityFetch("monolith", "data1")},
		&queryplan.FlattenNode{Path: []string{"t"}, Node: entityFetch("B", "data2")},
	}}}

	report, err := Compare(nil, shorter, longer)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, MismatchMissing, report.Divergence.Kind)
	assert.Equal(t, "QueryPlan/Parallel[1]", report.Divergence.Path)
	assert.Contains(t, report.Divergence.Detail, "plan a is missing")
}

func TestCompare_FlattenPathMismatch(t *testing.T) {
	a := &queryplan.Plan{Node: &queryplan.FlattenNode{Path: []string{"t"}, Node: entityFetch("monolith", "data1")}}
	b := &queryplan.Plan{Node: &queryplan.FlattenNode{Path: []string{"u"}, Node: entityFetch("monolith", "data1")}}

	report, err := Compare(nil, a, b)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, MismatchValue, report.Divergence.Kind)
	assert.Contains(t, report.Divergence.Detail, `flatten path "t" vs "u"`)
}

func TestCompare_SelectionMismatch(t *testing.T) {
	a := &queryplan.Plan{Node: entityFetch("monolith", "data1")}
	b := &queryplan.Plan{Node: entityFetch("monolith", "data2")}

	report, err := Compare(nil, a, b)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, MismatchValue, report.Divergence.Kind)
	assert.Contains(t, report.Divergence.Detail, "data1")
	assert.Contains(t, report.Divergence.Detail, "data2")
}

func TestCompare_NilPlan(t *testing.T) {
	_, err := Compare(nil, nil, scenarioPlan("monolith", "B"))
	require.Error(t, err)
	assert.True(t, queryplan.IsPlanFormatErr(err))
}

func TestCompare_UnknownServiceAnnotated(t *testing.T) {
	sdl, err := os.ReadFile(filepath.Join("testdata", "progressive.graphql"))
	require.NoError(t, err)
	sg, err := supergraph.Parse(string(sdl))
	require.NoError(t, err)

	a := &queryplan.Plan{Node: entityFetch("monolith", "data1")}
	b := &queryplan.Plan{Node: entityFetch("rogue", "data1")}

	report, err := Compare(sg, a, b)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, strings.Contains(report.Divergence.Detail, "not declared in schema"),
		"detail should flag the unknown service: %s", report.Divergence.Detail)
}
