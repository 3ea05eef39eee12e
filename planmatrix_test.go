package planmatrix

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planmatrix/planmatrix/pkg/matrix"
	"github.com/planmatrix/planmatrix/pkg/planner"
	"github.com/planmatrix/planmatrix/pkg/queryplan"
	"github.com/planmatrix/planmatrix/pkg/supergraph"
)

const scenarioQuery = `query { t { data1 data2 } }`

func progressiveSchema(t *testing.T) string {
	t.Helper()
	sdl, err := os.ReadFile(filepath.Join("testdata", "progressive.graphql"))
	require.NoError(t, err)
	return string(sdl)
}

// fetchServices collects the entity fetch targets of one matrix entry, in
// plan order.
func fetchServices(t *testing.T, r matrix.PlanResult) []string {
	t.Helper()
	seq, ok := r.Plan.Node.(*queryplan.SequenceNode)
	require.True(t, ok, "plan root should be a sequence, got %T", r.Plan.Node)
	require.Len(t, seq.Nodes, 2)

	par, ok := seq.Nodes[1].(*queryplan.ParallelNode)
	require.True(t, ok, "entity stage should be parallel, got %T", seq.Nodes[1])

	var services []string
	for _, n := range par.Nodes {
		flatten, ok := n.(*queryplan.FlattenNode)
		require.True(t, ok)
		fetch, ok := flatten.Node.(*queryplan.FetchNode)
		require.True(t, ok)
		services = append(services, fetch.ServiceName)
	}
	return services
}

func TestOverrideLabels(t *testing.T) {
	labels, err := OverrideLabels(progressiveSchema(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"percent(50)", "percent(90)"}, labels)
}

func TestOverrideLabels_ParseFailure(t *testing.T) {
	_, err := OverrideLabels("type Query {")
	require.Error(t, err)
	assert.True(t, supergraph.IsSchemaParseErr(err))
}

func TestBuildAllPlans_Matrix(t *testing.T) {
	results, err := BuildAllPlans(context.Background(), progressiveSchema(t),
		scenarioQuery, "query.graphql", planner.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, results, 4, "two labels enumerate four combinations")

	assert.Equal(t, []string{}, results[0].Config.OverrideConditions)
	assert.Equal(t, []string{"percent(50)"}, results[1].Config.OverrideConditions)
	assert.Equal(t, []string{"percent(90)"}, results[2].Config.OverrideConditions)
	assert.Equal(t, []string{"percent(50)", "percent(90)"}, results[3].Config.OverrideConditions)

	// Winners per combination: data1 moves to A under percent(50), data2 to B
	// under percent(90), and both stay on the monolith otherwise.
	assert.Equal(t, []string{"monolith", "monolith"}, fetchServices(t, results[0]))
	assert.Equal(t, []string{"A", "monolith"}, fetchServices(t, results[1]))
	assert.Equal(t, []string{"monolith", "B"}, fetchServices(t, results[2]))
	assert.Equal(t, []string{"A", "B"}, fetchServices(t, results[3]))
}

func TestBuildAllPlans_Deterministic(t *testing.T) {
	schema := progressiveSchema(t)

	first, err := BuildAllPlans(context.Background(), schema, scenarioQuery, "q", planner.DefaultConfig())
	require.NoError(t, err)
	second, err := BuildAllPlans(context.Background(), schema, scenarioQuery, "q", planner.DefaultConfig())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b), "re-runs must serialize byte-identically")
}

func TestBuildAllPlans_CeilingPropagates(t *testing.T) {
	_, err := BuildAllPlans(context.Background(), progressiveSchema(t),
		scenarioQuery, "q", planner.DefaultConfig(), matrix.WithMaxLabels(1))
	require.Error(t, err)
	assert.True(t, matrix.IsCombinationLimitErr(err))
}

func TestBuildOnePlan_OverrideAllMatchesLastCombination(t *testing.T) {
	schema := progressiveSchema(t)

	all, err := BuildAllPlans(context.Background(), schema, scenarioQuery, "q", planner.DefaultConfig())
	require.NoError(t, err)

	one, err := BuildOnePlan(context.Background(), schema, scenarioQuery, "q",
		planner.DefaultConfig(), true, nil)
	require.NoError(t, err)

	assert.Equal(t, all[len(all)-1].Display, one.Display)
	assert.Equal(t, all[len(all)-1].Config, one.Config)
}

func TestBuildOnePlan_ExplicitLabel(t *testing.T) {
	one, err := BuildOnePlan(context.Background(), progressiveSchema(t), scenarioQuery, "q",
		planner.DefaultConfig(), false, []string{"percent(90)"})
	require.NoError(t, err)
	assert.Equal(t, []string{"percent(90)"}, one.Config.OverrideConditions)
	assert.Equal(t, []string{"monolith", "B"}, fetchServices(t, one))
}

func TestBuildOnePlan_UnknownLabel(t *testing.T) {
	_, err := BuildOnePlan(context.Background(), progressiveSchema(t), scenarioQuery, "q",
		planner.DefaultConfig(), false, []string{"percent(10)"})
	require.Error(t, err)
	assert.True(t, matrix.IsInvalidLabelErr(err))
}

func TestComparePlans_NamesMovedService(t *testing.T) {
	schema := progressiveSchema(t)
	results, err := BuildAllPlans(context.Background(), schema, scenarioQuery, "q", planner.DefaultConfig())
	require.NoError(t, err)

	report, err := ComparePlans(schema, results[0].Plan, results[2].Plan)
	require.NoError(t, err)
	require.NotNil(t, report)
	require.NotNil(t, report.Divergence)
	assert.Contains(t, report.Divergence.Detail, `"monolith"`)
	assert.Contains(t, report.Divergence.Detail, `"B"`)
	assert.Contains(t, report.Divergence.Path, "Fetch")
}

func TestComparePlans_IdenticalCombination(t *testing.T) {
	schema := progressiveSchema(t)
	results, err := BuildAllPlans(context.Background(), schema, scenarioQuery, "q", planner.DefaultConfig())
	require.NoError(t, err)

	report, err := ComparePlans(schema, results[2].Plan, results[2].Plan)
	require.NoError(t, err)
	assert.Nil(t, report)
}
