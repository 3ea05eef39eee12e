// Package planmatrix analyzes how a federated query planner schedules an
// operation under every combination of progressive override labels declared
// in a supergraph schema.
//
// Schema authors use it to predict and compare execution plans before
// deploying subgraph migrations gated by override labels. The package is the
// public surface over the machinery in pkg/:
//
//   - OverrideLabels lists the label catalog of a schema.
//   - BuildAllPlans builds one plan per label combination, deterministically
//     ordered by combination index (pkg/matrix).
//   - BuildOnePlan builds the plan for a single combination.
//   - ComparePlans structurally compares two plan values (pkg/plandiff).
//
// All functions are pure with respect to process state: identical inputs
// produce byte-identical outputs, which is what makes two runs comparable
// at the same combination index.
package planmatrix

import (
	"context"

	"github.com/planmatrix/planmatrix/pkg/matrix"
	"github.com/planmatrix/planmatrix/pkg/plandiff"
	"github.com/planmatrix/planmatrix/pkg/planner"
	"github.com/planmatrix/planmatrix/pkg/queryplan"
	"github.com/planmatrix/planmatrix/pkg/supergraph"
)

// OverrideLabels returns every progressive override label declared in the
// supergraph schema, de-duplicated, in first-seen document order. Fails with
// supergraph.ErrSchemaParse when the schema cannot be parsed.
func OverrideLabels(schema string) ([]string, error) {
	sg, err := supergraph.Parse(schema)
	if err != nil {
		return nil, err
	}
	return sg.OverrideLabels(), nil
}

// BuildAllPlans builds one query plan per override-label combination, in
// strictly increasing combination-index order: index 0 disables every label,
// index 2^n-1 enables them all. queryPath labels diagnostics only.
//
// Options tune the matrix build (ceiling, worker pool, logging); planning
// itself is configured by cfg.
func BuildAllPlans(ctx context.Context, schema, query, queryPath string, cfg planner.Config, opts ...matrix.Option) ([]matrix.PlanResult, error) {
	b, err := newBuilder(schema, query, queryPath, cfg, opts)
	if err != nil {
		return nil, err
	}
	return b.BuildAll(ctx)
}

// BuildOnePlan builds the plan for one combination: every label when
// overrideAll is set (an accompanying explicit list is rejected), otherwise
// exactly the given labels. Unknown or duplicated labels fail with
// matrix.InvalidLabelError.
func BuildOnePlan(ctx context.Context, schema, query, queryPath string, cfg planner.Config, overrideAll bool, labels []string, opts ...matrix.Option) (matrix.PlanResult, error) {
	b, err := newBuilder(schema, query, queryPath, cfg, opts)
	if err != nil {
		return matrix.PlanResult{}, err
	}
	return b.BuildOne(ctx, overrideAll, labels)
}

// ComparePlans structurally compares two plan values against the service
// context of schema. It returns (nil, nil) when the plans are identical, a
// report otherwise. It never invokes the planner.
func ComparePlans(schema string, a, b *queryplan.Plan) (*plandiff.Report, error) {
	sg, err := supergraph.Parse(schema)
	if err != nil {
		return nil, err
	}
	return plandiff.Compare(sg, a, b)
}

// newBuilder wires schema parsing, operation parsing, and the planner into a
// matrix builder. The planner invocation closure is a pure function of the
// enabled set: the parsed schema and operation are read-only memoization.
func newBuilder(schema, query, queryPath string, cfg planner.Config, opts []matrix.Option) (*matrix.Builder, error) {
	sg, err := supergraph.Parse(schema)
	if err != nil {
		return nil, err
	}
	pl := planner.New(sg, cfg)
	op, err := pl.ParseOperation(query, queryPath)
	if err != nil {
		return nil, err
	}
	plan := func(_ context.Context, enabled []string) (*queryplan.Plan, error) {
		return pl.BuildQueryPlan(op, planner.Options{OverrideConditions: enabled})
	}
	return matrix.NewBuilder(sg.OverrideLabels(), plan, opts...), nil
}
