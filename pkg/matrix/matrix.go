// Package matrix enumerates override-label combinations and builds one query
// plan per combination.
//
// A combination is an integer bitmask over the label catalog: bit j of the
// combination index corresponds to label j in catalog order, so index 0 is
// every label disabled and index 2^n-1 is every label enabled. The mapping is
// a bijection; the enabled-label view is derived from the index on demand
// rather than materialized per combination.
//
// The builder treats planning as an opaque, possibly expensive, pure function
// (PlanFunc). Combinations are independent, so they are planned on a bounded
// worker pool; results land at their index positions so the output order is
// identical no matter which worker finishes first. The first failure aborts
// the whole build — callers always get either the complete, index-aligned
// matrix or an error naming the failing combination, never a partial list.
package matrix

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/planmatrix/planmatrix/pkg/queryplan"
)

// DefaultMaxLabels is the combination ceiling applied when none is
// configured: 12 labels, i.e. at most 4096 planner invocations.
const DefaultMaxLabels = 12

// PlanFunc builds the query plan for one enabled override-label set. It must
// be a pure function of its arguments: implementations may memoize read-only
// state (a parsed schema) but must not let one invocation observe another.
type PlanFunc func(ctx context.Context, enabledLabels []string) (*queryplan.Plan, error)

// Combination is one point of the override matrix: the index and the label
// subset it enables. Two combinations are equal iff their enabled sets are
// equal.
type Combination struct {
	Index   int
	Enabled []string
}

// CombinationAt derives the combination at index over the catalog order:
// bit j of index enables labels[j]. Index 0 enables nothing.
func CombinationAt(labels []string, index int) Combination {
	var enabled []string
	for j, label := range labels {
		if index&(1<<j) != 0 {
			enabled = append(enabled, label)
		}
	}
	return Combination{Index: index, Enabled: enabled}
}

// CombinationCount returns 2^n for n labels.
func CombinationCount(n int) int {
	return 1 << n
}

// ResultConfig records the configuration that produced a plan: the override
// labels that were enabled.
type ResultConfig struct {
	OverrideConditions []string `json:"overrideConditions"`
}

// PlanResult is one tagged plan of the matrix.
type PlanResult struct {
	// Config is the combination that produced the plan, serialized as the
	// subset of enabled labels.
	Config ResultConfig `json:"queryPlanConfig"`
	// Display is the canonical human-readable rendering of the plan.
	Display string `json:"queryPlanDisplay"`
	// Plan is the structured plan tree.
	Plan *queryplan.Plan `json:"queryPlanSerialized"`
}

// Builder builds plans across override-label combinations.
type Builder struct {
	labels    []string
	plan      PlanFunc
	maxLabels int
	workers   int
	log       zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxLabels sets the combination ceiling. Zero or negative keeps the
// default.
func WithMaxLabels(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxLabels = n
		}
	}
}

// WithWorkers bounds the planning worker pool. Zero or negative keeps the
// default (GOMAXPROCS).
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLogger routes the builder's logging to log.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Builder) { b.log = log }
}

// NewBuilder returns a Builder over the label catalog (in catalog order) and
// the planning function.
func NewBuilder(labels []string, plan PlanFunc, opts ...Option) *Builder {
	b := &Builder{
		labels:    labels,
		plan:      plan,
		maxLabels: DefaultMaxLabels,
		workers:   runtime.GOMAXPROCS(0),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildAll builds one plan per combination, ordered by combination index.
// It fails with CombinationLimitError before planning anything when the
// catalog exceeds the ceiling, and with the first planning failure otherwise.
func (b *Builder) BuildAll(ctx context.Context) ([]PlanResult, error) {
	n := len(b.labels)
	if n > b.maxLabels {
		return nil, &CombinationLimitError{Labels: n, MaxLabels: b.maxLabels}
	}
	total := CombinationCount(n)

	b.log.Info().
		Strs("labels", b.labels).
		Int("combinations", total).
		Int("workers", b.workers).
		Msg("building override matrix")

	results := make([]PlanResult, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i := 0; i < total; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			comb := CombinationAt(b.labels, i)
			plan, err := b.plan(gctx, comb.Enabled)
			if err != nil {
				return fmt.Errorf("combination %d [%s]: %w", i, strings.Join(comb.Enabled, ", "), err)
			}
			results[i] = PlanResult{
				Config:  ResultConfig{OverrideConditions: enabledOrEmpty(comb.Enabled)},
				Display: plan.Render(),
				Plan:    plan,
			}
			b.log.Debug().Int("combination", i).Strs("enabled", comb.Enabled).Msg("planned combination")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BuildOne builds the plan for a single caller-specified combination. With
// overrideAll every catalog label is enabled and an accompanying explicit
// list is rejected. An explicit list is validated against the catalog:
// unknown and duplicate labels fail with InvalidLabelError.
func (b *Builder) BuildOne(ctx context.Context, overrideAll bool, labels []string) (PlanResult, error) {
	var enabled []string
	switch {
	case overrideAll:
		if len(labels) > 0 {
			return PlanResult{}, fmt.Errorf("planmatrix/matrix: override-all cannot be combined with explicit labels")
		}
		enabled = append(enabled, b.labels...)
	default:
		if err := b.checkLabels(labels); err != nil {
			return PlanResult{}, err
		}
		enabled = labels
	}

	plan, err := b.plan(ctx, enabled)
	if err != nil {
		return PlanResult{}, fmt.Errorf("combination [%s]: %w", strings.Join(enabled, ", "), err)
	}
	return PlanResult{
		Config:  ResultConfig{OverrideConditions: enabledOrEmpty(enabled)},
		Display: plan.Render(),
		Plan:    plan,
	}, nil
}

// checkLabels rejects labels outside the catalog and duplicates.
func (b *Builder) checkLabels(labels []string) error {
	known := make(map[string]bool, len(b.labels))
	for _, label := range b.labels {
		known[label] = true
	}
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		if !known[label] {
			return &InvalidLabelError{Label: label, Known: b.labels}
		}
		if seen[label] {
			return &InvalidLabelError{Label: label, Known: b.labels, Duplicate: true}
		}
		seen[label] = true
	}
	return nil
}

// enabledOrEmpty keeps the serialized enabled set a JSON array, never null.
func enabledOrEmpty(enabled []string) []string {
	if enabled == nil {
		return []string{}
	}
	return enabled
}
