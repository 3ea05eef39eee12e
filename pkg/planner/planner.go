// Package planner builds query plans for one operation against a supergraph,
// under one set of enabled override labels.
//
// The engine implements the slice of federated planning this analyzer needs:
// root fields are routed to the service that owns them, fields owned by other
// services become entity fetches (Flatten + Fetch requesting __typename and
// the type's key fields in the representation selection), and progressive
// overrides pick the winning service per field:
//
//   - a @join__field candidate carrying override: wins when it has no
//     overrideLabel or its label is in the enabled set,
//   - otherwise the field stays with the overridden service.
//
// A Planner is a pure function of (schema, config, operation, enabled set):
// it holds only the parsed schema and its configuration, both read-only, so
// concurrent BuildQueryPlan calls never observe each other.
package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/planmatrix/planmatrix/pkg/queryplan"
	"github.com/planmatrix/planmatrix/pkg/supergraph"
)

var (
	// ErrQueryParse is returned when the operation document cannot be
	// parsed or does not validate against the schema.
	ErrQueryParse = errors.New("planmatrix/planner: query parse failure")

	// ErrPlanner is returned when a valid operation cannot be planned,
	// e.g. a field no service can resolve or an exceeded planning budget.
	ErrPlanner = errors.New("planmatrix/planner: planning failure")
)

// IsQueryParseErr returns true if err is or wraps ErrQueryParse.
func IsQueryParseErr(err error) bool {
	return errors.Is(err, ErrQueryParse)
}

// IsPlannerErr returns true if err is or wraps ErrPlanner.
func IsPlannerErr(err error) bool {
	return errors.Is(err, ErrPlanner)
}

// defaultMaxEvaluatedPlans mirrors the router's default planning budget.
const defaultMaxEvaluatedPlans = 10_000

// Config carries the planner options recognized by the engine. The zero
// value is not the default; use DefaultConfig. Configs are passed by value
// and never mutated.
type Config struct {
	// GenerateQueryFragments enables fragment compaction of subgraph
	// operations. The plans this engine builds are small enough that the
	// toggle is accepted and recorded but changes no output.
	GenerateQueryFragments bool

	// EnableDefer allows @defer in operations. When false, operations
	// using @defer are rejected up front with a clear diagnostic.
	EnableDefer bool

	// TypeConditionedFetching renders flatten paths with the entity type
	// condition (e.g. "t|[T]") as the router does when the option is on.
	TypeConditionedFetching bool

	// MaxEvaluatedPlans bounds the number of fetch sub-plans a single
	// build may produce. Zero or negative means the default (10000).
	MaxEvaluatedPlans int

	// PathsLimit bounds the number of entity jumps considered per build.
	// Zero means unlimited.
	PathsLimit int
}

// DefaultConfig returns the router-aligned defaults: fragments on, defer on,
// type-conditioned fetching off, 10000 plans, unlimited paths.
func DefaultConfig() Config {
	return Config{
		GenerateQueryFragments: true,
		EnableDefer:            true,
		MaxEvaluatedPlans:      defaultMaxEvaluatedPlans,
	}
}

func (c Config) maxEvaluatedPlans() int {
	if c.MaxEvaluatedPlans <= 0 {
		return defaultMaxEvaluatedPlans
	}
	return c.MaxEvaluatedPlans
}

// Options carries the per-invocation inputs: the override labels enabled for
// this build.
type Options struct {
	OverrideConditions []string
}

// Planner plans operations against one supergraph under one configuration.
type Planner struct {
	sg  *supergraph.Supergraph
	cfg Config
	log zerolog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger routes the planner's debug logging to log.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Planner) { p.log = log }
}

// New returns a Planner over sg with cfg.
func New(sg *supergraph.Supergraph, cfg Config, opts ...Option) *Planner {
	p := &Planner{sg: sg, cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Operation is a parsed, validated operation document ready for planning.
type Operation struct {
	def *ast.OperationDefinition
}

// ParseOperation parses and validates an operation against the supergraph
// schema. queryPath labels diagnostics only; no file is read here.
func (p *Planner) ParseOperation(query, queryPath string) (*Operation, error) {
	if !p.cfg.EnableDefer && strings.Contains(query, "@defer") {
		return nil, fmt.Errorf("%w: %s: @defer used but defer support is disabled", ErrQueryParse, queryPath)
	}

	doc, errs := gqlparser.LoadQuery(p.sg.Schema(), query)
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %v", ErrQueryParse, queryPath, errs)
	}
	if len(doc.Operations) != 1 {
		return nil, fmt.Errorf("%w: %s: expected exactly one operation, found %d",
			ErrQueryParse, queryPath, len(doc.Operations))
	}
	return &Operation{def: doc.Operations[0]}, nil
}

// BuildQueryPlan builds the plan for op under the override labels enabled in
// opts. Identical inputs always produce an identical plan.
func (p *Planner) BuildQueryPlan(op *Operation, opts Options) (*queryplan.Plan, error) {
	enabled := make(map[string]bool, len(opts.OverrideConditions))
	for _, label := range opts.OverrideConditions {
		enabled[label] = true
	}

	b := &build{
		planner: p,
		enabled: enabled,
	}

	rootType := "Query"
	if op.def.Operation == ast.Mutation {
		rootType = "Mutation"
	}

	rootGroups, err := b.groupByOwner("", rootType, fieldsOf(op.def.SelectionSet))
	if err != nil {
		return nil, err
	}

	var stage []queryplan.Node
	var pending []jump
	for _, g := range rootGroups {
		selections, jumps, err := b.buildSelections(g.graph, rootType, g.fields, nil)
		if err != nil {
			return nil, err
		}
		stage = append(stage, b.fetchNode(g.graph, nil, "", selections, string(op.def.Operation)))
		pending = append(pending, jumps...)
	}

	// Mutation root fetches must stay ordered; query roots are independent.
	stages := []queryplan.Node{combine(stage, op.def.Operation == ast.Mutation)}

	for len(pending) > 0 {
		var nodes []queryplan.Node
		var next []jump
		for _, j := range pending {
			selections, jumps, err := b.buildSelections(j.graph, j.typeName, j.fields, j.path)
			if err != nil {
				return nil, err
			}
			requires, err := b.representation(j.graph, j.typeName)
			if err != nil {
				return nil, err
			}
			fetch := b.fetchNode(j.graph, requires,
				j.typeName, selections, string(ast.Query))
			nodes = append(nodes, &queryplan.FlattenNode{
				Path: p.flattenPath(j.path, j.typeName),
				Node: fetch,
			})
			next = append(next, jumps...)
		}
		stages = append(stages, combine(nodes, false))
		pending = next
	}

	if max := p.cfg.maxEvaluatedPlans(); b.fetches > max {
		return nil, fmt.Errorf("%w: evaluated plans limit exceeded (%d > %d)", ErrPlanner, b.fetches, max)
	}

	var root queryplan.Node
	if len(stages) == 1 {
		root = stages[0]
	} else {
		root = &queryplan.SequenceNode{Nodes: stages}
	}

	p.log.Debug().
		Strs("override_conditions", opts.OverrideConditions).
		Int("stages", len(stages)).
		Int("fetches", b.fetches).
		Msg("built query plan")

	return &queryplan.Plan{Node: root}, nil
}

// flattenPath renders the response path of an entity jump. With
// type-conditioned fetching the final element carries the type condition.
func (p *Planner) flattenPath(path []string, typeName string) []string {
	out := make([]string, len(path))
	copy(out, path)
	if p.cfg.TypeConditionedFetching && len(out) > 0 {
		out[len(out)-1] = fmt.Sprintf("%s|[%s]", out[len(out)-1], typeName)
	}
	return out
}

func combine(nodes []queryplan.Node, ordered bool) queryplan.Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	if ordered {
		return &queryplan.SequenceNode{Nodes: nodes}
	}
	return &queryplan.ParallelNode{Nodes: nodes}
}

func fieldsOf(set ast.SelectionSet) []*ast.Field {
	var fields []*ast.Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			fields = append(fields, s)
		case *ast.InlineFragment:
			fields = append(fields, fieldsOf(s.SelectionSet)...)
		case *ast.FragmentSpread:
			if s.Definition != nil {
				fields = append(fields, fieldsOf(s.Definition.SelectionSet)...)
			}
		}
	}
	return fields
}
