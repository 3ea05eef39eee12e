// Package queryplan defines the query plan tree produced by the planner and
// consumed by the matrix builder and the differ.
//
// A plan is a recursively nested structure of node kinds:
//
//   - Sequence: children execute in order
//   - Parallel: children execute concurrently
//   - Flatten: a sub-plan scoped to a response path
//   - Fetch: one subgraph call with its selections and, for entity fetches,
//     the representation selection it requires
//
// The kinds are modeled as a tagged variant hierarchy (Node plus one struct
// per kind) so that rendering, serialization, and the differ's lock-step walk
// can all switch exhaustively over the same set. Plans are immutable once
// built; the package never mutates a tree it is handed.
package queryplan

import "errors"

// ErrPlanFormat is returned when a serialized plan value is not a well-formed
// plan tree.
var ErrPlanFormat = errors.New("planmatrix/queryplan: malformed plan")

// IsPlanFormatErr returns true if err is or wraps ErrPlanFormat.
func IsPlanFormatErr(err error) bool {
	return errors.Is(err, ErrPlanFormat)
}

// Kind identifies a plan node variant.
type Kind string

const (
	KindQueryPlan Kind = "QueryPlan"
	KindSequence  Kind = "Sequence"
	KindParallel  Kind = "Parallel"
	KindFlatten   Kind = "Flatten"
	KindFetch     Kind = "Fetch"
)

// Node is implemented by every plan-tree node variant.
type Node interface {
	Kind() Kind
}

// Plan is the root of a query plan tree. Node is nil for an empty plan
// (an operation that requires no fetches).
type Plan struct {
	Node Node
}

// SequenceNode executes its children in order.
type SequenceNode struct {
	Nodes []Node
}

func (*SequenceNode) Kind() Kind { return KindSequence }

// ParallelNode executes its children concurrently.
type ParallelNode struct {
	Nodes []Node
}

func (*ParallelNode) Kind() Kind { return KindParallel }

// FlattenNode scopes its child to a response path, e.g. the entities found
// under "t" in the parent fetch's response.
type FlattenNode struct {
	Path []string
	Node Node
}

func (*FlattenNode) Kind() Kind { return KindFlatten }

// FetchNode is a single call to one subgraph service.
type FetchNode struct {
	// ServiceName is the routing name of the target subgraph.
	ServiceName string
	// Requires is the representation selection an entity fetch sends,
	// nil for a root fetch.
	Requires SelectionSet
	// Selections is what the fetch asks the subgraph for.
	Selections SelectionSet
	// OperationKind is "query" for everything planmatrix plans today.
	OperationKind string
	// VariableUsages lists the operation variables the fetch uses, sorted.
	VariableUsages []string
}

func (*FetchNode) Kind() Kind { return KindFetch }

// Selection is one entry of a selection set: either a field (Name set) or an
// inline fragment (TypeCondition set). Selection order is semantic and is
// preserved everywhere.
type Selection struct {
	Name          string       `json:"name,omitempty"`
	TypeCondition string       `json:"typeCondition,omitempty"`
	Selections    SelectionSet `json:"selections,omitempty"`
}

// SelectionSet is an ordered list of selections.
type SelectionSet []Selection

// Field returns a field selection with optional sub-selections.
func Field(name string, sub ...Selection) Selection {
	return Selection{Name: name, Selections: sub}
}

// InlineFragment returns a type-conditioned selection.
func InlineFragment(typeCondition string, sub ...Selection) Selection {
	return Selection{TypeCondition: typeCondition, Selections: sub}
}
