// Package plandiff compares two query plans structurally.
//
// Comparison works on the canonical rendering from pkg/queryplan: two plans
// are identical exactly when their canonical forms are byte-identical. When
// they differ, the package produces two complementary views:
//
//   - a full line-based unified diff of the canonical forms, exhaustive and
//     suited to archival or CI artifacts;
//   - the first point of divergence, found by walking both trees in lock-step
//     in rendering order, which is the fast human-actionable signal.
//
// The differ never plans: it operates on two already-built plan values and
// uses the schema only to re-derive service context for its descriptions.
package plandiff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/planmatrix/planmatrix/pkg/queryplan"
	"github.com/planmatrix/planmatrix/pkg/supergraph"
)

// MismatchKind classifies a divergence.
type MismatchKind string

const (
	// MismatchNodeKind: the nodes at the same position have different kinds.
	MismatchNodeKind MismatchKind = "node-kind"
	// MismatchValue: same kind, different content (service, path, selections).
	MismatchValue MismatchKind = "value"
	// MismatchMissing: one side has a child the other lacks.
	MismatchMissing MismatchKind = "missing-node"
)

// Divergence describes the first node at which two plans differ.
type Divergence struct {
	// Path locates the node, e.g. "QueryPlan/Sequence[1]/Parallel[1]/Flatten(t)/Fetch".
	Path string `json:"path"`
	// Kind classifies the mismatch.
	Kind MismatchKind `json:"kind"`
	// Detail names what differs, left side first.
	Detail string `json:"detail"`
}

func (d *Divergence) String() string {
	return fmt.Sprintf("first divergence at %s: %s", d.Path, d.Detail)
}

// Report is the outcome of comparing two plans that are not identical.
type Report struct {
	// UnifiedDiff is the full line diff between the canonical renderings.
	UnifiedDiff string `json:"unifiedDiff"`
	// Divergence is the first structural difference.
	Divergence *Divergence `json:"divergence"`
}

// Compare compares two plan trees. It returns (nil, nil) when the plans are
// structurally identical, a Report when they differ, and an error when either
// value is not a well-formed plan. sg supplies service context for the
// divergence description; it is never used to re-plan.
func Compare(sg *supergraph.Supergraph, a, b *queryplan.Plan) (*Report, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil plan value", queryplan.ErrPlanFormat)
	}

	left := a.Render()
	right := b.Render()
	if left == right {
		return nil, nil
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(left),
		B:        difflib.SplitLines(right),
		FromFile: "plan/a",
		ToFile:   "plan/b",
		Context:  3,
	})
	if err != nil {
		return nil, fmt.Errorf("planmatrix/plandiff: computing diff: %w", err)
	}

	w := &walker{sg: sg}
	div := w.nodes("QueryPlan", a.Node, b.Node)
	if div == nil {
		// Renderings differ but the walk found nothing: the trees carry
		// content the canonical form includes and the walk missed. Treat
		// it as a value mismatch at the root rather than claim equality.
		div = &Divergence{
			Path:   "QueryPlan",
			Kind:   MismatchValue,
			Detail: "canonical renderings differ",
		}
	}
	return &Report{UnifiedDiff: text, Divergence: div}, nil
}

type walker struct {
	sg *supergraph.Supergraph
}

// nodes walks a and b in lock-step, in the same order Render emits them, and
// returns the first divergence or nil.
func (w *walker) nodes(path string, a, b queryplan.Node) *Divergence {
	if a == nil && b == nil {
		return nil
	}
	if a == nil || b == nil {
		present, side := a, "b"
		if a == nil {
			present, side = b, "a"
		}
		return &Divergence{
			Path:   path,
			Kind:   MismatchMissing,
			Detail: fmt.Sprintf("plan %s is missing the %s node the other has", side, present.Kind()),
		}
	}
	if a.Kind() != b.Kind() {
		return &Divergence{
			Path:   path,
			Kind:   MismatchNodeKind,
			Detail: fmt.Sprintf("node kind %s vs %s", a.Kind(), b.Kind()),
		}
	}

	switch left := a.(type) {
	case *queryplan.SequenceNode:
		return w.children(path+"/Sequence", left.Nodes, b.(*queryplan.SequenceNode).Nodes)
	case *queryplan.ParallelNode:
		return w.children(path+"/Parallel", left.Nodes, b.(*queryplan.ParallelNode).Nodes)
	case *queryplan.FlattenNode:
		right := b.(*queryplan.FlattenNode)
		leftPath := strings.Join(left.Path, ".")
		rightPath := strings.Join(right.Path, ".")
		here := fmt.Sprintf("%s/Flatten(%s)", path, leftPath)
		if leftPath != rightPath {
			return &Divergence{
				Path:   here,
				Kind:   MismatchValue,
				Detail: fmt.Sprintf("flatten path %q vs %q", leftPath, rightPath),
			}
		}
		return w.nodes(here, left.Node, right.Node)
	case *queryplan.FetchNode:
		return w.fetch(path+"/Fetch", left, b.(*queryplan.FetchNode))
	default:
		return nil
	}
}

func (w *walker) children(path string, a, b []queryplan.Node) *Divergence {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if div := w.nodes(fmt.Sprintf("%s[%d]", path, i), a[i], b[i]); div != nil {
			return div
		}
	}
	if len(a) != len(b) {
		longer, side := a, "b"
		if len(b) > len(a) {
			longer, side = b, "a"
		}
		return &Divergence{
			Path:   fmt.Sprintf("%s[%d]", path, n),
			Kind:   MismatchMissing,
			Detail: fmt.Sprintf("plan %s is missing the %s child the other has", side, longer[n].Kind()),
		}
	}
	return nil
}

func (w *walker) fetch(path string, a, b *queryplan.FetchNode) *Divergence {
	if a.ServiceName != b.ServiceName {
		return &Divergence{
			Path: path,
			Kind: MismatchValue,
			Detail: fmt.Sprintf("fetch target service %s vs %s",
				w.describeService(a.ServiceName), w.describeService(b.ServiceName)),
		}
	}
	if got, want := renderSelections(a.Requires), renderSelections(b.Requires); got != want {
		return &Divergence{
			Path:   path,
			Kind:   MismatchValue,
			Detail: fmt.Sprintf("representation selection %s vs %s", got, want),
		}
	}
	if got, want := renderSelections(a.Selections), renderSelections(b.Selections); got != want {
		return &Divergence{
			Path:   path,
			Kind:   MismatchValue,
			Detail: fmt.Sprintf("selection %s vs %s", got, want),
		}
	}
	if a.Operation() != b.Operation() {
		return &Divergence{
			Path:   path,
			Kind:   MismatchValue,
			Detail: fmt.Sprintf("operation %q vs %q", a.Operation(), b.Operation()),
		}
	}
	return nil
}

// describeService renders a service name, flagging names the schema does not
// declare. This is the only use the differ has for the schema.
func (w *walker) describeService(name string) string {
	if w.sg != nil {
		if _, ok := w.sg.ServiceByName(name); !ok {
			return fmt.Sprintf("%q (not declared in schema)", name)
		}
	}
	return fmt.Sprintf("%q", name)
}

func renderSelections(set queryplan.SelectionSet) string {
	if len(set) == 0 {
		return "(none)"
	}
	fetch := &queryplan.FetchNode{Selections: set}
	return fetch.Operation()
}
