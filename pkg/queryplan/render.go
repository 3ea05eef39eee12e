package queryplan

import (
	"fmt"
	"strings"
)

// Render produces the canonical, line-oriented textual form of the plan:
// stable field order, two-space indentation, one node or selection per line.
// Two plans are considered structurally identical exactly when their Render
// outputs are byte-identical, so this is both the human-readable display and
// the basis of the differ.
func (p *Plan) Render() string {
	if p == nil || p.Node == nil {
		return "QueryPlan {}\n"
	}
	var b strings.Builder
	b.WriteString("QueryPlan {\n")
	renderNode(&b, p.Node, 1)
	b.WriteString("\n}\n")
	return b.String()
}

// String is Render; it lets a Plan drop straight into fmt verbs.
func (p *Plan) String() string {
	return p.Render()
}

func renderNode(b *strings.Builder, n Node, depth int) {
	ind := indent(depth)
	switch node := n.(type) {
	case *SequenceNode:
		b.WriteString(ind + "Sequence {\n")
		renderChildren(b, node.Nodes, depth+1)
		b.WriteString(ind + "}")
	case *ParallelNode:
		b.WriteString(ind + "Parallel {\n")
		renderChildren(b, node.Nodes, depth+1)
		b.WriteString(ind + "}")
	case *FlattenNode:
		fmt.Fprintf(b, "%sFlatten(path: %q) {\n", ind, strings.Join(node.Path, "."))
		if node.Node != nil {
			renderNode(b, node.Node, depth+1)
			b.WriteString("\n")
		}
		b.WriteString(ind + "}")
	case *FetchNode:
		fmt.Fprintf(b, "%sFetch(service: %q) {\n", ind, node.ServiceName)
		if len(node.Requires) > 0 {
			renderSelectionSet(b, node.Requires, depth+1)
			b.WriteString(" =>\n")
		}
		renderSelectionSet(b, node.Selections, depth+1)
		b.WriteString("\n" + ind + "}")
	default:
		// Unreachable for trees built by this module; keep the render
		// total so a foreign Node implementation is still visible.
		fmt.Fprintf(b, "%s%s {}", ind, n.Kind())
	}
}

func renderChildren(b *strings.Builder, nodes []Node, depth int) {
	for i, child := range nodes {
		renderNode(b, child, depth)
		if i < len(nodes)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
}

func renderSelectionSet(b *strings.Builder, set SelectionSet, depth int) {
	ind := indent(depth)
	b.WriteString(ind + "{\n")
	renderSelections(b, set, depth+1)
	b.WriteString(ind + "}")
}

func renderSelections(b *strings.Builder, set SelectionSet, depth int) {
	ind := indent(depth)
	for _, sel := range set {
		if sel.TypeCondition != "" {
			b.WriteString(ind + "... on " + sel.TypeCondition + " {\n")
			renderSelections(b, sel.Selections, depth+1)
			b.WriteString(ind + "}\n")
			continue
		}
		if len(sel.Selections) > 0 {
			b.WriteString(ind + sel.Name + " {\n")
			renderSelections(b, sel.Selections, depth+1)
			b.WriteString(ind + "}\n")
			continue
		}
		b.WriteString(ind + sel.Name + "\n")
	}
}

// Operation renders the subgraph operation document a fetch sends, on one
// line. Entity fetches take the _entities form with a representations
// variable; root fetches are plain operations.
func (f *FetchNode) Operation() string {
	kind := f.OperationKind
	if kind == "" {
		kind = "query"
	}
	if len(f.Requires) > 0 {
		return fmt.Sprintf(
			"%s($representations: [_Any!]!) { _entities(representations: $representations) %s }",
			kind, compactSelectionSet(f.Selections),
		)
	}
	if kind == "query" {
		return compactSelectionSet(f.Selections)
	}
	return kind + " " + compactSelectionSet(f.Selections)
}

func compactSelectionSet(set SelectionSet) string {
	var parts []string
	for _, sel := range set {
		parts = append(parts, compactSelection(sel))
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

func compactSelection(sel Selection) string {
	if sel.TypeCondition != "" {
		return "... on " + sel.TypeCondition + " " + compactSelectionSet(sel.Selections)
	}
	if len(sel.Selections) > 0 {
		return sel.Name + " " + compactSelectionSet(sel.Selections)
	}
	return sel.Name
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
