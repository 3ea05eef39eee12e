package planner

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/planmatrix/planmatrix/pkg/queryplan"
	"github.com/planmatrix/planmatrix/pkg/supergraph"
)

// build holds the mutable state of one BuildQueryPlan call. Nothing here is
// shared between calls.
type build struct {
	planner *Planner
	enabled map[string]bool
	fetches int
	jumps   int
}

// jump is a deferred entity fetch: fields of typeName found at path that a
// different service must resolve.
type jump struct {
	path     []string
	typeName string
	graph    string
	fields   []*ast.Field
}

// ownerGroup collects adjacent root fields owned by the same service.
type ownerGroup struct {
	graph  string
	fields []*ast.Field
}

// groupByOwner partitions fields by owning service, preserving first-seen
// service order so repeated builds group identically.
func (b *build) groupByOwner(currentGraph, typeName string, fields []*ast.Field) ([]ownerGroup, error) {
	var groups []ownerGroup
	index := make(map[string]int)
	for _, f := range fields {
		owner, err := b.resolveOwner(currentGraph, typeName, f.Name)
		if err != nil {
			return nil, err
		}
		i, ok := index[owner]
		if !ok {
			i = len(groups)
			index[owner] = i
			groups = append(groups, ownerGroup{graph: owner})
		}
		groups[i].fields = append(groups[i].fields, f)
	}
	return groups, nil
}

// resolveOwner picks the service (join__Graph enum value) that resolves
// typeName.fieldName under the build's enabled override labels.
//
// Resolution order: an override candidate whose label is enabled (or that has
// no label) wins; otherwise the non-override candidate; otherwise the
// override target looked up by routing name. Fields with no @join__field
// metadata belong to whichever service is already fetching the type.
func (b *build) resolveOwner(currentGraph, typeName, fieldName string) (string, error) {
	sg := b.planner.sg

	if currentGraph != "" && strings.HasPrefix(fieldName, "__") {
		return currentGraph, nil
	}

	ti := sg.Type(typeName)
	if ti == nil {
		// Type carries no join metadata: value type, resolved in place.
		return currentGraph, nil
	}

	fi := ti.Fields[fieldName]
	if fi == nil {
		// Shared field. Stay local when the current service resolves the
		// type, otherwise the type's first declaring service owns it.
		if currentGraph != "" && typeHasGraph(ti, currentGraph) {
			return currentGraph, nil
		}
		if len(ti.Graphs) > 0 {
			return ti.Graphs[0], nil
		}
		return "", fmt.Errorf("%w: no service resolves %s.%s", ErrPlanner, typeName, fieldName)
	}

	var base []supergraph.FieldCandidate
	var overridden string
	for _, cand := range fi.Candidates {
		if cand.External {
			continue
		}
		if cand.Override == "" {
			base = append(base, cand)
			continue
		}
		overridden = cand.Override
		if cand.OverrideLabel == "" || b.enabled[cand.OverrideLabel] {
			return cand.Graph, nil
		}
	}

	// No active override: prefer staying on the current service, then the
	// first declared candidate.
	for _, cand := range base {
		if cand.Graph == currentGraph {
			return cand.Graph, nil
		}
	}
	if len(base) > 0 {
		return base[0].Graph, nil
	}
	if overridden != "" {
		if svc, ok := sg.ServiceByName(overridden); ok {
			return svc.EnumValue, nil
		}
		return "", fmt.Errorf("%w: %s.%s overrides unknown service %q",
			ErrPlanner, typeName, fieldName, overridden)
	}
	return "", fmt.Errorf("%w: no service resolves %s.%s", ErrPlanner, typeName, fieldName)
}

// buildSelections renders the selection set graph fetches for fields of
// typeName, and returns the jumps for sub-fields other services own. path is
// the response path to the fields (nil at the root).
func (b *build) buildSelections(graph, typeName string, fields []*ast.Field, path []string) (queryplan.SelectionSet, []jump, error) {
	var set queryplan.SelectionSet
	var jumps []jump

	for _, f := range fields {
		if len(f.SelectionSet) == 0 {
			set = append(set, queryplan.Field(f.Alias))
			continue
		}

		childType := fieldTypeName(f)
		childPath := appendPath(path, f.Alias)

		// Fetch merging is an optimizer concern and deliberately absent:
		// every remote field becomes its own jump, so the same field sits
		// at the same structural position in every combination's plan and
		// plans can be compared position-by-position across combinations.
		var local []*ast.Field
		type remoteField struct {
			owner string
			field *ast.Field
		}
		var remote []remoteField
		for _, sub := range fieldsOf(f.SelectionSet) {
			owner, err := b.resolveOwner(graph, childType, sub.Name)
			if err != nil {
				return nil, nil, err
			}
			if owner == graph {
				local = append(local, sub)
				continue
			}
			remote = append(remote, remoteField{owner: owner, field: sub})
		}

		childSet, childJumps, err := b.buildSelections(graph, childType, local, childPath)
		if err != nil {
			return nil, nil, err
		}

		// When another service continues from this entity, the current
		// fetch must return the representation ingredients.
		if len(remote) > 0 {
			keys, err := b.keyFields(graph, childType)
			if err != nil {
				return nil, nil, err
			}
			childSet = prependKeys(childSet, keys)
		}

		set = append(set, queryplan.Selection{Name: f.Alias, Selections: childSet})
		jumps = append(jumps, childJumps...)
		for _, r := range remote {
			if err := b.countJump(); err != nil {
				return nil, nil, err
			}
			jumps = append(jumps, jump{
				path:     childPath,
				typeName: childType,
				graph:    r.owner,
				fields:   []*ast.Field{r.field},
			})
		}
	}
	return set, jumps, nil
}

// representation builds the selection an entity fetch sends to identify the
// entities it resolves: the type condition with __typename plus key fields.
func (b *build) representation(graph, typeName string) (queryplan.SelectionSet, error) {
	keys, err := b.keyFields(graph, typeName)
	if err != nil {
		return nil, err
	}
	sels := make([]queryplan.Selection, 0, len(keys)+1)
	sels = append(sels, queryplan.Field("__typename"))
	for _, k := range keys {
		sels = append(sels, queryplan.Field(k))
	}
	return queryplan.SelectionSet{queryplan.InlineFragment(typeName, sels...)}, nil
}

// keyFields returns the key fields of typeName as declared for graph, falling
// back to any service's key when graph declares none.
func (b *build) keyFields(graph, typeName string) ([]string, error) {
	ti := b.planner.sg.Type(typeName)
	if ti == nil {
		return nil, fmt.Errorf("%w: type %s is not an entity", ErrPlanner, typeName)
	}
	key := ti.Keys[graph]
	if key == "" {
		for _, g := range ti.Graphs {
			if ti.Keys[g] != "" {
				key = ti.Keys[g]
				break
			}
		}
	}
	if key == "" {
		return nil, fmt.Errorf("%w: type %s has no key fields", ErrPlanner, typeName)
	}
	return strings.Fields(key), nil
}

// fetchNode assembles one Fetch and enforces the evaluated-plans budget.
func (b *build) fetchNode(graph string, requires queryplan.SelectionSet, typeName string, selections queryplan.SelectionSet, operationKind string) queryplan.Node {
	b.fetches++

	name := graph
	if svc, ok := b.planner.sg.ServiceByEnum(graph); ok {
		name = svc.Name
	}

	fetch := &queryplan.FetchNode{
		ServiceName:   name,
		OperationKind: operationKind,
	}
	if requires != nil {
		fetch.Requires = requires
		fetch.Selections = queryplan.SelectionSet{
			queryplan.InlineFragment(typeName, selections...),
		}
		fetch.VariableUsages = []string{"representations"}
	} else {
		fetch.Selections = selections
	}
	return fetch
}

// countJump enforces the per-build paths limit.
func (b *build) countJump() error {
	b.jumps++
	if limit := b.planner.cfg.PathsLimit; limit > 0 && b.jumps > limit {
		return fmt.Errorf("%w: paths limit exceeded (%d > %d)", ErrPlanner, b.jumps, limit)
	}
	return nil
}

func typeHasGraph(ti *supergraph.TypeInfo, graph string) bool {
	for _, g := range ti.Graphs {
		if g == graph {
			return true
		}
	}
	return false
}

func fieldTypeName(f *ast.Field) string {
	if f.Definition == nil || f.Definition.Type == nil {
		return ""
	}
	return f.Definition.Type.Name()
}

func appendPath(path []string, elem string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, elem)
}

func prependKeys(set queryplan.SelectionSet, keys []string) queryplan.SelectionSet {
	out := make(queryplan.SelectionSet, 0, len(set)+len(keys)+1)
	out = append(out, queryplan.Field("__typename"))
	for _, k := range keys {
		out = append(out, queryplan.Field(k))
	}
	for _, sel := range set {
		if sel.Name == "__typename" || containsName(keys, sel.Name) {
			continue
		}
		out = append(out, sel)
	}
	return out
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
