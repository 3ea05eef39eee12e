// Package supergraph parses composed supergraph SDL into the model the
// planner and matrix builder work from.
//
// This package wraps the gqlparser library to convert a supergraph schema
// document into planmatrix's internal representation. It isolates the GraphQL
// parser dependency from the combination and diff machinery.
//
// # What gets extracted
//
// A composed supergraph carries routing metadata in join__ directives:
//
//   - The join__Graph enum declares every subgraph service with its name and
//     routing URL (@join__graph).
//   - @join__type on an object type declares which services resolve the type
//     and the key fields used to jump between them.
//   - @join__field on a field declares which service owns the field, and for
//     migrations, which service it overrides and under which progressive
//     override label (@join__field(override:, overrideLabel:)).
//
// The override labels found during a single document traversal form the label
// catalog: an ordered, de-duplicated list in first-seen order. The catalog is
// computed once at parse time, so repeated calls on the same Supergraph return
// the same slice contents.
package supergraph

import (
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ErrSchemaParse is returned when the supergraph SDL cannot be parsed or
// does not validate as a schema document.
var ErrSchemaParse = errors.New("planmatrix/supergraph: schema parse failure")

// IsSchemaParseErr returns true if err is or wraps ErrSchemaParse.
func IsSchemaParseErr(err error) bool {
	return errors.Is(err, ErrSchemaParse)
}

// Service describes one subgraph declared in the join__Graph enum.
type Service struct {
	// EnumValue is the join__Graph enum value, e.g. "MONOLITH".
	EnumValue string
	// Name is the routing name from @join__graph(name:), e.g. "monolith".
	// Override targets in @join__field(override:) refer to this name.
	Name string
	// URL is the routing URL from @join__graph(url:).
	URL string
}

// FieldCandidate is one @join__field entry on a field. A field carries one
// candidate per service that can resolve it; during a progressive migration
// the overriding service's candidate names the service it takes the field
// from and the label gating the takeover.
type FieldCandidate struct {
	// Graph is the join__Graph enum value of the candidate service.
	Graph string
	// Override is the routing name of the service this candidate overrides,
	// empty when the candidate is not an override.
	Override string
	// OverrideLabel gates the override; empty means unconditional.
	OverrideLabel string
	// External marks a field the service only references, never resolves.
	External bool
}

// FieldInfo holds the resolution candidates for one field of one type.
type FieldInfo struct {
	Name       string
	Candidates []FieldCandidate
}

// TypeInfo holds the per-service join metadata for one object type.
type TypeInfo struct {
	Name string
	// Keys maps join__Graph enum value to the key field set declared by
	// @join__type(key:) for that service, e.g. "id".
	Keys map[string]string
	// Graphs lists the services resolving the type, in declaration order.
	Graphs []string
	// Fields maps field name to its resolution candidates.
	Fields map[string]*FieldInfo
}

// Supergraph is the parsed, validated supergraph schema together with the
// extracted routing model. Values are immutable after Parse.
type Supergraph struct {
	schema         *ast.Schema
	services       []Service
	servicesByEnum map[string]Service
	servicesByName map[string]Service
	types          map[string]*TypeInfo
	labels         []string
}

// Parse parses and validates supergraph SDL. The source name is used in
// parser diagnostics only.
func Parse(sdl string) (*Supergraph, error) {
	source := &ast.Source{Name: "supergraph.graphql", Input: sdl}

	// The validated schema drives operation validation later; the raw
	// document preserves declaration order for the label catalog.
	schema, err := gqlparser.LoadSchema(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaParse, err)
	}
	doc, perr := parser.ParseSchema(source)
	if perr != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaParse, perr)
	}

	sg := &Supergraph{
		schema:         schema,
		servicesByEnum: make(map[string]Service),
		servicesByName: make(map[string]Service),
		types:          make(map[string]*TypeInfo),
	}
	sg.extract(doc)
	return sg, nil
}

// extract walks the schema document in declaration order and fills the
// service catalog, type tables, and label catalog.
func (sg *Supergraph) extract(doc *ast.SchemaDocument) {
	seenLabels := make(map[string]bool)

	defs := make([]*ast.Definition, 0, len(doc.Definitions)+len(doc.Extensions))
	defs = append(defs, doc.Definitions...)
	defs = append(defs, doc.Extensions...)

	for _, def := range defs {
		if def.Kind == ast.Enum && def.Name == "join__Graph" {
			for _, ev := range def.EnumValues {
				d := ev.Directives.ForName("join__graph")
				if d == nil {
					continue
				}
				svc := Service{
					EnumValue: ev.Name,
					Name:      argString(d, "name"),
					URL:       argString(d, "url"),
				}
				sg.services = append(sg.services, svc)
				sg.servicesByEnum[svc.EnumValue] = svc
				sg.servicesByName[svc.Name] = svc
			}
			continue
		}

		if def.Kind != ast.Object && def.Kind != ast.Interface {
			continue
		}

		ti := sg.typeInfo(def.Name)
		for _, d := range def.Directives {
			if d.Name != "join__type" {
				continue
			}
			graph := argString(d, "graph")
			if graph == "" {
				continue
			}
			ti.Graphs = append(ti.Graphs, graph)
			if key := argString(d, "key"); key != "" {
				ti.Keys[graph] = key
			}
		}

		for _, field := range def.Fields {
			fi := &FieldInfo{Name: field.Name}
			for _, d := range field.Directives {
				if d.Name != "join__field" {
					continue
				}
				cand := FieldCandidate{
					Graph:         argString(d, "graph"),
					Override:      argString(d, "override"),
					OverrideLabel: argString(d, "overrideLabel"),
					External:      argBool(d, "external"),
				}
				fi.Candidates = append(fi.Candidates, cand)
				if cand.OverrideLabel != "" && !seenLabels[cand.OverrideLabel] {
					seenLabels[cand.OverrideLabel] = true
					sg.labels = append(sg.labels, cand.OverrideLabel)
				}
			}
			if len(fi.Candidates) > 0 {
				ti.Fields[field.Name] = fi
			}
		}
	}
}

func (sg *Supergraph) typeInfo(name string) *TypeInfo {
	ti, ok := sg.types[name]
	if !ok {
		ti = &TypeInfo{
			Name:   name,
			Keys:   make(map[string]string),
			Fields: make(map[string]*FieldInfo),
		}
		sg.types[name] = ti
	}
	return ti
}

// Schema returns the validated schema, used to validate operations against.
func (sg *Supergraph) Schema() *ast.Schema {
	return sg.schema
}

// Services returns the subgraph services in join__Graph declaration order.
func (sg *Supergraph) Services() []Service {
	return sg.services
}

// ServiceByEnum resolves a join__Graph enum value to its service.
func (sg *Supergraph) ServiceByEnum(enumValue string) (Service, bool) {
	svc, ok := sg.servicesByEnum[enumValue]
	return svc, ok
}

// ServiceByName resolves a routing name (as used by override targets) to its
// service.
func (sg *Supergraph) ServiceByName(name string) (Service, bool) {
	svc, ok := sg.servicesByName[name]
	return svc, ok
}

// Type returns the join metadata for a type, or nil when the type carries no
// join__type directives.
func (sg *Supergraph) Type(name string) *TypeInfo {
	return sg.types[name]
}

// OverrideLabels returns the label catalog: every distinct overrideLabel in
// the schema, in first-seen document order. The returned slice is shared;
// callers must not modify it.
func (sg *Supergraph) OverrideLabels() []string {
	return sg.labels
}

// argString returns the raw value of a string or enum directive argument,
// or "" when absent.
func argString(d *ast.Directive, name string) string {
	arg := d.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return ""
	}
	return arg.Value.Raw
}

// argBool returns a boolean directive argument, or false when absent.
func argBool(d *ast.Directive, name string) bool {
	arg := d.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return false
	}
	return arg.Value.Raw == "true"
}
