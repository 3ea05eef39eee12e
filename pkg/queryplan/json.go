package queryplan

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The serialized form mirrors the tree one-to-one, discriminated by a "kind"
// field on every node. Decoding is strict about shape: an unknown kind, a
// missing discriminator, or a fetch without a service name is ErrPlanFormat,
// never a silently-empty node.

type planEnvelope struct {
	Kind Kind            `json:"kind"`
	Node json.RawMessage `json:"node,omitempty"`
}

type nodesEnvelope struct {
	Kind  Kind              `json:"kind"`
	Nodes []json.RawMessage `json:"nodes"`
}

type flattenEnvelope struct {
	Kind Kind            `json:"kind"`
	Path []string        `json:"path"`
	Node json.RawMessage `json:"node"`
}

type fetchEnvelope struct {
	Kind           Kind         `json:"kind"`
	ServiceName    string       `json:"serviceName"`
	Requires       SelectionSet `json:"requires,omitempty"`
	Selections     SelectionSet `json:"selections"`
	Operation      string       `json:"operation,omitempty"`
	OperationKind  string       `json:"operationKind"`
	VariableUsages []string     `json:"variableUsages"`
}

// MarshalJSON encodes the plan with kind discriminators on every node.
func (p *Plan) MarshalJSON() ([]byte, error) {
	env := struct {
		Kind Kind `json:"kind"`
		Node Node `json:"node,omitempty"`
	}{Kind: KindQueryPlan, Node: p.Node}
	return json.Marshal(env)
}

// UnmarshalJSON decodes a serialized plan, failing with ErrPlanFormat on any
// structural problem.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var env planEnvelope
	if err := strictUnmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrPlanFormat, err)
	}
	if env.Kind != KindQueryPlan {
		return fmt.Errorf("%w: root kind %q, want %q", ErrPlanFormat, env.Kind, KindQueryPlan)
	}
	if len(env.Node) == 0 || bytes.Equal(env.Node, []byte("null")) {
		p.Node = nil
		return nil
	}
	node, err := decodeNode(env.Node)
	if err != nil {
		return err
	}
	p.Node = node
	return nil
}

func (n *SequenceNode) MarshalJSON() ([]byte, error) {
	return marshalNodes(KindSequence, n.Nodes)
}

func (n *ParallelNode) MarshalJSON() ([]byte, error) {
	return marshalNodes(KindParallel, n.Nodes)
}

func (n *FlattenNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind Kind     `json:"kind"`
		Path []string `json:"path"`
		Node Node     `json:"node"`
	}{Kind: KindFlatten, Path: n.Path, Node: n.Node})
}

func (n *FetchNode) MarshalJSON() ([]byte, error) {
	usages := n.VariableUsages
	if usages == nil {
		usages = []string{}
	}
	kind := n.OperationKind
	if kind == "" {
		kind = "query"
	}
	return json.Marshal(fetchEnvelope{
		Kind:           KindFetch,
		ServiceName:    n.ServiceName,
		Requires:       n.Requires,
		Selections:     n.Selections,
		Operation:      n.Operation(),
		OperationKind:  kind,
		VariableUsages: usages,
	})
}

func marshalNodes(kind Kind, nodes []Node) ([]byte, error) {
	return json.Marshal(struct {
		Kind  Kind   `json:"kind"`
		Nodes []Node `json:"nodes"`
	}{Kind: kind, Nodes: nodes})
}

func decodeNode(raw json.RawMessage) (Node, error) {
	var disc struct {
		Kind Kind `json:"kind"`
	}
	if err := strictUnmarshal(raw, &disc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanFormat, err)
	}

	switch disc.Kind {
	case KindSequence, KindParallel:
		var env nodesEnvelope
		if err := strictUnmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: decoding %s node: %v", ErrPlanFormat, disc.Kind, err)
		}
		children := make([]Node, 0, len(env.Nodes))
		for _, childRaw := range env.Nodes {
			child, err := decodeNode(childRaw)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if disc.Kind == KindSequence {
			return &SequenceNode{Nodes: children}, nil
		}
		return &ParallelNode{Nodes: children}, nil

	case KindFlatten:
		var env flattenEnvelope
		if err := strictUnmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: decoding Flatten node: %v", ErrPlanFormat, err)
		}
		if len(env.Path) == 0 {
			return nil, fmt.Errorf("%w: Flatten node without path", ErrPlanFormat)
		}
		if len(env.Node) == 0 || bytes.Equal(env.Node, []byte("null")) {
			return nil, fmt.Errorf("%w: Flatten node without child", ErrPlanFormat)
		}
		child, err := decodeNode(env.Node)
		if err != nil {
			return nil, err
		}
		return &FlattenNode{Path: env.Path, Node: child}, nil

	case KindFetch:
		var env fetchEnvelope
		if err := strictUnmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: decoding Fetch node: %v", ErrPlanFormat, err)
		}
		if env.ServiceName == "" {
			return nil, fmt.Errorf("%w: Fetch node without serviceName", ErrPlanFormat)
		}
		return &FetchNode{
			ServiceName:    env.ServiceName,
			Requires:       env.Requires,
			Selections:     env.Selections,
			OperationKind:  env.OperationKind,
			VariableUsages: env.VariableUsages,
		}, nil

	case "":
		return nil, fmt.Errorf("%w: node without kind discriminator", ErrPlanFormat)
	default:
		return nil, fmt.Errorf("%w: unknown node kind %q", ErrPlanFormat, disc.Kind)
	}
}

// strictUnmarshal decodes JSON rejecting trailing garbage. Unknown fields are
// tolerated so plans serialized by newer versions still load.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON value")
	}
	return nil
}

// ParsePlan decodes a serialized plan. It accepts either a bare plan tree or
// a full plan-result document (in which case the embedded plan is returned),
// so plans saved by plan-one can be fed straight back to compare-plans.
func ParsePlan(data []byte) (*Plan, error) {
	var probe struct {
		Kind       Kind            `json:"kind"`
		Serialized json.RawMessage `json:"queryPlanSerialized"`
	}
	if err := strictUnmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanFormat, err)
	}
	if probe.Kind == "" && len(probe.Serialized) > 0 {
		data = probe.Serialized
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
