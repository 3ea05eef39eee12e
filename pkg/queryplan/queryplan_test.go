package queryplan

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samplePlan builds the sequence-then-parallel-flatten shape produced for a
// progressively overridden entity type.
func samplePlan() *Plan {
	return &Plan{
		Node: &SequenceNode{
			Nodes: []Node{
				&FetchNode{
					ServiceName: "entrypoint",
					Selections: SelectionSet{
						Field("t", Field("__typename"), Field("id")),
					},
				},
				&ParallelNode{
					Nodes: []Node{
						&FlattenNode{
							Path: []string{"t"},
							Node: &FetchNode{
								ServiceName:    "monolith",
								Requires:       SelectionSet{InlineFragment("T", Field("__typename"), Field("id"))},
								Selections:     SelectionSet{InlineFragment("T", Field("data1"))},
								VariableUsages: []string{"representations"},
							},
						},
						&FlattenNode{
							Path: []string{"t"},
							Node: &FetchNode{
								ServiceName:    "B",
								Requires:       SelectionSet{InlineFragment("T", Field("__typename"), Field("id"))},
								Selections:     SelectionSet{InlineFragment("T", Field("data2"))},
								VariableUsages: []string{"representations"},
							},
						},
					},
				},
			},
		},
	}
}

func TestRender_Canonical(t *testing.T) {
	want := `QueryPlan {
  Sequence {
    Fetch(service: "entrypoint") {
      {
        t {
          __typename
          id
        }
      }
    },
    Parallel {
      Flatten(path: "t") {
        Fetch(service: "monolith") {
          {
            ... on T {
              __typename
              id
            }
          } =>
          {
            ... on T {
              data1
            }
          }
        }
      },
      Flatten(path: "t") {
        Fetch(service: "B") {
          {
            ... on T {
              __typename
              id
            }
          } =>
          {
            ... on T {
              data2
            }
          }
        }
      }
    }
  }
}
`
	assert.Equal(t, want, samplePlan().Render())
}

func TestRender_Deterministic(t *testing.T) {
	p := samplePlan()
	assert.Equal(t, p.Render(), p.Render())
}

func TestRender_EmptyPlan(t *testing.T) {
	assert.Equal(t, "QueryPlan {}\n", (&Plan{}).Render())
	assert.Equal(t, "QueryPlan {}\n", (*Plan)(nil).Render())
}

func TestFetchOperation(t *testing.T) {
	root := &FetchNode{
		ServiceName: "entrypoint",
		Selections:  SelectionSet{Field("t", Field("__typename"), Field("id"))},
	}
	assert.Equal(t, "{ t { __typename id } }", root.Operation())

	entity := &FetchNode{
		ServiceName: "B",
		Requires:    SelectionSet{InlineFragment("T", Field("__typename"), Field("id"))},
		Selections:  SelectionSet{InlineFragment("T", Field("data2"))},
	}
	assert.Equal(t,
		"query($representations: [_Any!]!) { _entities(representations: $representations) { ... on T { data2 } } }",
		entity.Operation())
}

func TestJSON_RoundTrip(t *testing.T) {
	p := samplePlan()
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got Plan
	require.NoError(t, json.Unmarshal(data, &got))

	if diff := cmp.Diff(p.Render(), got.Render()); diff != "" {
		t.Fatalf("round-tripped plan renders differently (-want +got):\n%s", diff)
	}
}

func TestParsePlan_AcceptsPlanResultDocument(t *testing.T) {
	inner, err := json.Marshal(samplePlan())
	require.NoError(t, err)
	doc := []byte(`{"queryPlanConfig":{"overrideConditions":[]},"queryPlanDisplay":"","queryPlanSerialized":` + string(inner) + `}`)

	p, err := ParsePlan(doc)
	require.NoError(t, err)
	assert.Equal(t, samplePlan().Render(), p.Render())
}

func TestUnmarshal_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":           `{"kind": "QueryPlan",`,
		"wrong root kind":    `{"kind": "Sequence", "nodes": []}`,
		"unknown node kind":  `{"kind": "QueryPlan", "node": {"kind": "Teleport"}}`,
		"missing kind":       `{"kind": "QueryPlan", "node": {"nodes": []}}`,
		"fetch w/o service":  `{"kind": "QueryPlan", "node": {"kind": "Fetch", "selections": []}}`,
		"flatten w/o path":   `{"kind": "QueryPlan", "node": {"kind": "Flatten", "node": {"kind": "Fetch", "serviceName": "a"}}}`,
		"flatten w/o child":  `{"kind": "QueryPlan", "node": {"kind": "Flatten", "path": ["t"]}}`,
		"nested bad child":   `{"kind": "QueryPlan", "node": {"kind": "Sequence", "nodes": [{"kind": "Nope"}]}}`,
		"array not object":   `[1, 2, 3]`,
		"trailing garbage":   `{"kind": "QueryPlan"} tail`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlan([]byte(input))
			require.Error(t, err)
			assert.True(t, IsPlanFormatErr(err), "want ErrPlanFormat, got %v", err)
		})
	}
}

func TestUnmarshal_EmptyPlan(t *testing.T) {
	p, err := ParsePlan([]byte(`{"kind": "QueryPlan"}`))
	require.NoError(t, err)
	assert.Nil(t, p.Node)
}
