package supergraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Supergraph {
	t.Helper()
	sdl, err := os.ReadFile(filepath.Join("testdata", "progressive.graphql"))
	require.NoError(t, err)
	sg, err := Parse(string(sdl))
	require.NoError(t, err)
	return sg
}

func TestParse_Services(t *testing.T) {
	sg := loadFixture(t)

	services := sg.Services()
	require.Len(t, services, 4)

	// join__Graph declaration order.
	assert.Equal(t, []string{"A", "B", "ENTRYPOINT", "MONOLITH"}, []string{
		services[0].EnumValue, services[1].EnumValue, services[2].EnumValue, services[3].EnumValue,
	})

	svc, ok := sg.ServiceByEnum("MONOLITH")
	require.True(t, ok)
	assert.Equal(t, "monolith", svc.Name)
	assert.Equal(t, "http://localhost:4003/graphql", svc.URL)

	byName, ok := sg.ServiceByName("entrypoint")
	require.True(t, ok)
	assert.Equal(t, "ENTRYPOINT", byName.EnumValue)
}

func TestParse_TypeMetadata(t *testing.T) {
	sg := loadFixture(t)

	ti := sg.Type("T")
	require.NotNil(t, ti)
	assert.Equal(t, "id", ti.Keys["ENTRYPOINT"])
	assert.Equal(t, "id", ti.Keys["MONOLITH"])
	assert.ElementsMatch(t, []string{"A", "B", "ENTRYPOINT", "MONOLITH"}, ti.Graphs)

	data1 := ti.Fields["data1"]
	require.NotNil(t, data1)
	require.Len(t, data1.Candidates, 2)
	assert.Equal(t, "A", data1.Candidates[0].Graph)
	assert.Equal(t, "monolith", data1.Candidates[0].Override)
	assert.Equal(t, "percent(50)", data1.Candidates[0].OverrideLabel)
	assert.Equal(t, "MONOLITH", data1.Candidates[1].Graph)
	assert.Empty(t, data1.Candidates[1].Override)

	// id carries no @join__field, so it is a shared field.
	assert.Nil(t, ti.Fields["id"])
}

func TestOverrideLabels_FirstSeenOrder(t *testing.T) {
	sg := loadFixture(t)
	assert.Equal(t, []string{"percent(50)", "percent(90)"}, sg.OverrideLabels())
}

func TestOverrideLabels_StableAcrossCalls(t *testing.T) {
	sg := loadFixture(t)
	assert.Equal(t, sg.OverrideLabels(), sg.OverrideLabels())

	// Re-parsing the same document yields the same catalog.
	sdl, err := os.ReadFile(filepath.Join("testdata", "progressive.graphql"))
	require.NoError(t, err)
	again, err := Parse(string(sdl))
	require.NoError(t, err)
	assert.Equal(t, sg.OverrideLabels(), again.OverrideLabels())
}

func TestOverrideLabels_DuplicatesCollapse(t *testing.T) {
	sg := loadFixture(t)
	seen := make(map[string]int)
	for _, label := range sg.OverrideLabels() {
		seen[label]++
	}
	for label, count := range seen {
		assert.Equal(t, 1, count, "label %q appears %d times", label, count)
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("type Query {")
	require.Error(t, err)
	assert.True(t, IsSchemaParseErr(err))
}

func TestParse_NotASchema(t *testing.T) {
	_, err := Parse("query { t { id } }")
	require.Error(t, err)
	assert.True(t, IsSchemaParseErr(err))
}
