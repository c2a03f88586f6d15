package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalog = []string{"Grammar Check", "Tone Analysis", "Logic Flow", "Argument Check"}

func newLoadedStore() *Store {
	s := NewStore()
	s.SetCatalog(catalog)
	return s
}

func assertSubset(t *testing.T, s *Store) {
	t.Helper()
	for _, tool := range s.Selected() {
		assert.True(t, s.IsAllowed(tool), "selected tool %q is not allowed", tool)
	}
}

func TestStore_NothingAllowedInitially(t *testing.T) {
	s := newLoadedStore()
	assert.False(t, s.Toggle("Grammar Check"))
	assert.Empty(t, s.Selected())
}

func TestStore_ToggleTwiceRestores(t *testing.T) {
	s := newLoadedStore()
	s.SetAllowed(catalog)

	for _, tool := range catalog {
		before := s.IsSelected(tool)
		require.True(t, s.Toggle(tool))
		assert.NotEqual(t, before, s.IsSelected(tool))
		require.True(t, s.Toggle(tool))
		assert.Equal(t, before, s.IsSelected(tool))
	}
}

func TestStore_SelectionOrder(t *testing.T) {
	s := newLoadedStore()
	s.SetAllowed(catalog)

	s.Toggle("Logic Flow")
	s.Toggle("Grammar Check")
	s.Toggle("Argument Check")
	s.Toggle("Grammar Check")
	s.Toggle("Grammar Check")

	assert.Equal(t, []string{"Logic Flow", "Argument Check", "Grammar Check"}, s.Selected())
}

func TestStore_SetAllowedDeselects(t *testing.T) {
	s := newLoadedStore()
	s.SetAllowed(catalog)
	s.Toggle("Grammar Check")
	s.Toggle("Logic Flow")
	s.Toggle("Tone Analysis")

	dropped := s.SetAllowed([]string{"Logic Flow", "Argument Check"})

	assert.ElementsMatch(t, []string{"Grammar Check", "Tone Analysis"}, dropped)
	assert.Equal(t, []string{"Logic Flow"}, s.Selected())
	assertSubset(t, s)
}

func TestStore_SubsetInvariantAcrossSequences(t *testing.T) {
	sequences := [][]string{
		catalog,
		{},
		{"Logic Flow"},
		{"Argument Check", "Tone Analysis"},
		catalog,
		nil,
	}

	s := newLoadedStore()
	for _, allowed := range sequences {
		for _, tool := range catalog {
			s.Toggle(tool)
		}
		s.SetAllowed(allowed)
		assertSubset(t, s)
	}
}

func TestStore_SetAllowedIgnoresUnknownTools(t *testing.T) {
	s := newLoadedStore()
	s.SetAllowed([]string{"Logic Flow", "Time Machine"})

	assert.Equal(t, []string{"Logic Flow"}, s.Allowed())
	assert.False(t, s.Toggle("Time Machine"))
}

func TestStore_WithoutCatalogAcceptsAllowed(t *testing.T) {
	s := NewStore()
	s.SetAllowed([]string{"b", "a"})
	assert.Equal(t, []string{"a", "b"}, s.Allowed())
	assert.True(t, s.Toggle("a"))
}

func TestStore_SetCatalogDedupesAndPrunes(t *testing.T) {
	s := NewStore()
	s.SetCatalog([]string{"A", "B", "A", "C"})
	assert.Equal(t, []string{"A", "B", "C"}, s.Catalog())

	s.SetAllowed([]string{"A", "C"})
	s.Toggle("C")
	s.SetCatalog([]string{"A", "B"})

	assert.Equal(t, []string{"A"}, s.Allowed())
	assert.Empty(t, s.Selected())
}

func TestStore_States(t *testing.T) {
	s := newLoadedStore()
	s.SetAllowed([]string{"Tone Analysis", "Logic Flow"})
	s.Toggle("Logic Flow")

	assert.Equal(t, []ToolState{
		{Name: "Grammar Check"},
		{Name: "Tone Analysis", Allowed: true},
		{Name: "Logic Flow", Allowed: true, Selected: true},
		{Name: "Argument Check"},
	}, s.States())
}

func TestStore_SelectedReturnsCopy(t *testing.T) {
	s := newLoadedStore()
	s.SetAllowed(catalog)
	s.Toggle("Logic Flow")

	got := s.Selected()
	got[0] = "changed"
	assert.Equal(t, []string{"Logic Flow"}, s.Selected())
}

func TestStore_SelectedNeverNil(t *testing.T) {
	s := newLoadedStore()
	s.SetAllowed([]string{"Logic Flow"})
	before := s.Selected()
	require.NotNil(t, before)

	require.True(t, s.Toggle("Logic Flow"))
	require.True(t, s.Toggle("Logic Flow"))
	assert.Equal(t, before, s.Selected())
	assert.Equal(t, []string{}, s.Selected())
}

func TestStore_AllowedInCatalogOrder(t *testing.T) {
	s := newLoadedStore()
	s.SetAllowed([]string{"Argument Check", "Unknown Tool", "Grammar Check"})
	assert.Equal(t, []string{"Grammar Check", "Argument Check"}, s.Allowed())

	bare := NewStore()
	bare.SetAllowed([]string{"b", "a"})
	assert.Equal(t, []string{"a", "b"}, bare.Allowed())
}
