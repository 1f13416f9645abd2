package recipe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStoreFromJSON(t *testing.T) {
	path := writeFile(t, "recipes.json", `[
		{"id": 1, "name": "Omelette", "ingredients": ["Egg", "milk", "cheese"], "difficulty": "easy", "prep_time_mins": 10, "servings": 1},
		{"id": 2, "name": "Fried Rice", "ingredients": ["rice", "egg", "onion"]}
	]`)

	s := LoadStore(path)

	assert.Equal(t, path, s.Source())
	assert.Equal(t, 2, s.Len())
	r, ok := s.FindByID(1)
	require.True(t, ok)
	assert.Equal(t, "Omelette", r.Name)
	assert.Equal(t, 10, r.PrepTimeMins)
}

func TestLoadStoreAcceptsRecipeIDAlias(t *testing.T) {
	path := writeFile(t, "converted.json", `[{"recipe_id": 42, "name": "Banana Bread", "ingredients": ["banana", "flour"]}]`)

	s := LoadStore(path)

	r, ok := s.FindByID(42)
	require.True(t, ok)
	assert.Equal(t, "Banana Bread", r.Name)
}

func TestLoadStoreFromYAML(t *testing.T) {
	path := writeFile(t, "recipes.yaml", `
- id: 7
  name: Caprese
  ingredients: [tomato, cheese]
  servings: 2
- id: 8
  name: Guacamole
  ingredients:
    - avocado
    - lemon
`)

	s := LoadStore(path)

	assert.Equal(t, 2, s.Len())
	r, ok := s.FindByID(8)
	require.True(t, ok)
	assert.Equal(t, []string{"avocado", "lemon"}, r.Ingredients)
}

func TestLoadStoreFallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"missing file", filepath.Join(t.TempDir(), "nope.json")},
		{"malformed json", writeFile(t, "bad.json", `{"id": 1,`)},
		{"wrong shape", writeFile(t, "object.json", `{"id": 1, "name": "x"}`)},
		{"no valid entries", writeFile(t, "invalid.json", `[{"id": 0, "name": "x"}, {"name": "y"}]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := LoadStore(tt.path)

			assert.Equal(t, SourceDefault, s.Source())
			assert.Equal(t, len(DefaultRecipes()), s.Len())
		})
	}
}

func TestNewStoreSkipsDuplicateIDs(t *testing.T) {
	s := NewStore([]Recipe{
		{ID: 1, Name: "first", Ingredients: []string{"egg"}},
		{ID: 1, Name: "second", Ingredients: []string{"milk"}},
		{ID: -3, Name: "negative"},
	})

	assert.Equal(t, 1, s.Len())
	r, _ := s.FindByID(1)
	assert.Equal(t, "first", r.Name)
}

func TestStoreFindByIDNotFound(t *testing.T) {
	s := NewStore(DefaultRecipes())

	_, ok := s.FindByID(999)
	assert.False(t, ok)
}

func TestStoreSearch(t *testing.T) {
	s := NewStore(DefaultRecipes())

	byName := s.Search("SALAD")
	require.Len(t, byName, 2)
	assert.Equal(t, "Simple Salad", byName[0].Name)
	assert.Equal(t, "Carrot Salad", byName[1].Name)

	byIngredient := s.Search("garlic")
	names := make([]string, 0, len(byIngredient))
	for _, r := range byIngredient {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Tomato Pasta", "Garlic Bread"}, names)

	// substring on ingredients also matches "bell pepper"
	assert.Len(t, s.Search("pepper"), 3)

	assert.Empty(t, s.Search("durian"))
}

func TestStoreAllIngredients(t *testing.T) {
	s := NewStore([]Recipe{
		{ID: 1, Name: "a", Ingredients: []string{"Tomato", "onion"}},
		{ID: 2, Name: "b", Ingredients: []string{"tomato", "Basil"}},
	})

	assert.Equal(t, []string{"basil", "onion", "tomato"}, s.AllIngredients())
}

func TestStoreList(t *testing.T) {
	s := NewStore(DefaultRecipes())

	assert.Len(t, s.List(3), 3)
	assert.Equal(t, 1, s.List(3)[0].ID)
	assert.Len(t, s.List(0), 10)
	assert.Len(t, s.List(100), 10)
}

func TestDefaultRecipesAreValid(t *testing.T) {
	defaults := DefaultRecipes()
	require.Len(t, defaults, 10)

	seen := map[int]bool{}
	for _, r := range defaults {
		assert.Positive(t, r.ID)
		assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
		seen[r.ID] = true
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.Ingredients)
	}
}

func TestBundledCatalogLoads(t *testing.T) {
	path := filepath.Join("..", "..", "..", "data", "recipes.json")

	s := LoadStore(path)

	require.Equal(t, path, s.Source())
	assert.Equal(t, 24, s.Len())
	for _, r := range s.Recipes() {
		assert.NotEmpty(t, r.Ingredients, r.Name)
	}
}
