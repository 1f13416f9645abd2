package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fruitMatcher() *Matcher {
	return NewMatcher(NewStore([]Recipe{
		{ID: 1, Name: "Fruit Bowl", Ingredients: []string{"apple", "banana", "orange"}},
	}))
}

func TestRecommendFullMatch(t *testing.T) {
	got := fruitMatcher().Recommend([]string{"apple", "banana", "orange"}, 5, 1)

	require.Len(t, got, 1)
	r := got[0]
	assert.Equal(t, 3, r.MatchCount)
	assert.Equal(t, 0, r.MissingCount)
	assert.InDelta(t, 100.0, r.MatchPercentage, 1e-9)
	assert.InDelta(t, 100.0, r.Score, 1e-9)
	assert.Equal(t, SourceKeyword, r.Source)
}

func TestRecommendPartialMatch(t *testing.T) {
	got := fruitMatcher().Recommend([]string{"apple"}, 5, 1)

	require.Len(t, got, 1)
	r := got[0]
	assert.Equal(t, 1, r.MatchCount)
	assert.Equal(t, 2, r.MissingCount)
	assert.InDelta(t, 33.3, r.MatchPercentage, 1e-9)
	assert.InDelta(t, 50.0/3+30, r.Score, 1e-9)
	assert.Equal(t, []string{"apple"}, r.MatchedIngredients)
	assert.Equal(t, []string{"banana", "orange"}, r.MissingIngredients)
}

func TestRecommendEmptyInput(t *testing.T) {
	m := NewMatcher(NewStore(DefaultRecipes()))

	assert.Empty(t, m.Recommend(nil, 5, 1))
	assert.Empty(t, m.Recommend([]string{}, 5, 0))
	assert.Empty(t, m.Recommend([]string{"  ", ""}, 5, 0))
}

func TestRecommendMinMatchExcludes(t *testing.T) {
	got := fruitMatcher().Recommend([]string{"apple", "kiwi"}, 5, 2)

	assert.Empty(t, got)
}

func TestRecommendNormalizesCase(t *testing.T) {
	m := NewMatcher(NewStore([]Recipe{
		{ID: 1, Name: "Toast", Ingredients: []string{"Bread", "BUTTER"}},
	}))

	got := m.Recommend([]string{"bread", " Butter "}, 5, 1)

	require.Len(t, got, 1)
	assert.Equal(t, []string{"bread", "butter"}, got[0].MatchedIngredients)
	assert.Equal(t, []string{"Bread", "BUTTER"}, got[0].IngredientsRequired)
}

func TestRecommendStableOnTies(t *testing.T) {
	m := NewMatcher(NewStore([]Recipe{
		{ID: 3, Name: "c", Ingredients: []string{"egg", "milk"}},
		{ID: 1, Name: "a", Ingredients: []string{"egg", "flour"}},
		{ID: 2, Name: "b", Ingredients: []string{"egg", "sugar"}},
		{ID: 4, Name: "d", Ingredients: []string{"egg"}},
	}))

	got := m.Recommend([]string{"egg"}, 0, 1)

	require.Len(t, got, 4)
	assert.Equal(t, 4, got[0].RecipeID)
	assert.Equal(t, []int{3, 1, 2}, []int{got[1].RecipeID, got[2].RecipeID, got[3].RecipeID})
}

func TestRecommendTopK(t *testing.T) {
	m := NewMatcher(NewStore(DefaultRecipes()))

	got := m.Recommend([]string{"onion", "tomato", "oil"}, 3, 1)

	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestRecommendIsIdempotent(t *testing.T) {
	m := NewMatcher(NewStore(DefaultRecipes()))
	input := []string{"carrot", "onion", "lettuce", "bread"}

	assert.Equal(t, m.Recommend(input, 5, 1), m.Recommend(input, 5, 1))
}

func TestRecommendPartitionsIngredients(t *testing.T) {
	m := NewMatcher(NewStore(DefaultRecipes()))

	for _, r := range m.Recommend([]string{"tomato", "onion", "garlic", "bread"}, 0, 1) {
		all := append(append([]string{}, r.MatchedIngredients...), r.MissingIngredients...)
		assert.ElementsMatch(t, r.IngredientsRequired, all, r.Name)
		for _, ing := range r.MatchedIngredients {
			assert.NotContains(t, r.MissingIngredients, ing)
		}
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 100.0)
		assert.GreaterOrEqual(t, r.MatchPercentage, 0.0)
		assert.LessOrEqual(t, r.MatchPercentage, 100.0)
	}
}

func TestRecommendZeroIngredientRecipe(t *testing.T) {
	m := NewMatcher(NewStore([]Recipe{{ID: 1, Name: "Air"}}))

	got := m.Recommend([]string{"egg"}, 5, 0)

	require.Len(t, got, 1)
	assert.InDelta(t, 0.0, got[0].MatchPercentage, 1e-9)
	assert.InDelta(t, 50.0, got[0].Score, 1e-9)
	assert.Equal(t, unknownDifficulty, got[0].Difficulty)

	assert.Empty(t, m.Recommend([]string{"egg"}, 5, 1))
}

func TestScoreMonotonicity(t *testing.T) {
	const total = 6
	for match := 0; match < total; match++ {
		missing := total - match
		assert.LessOrEqual(t, Score(match, total, missing), Score(match+1, total, missing-1))
	}
	for missing := 0; missing < 8; missing++ {
		assert.GreaterOrEqual(t, Score(2, 10, missing), Score(2, 10, missing+1))
	}
	assert.InDelta(t, 0.0, Score(0, 10, 10), 1e-9)
	assert.InDelta(t, 100.0, Score(4, 4, 0), 1e-9)
}

func TestMatchPercentageRounding(t *testing.T) {
	assert.InDelta(t, 66.7, MatchPercentage(2, 3), 1e-9)
	assert.InDelta(t, 14.3, MatchPercentage(1, 7), 1e-9)
	assert.InDelta(t, 0.0, MatchPercentage(0, 0), 1e-9)
}
