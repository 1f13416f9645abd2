package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecommender(llm *fakeCompleter) *Recommender {
	m := NewMatcher(NewStore(DefaultRecipes()))
	if llm == nil {
		return NewRecommender(m, nil)
	}
	return NewRecommender(m, NewLLMGenerator(llm, 3))
}

func TestRecommendKeywordByDefault(t *testing.T) {
	llm := &fakeCompleter{output: llmOutput, available: true}
	r := newTestRecommender(llm)

	res := r.Recommend(context.Background(), Request{Ingredients: []string{"tomato", "onion"}, TopK: 3, MinMatch: 1})

	assert.Equal(t, StrategyKeyword, res.Strategy)
	assert.False(t, res.Fallback)
	assert.NotEmpty(t, res.Recipes)
	assert.Empty(t, llm.prompts)
	for _, rec := range res.Recipes {
		assert.Equal(t, SourceKeyword, rec.Source)
	}
}

func TestRecommendPrefersLLM(t *testing.T) {
	llm := &fakeCompleter{output: llmOutput, available: true}
	r := newTestRecommender(llm)

	res := r.Recommend(context.Background(), Request{Ingredients: []string{"egg", "tomato"}, TopK: 1, PreferLLM: true})

	assert.Equal(t, StrategyLLM, res.Strategy)
	assert.False(t, res.Fallback)
	require.Len(t, res.Recipes, 1)
	assert.Equal(t, SourceLLM, res.Recipes[0].Source)
}

func TestRecommendFallsBackToKeyword(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeCompleter
	}{
		{"no generator", nil},
		{"unavailable", &fakeCompleter{output: llmOutput}},
		{"model error", &fakeCompleter{err: errors.New("timeout"), available: true}},
		{"unparseable output", &fakeCompleter{output: "no recipes today", available: true}},
		{"empty array", &fakeCompleter{output: "[]", available: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRecommender(tt.llm)

			res := r.Recommend(context.Background(), Request{Ingredients: []string{"tomato", "onion"}, TopK: 5, MinMatch: 1, PreferLLM: true})

			assert.Equal(t, StrategyKeyword, res.Strategy)
			assert.True(t, res.Fallback)
			assert.NotEmpty(t, res.Recipes)
		})
	}
}
