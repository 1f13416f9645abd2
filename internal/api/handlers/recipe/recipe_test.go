package recipe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	core "fridge-vision/internal/core/recipe"
	"fridge-vision/internal/infrastructure/config"
	"fridge-vision/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCompleter struct {
	answer    string
	err       error
	available bool
	prompts   []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ float64) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeCompleter) Available(context.Context) bool { return f.available }

var testCfg = config.RecipeConfig{DefaultTopK: 5, MaxTopK: 20, MinMatch: 1, ListLimit: 4}

func newRouter(llm core.Completer, enabled bool) *gin.Engine {
	store := core.NewStore(core.DefaultRecipes())
	var gen *core.LLMGenerator
	if llm != nil {
		gen = core.NewLLMGenerator(llm, 3)
	}
	rec := core.NewRecommender(core.NewMatcher(store), gen)

	r := gin.New()
	NewHandler(store, rec, gen, testCfg, enabled).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

type recommendBody struct {
	Status              string                `json:"status"`
	Message             string                `json:"message"`
	IngredientsProvided []string              `json:"ingredients_provided"`
	Strategy            core.Strategy         `json:"strategy"`
	Fallback            bool                  `json:"fallback"`
	Recipes             []core.Recommendation `json:"recipes"`
	Total               int                   `json:"total"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, common.ParseJSONBytes(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRecommendQuery(t *testing.T) {
	w := serve(newRouter(nil, true), http.MethodGet, "/api/v1/recipes/recommend?ingredients=bread,garlic&ingredients=butter&top_k=2", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[recommendBody](t, w)
	assert.Equal(t, common.StatusSuccess, body.Status)
	assert.Equal(t, []string{"bread", "garlic", "butter"}, body.IngredientsProvided)
	assert.Equal(t, core.StrategyKeyword, body.Strategy)
	assert.False(t, body.Fallback)
	require.Len(t, body.Recipes, 2)
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, "Garlic Bread", body.Recipes[0].Name)
	assert.Equal(t, "Found 2 matching recipes", body.Message)
}

func TestRecommendJSON(t *testing.T) {
	w := serve(newRouter(nil, true), http.MethodPost, "/api/v1/recipes/recommend",
		`{"ingredients": ["Banana", "milk", "strawberry"], "top_k": 1}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[recommendBody](t, w)
	require.Len(t, body.Recipes, 1)
	assert.Equal(t, "Fruit Smoothie", body.Recipes[0].Name)
}

func TestRecommendLLMUnavailableFallsBack(t *testing.T) {
	w := serve(newRouter(&fakeCompleter{}, true), http.MethodGet, "/api/v1/recipes/recommend?ingredients=rice,lemon&use_llm=true", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[recommendBody](t, w)
	assert.Equal(t, core.StrategyKeyword, body.Strategy)
	assert.True(t, body.Fallback)
	assert.NotEmpty(t, body.Recipes)
}

func TestRecommendErrors(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		method  string
		path    string
		body    string
		status  int
		code    string
	}{
		{"no ingredients", true, http.MethodGet, "/api/v1/recipes/recommend", "", http.StatusBadRequest, "NO_INGREDIENTS"},
		{"blank ingredients", true, http.MethodPost, "/api/v1/recipes/recommend", `{"ingredients": [" ", ","]}`, http.StatusBadRequest, "NO_INGREDIENTS"},
		{"top_k too large", true, http.MethodGet, "/api/v1/recipes/recommend?ingredients=egg&top_k=99", "", http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"top_k not a number", true, http.MethodGet, "/api/v1/recipes/recommend?ingredients=egg&top_k=x", "", http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"json top_k zero", true, http.MethodPost, "/api/v1/recipes/recommend", `{"ingredients": ["egg"], "top_k": 0}`, http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"malformed json", true, http.MethodPost, "/api/v1/recipes/recommend", `{"ingredients":`, http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"disabled", false, http.MethodGet, "/api/v1/recipes/recommend?ingredients=egg", "", http.StatusServiceUnavailable, "FEATURE_DISABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(newRouter(nil, tt.enabled), tt.method, tt.path, tt.body)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[common.ErrorResponse](t, w).Code)
		})
	}
}

func TestListRecipes(t *testing.T) {
	r := newRouter(nil, true)

	w := serve(r, http.MethodGet, "/api/v1/recipes", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Recipes     []core.Recipe `json:"recipes"`
		Total       int           `json:"total"`
		CatalogSize int           `json:"catalog_size"`
	}](t, w)
	assert.Len(t, body.Recipes, testCfg.ListLimit)
	assert.Equal(t, 10, body.CatalogSize)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/recipes?limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/recipes?limit=101", "").Code)
}

func TestSearchRecipes(t *testing.T) {
	r := newRouter(nil, true)

	w := serve(r, http.MethodGet, "/api/v1/recipes/search?query=salad", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Query   string        `json:"query"`
		Results []core.Recipe `json:"results"`
		Count   int           `json:"count"`
	}](t, w)
	assert.Equal(t, "salad", body.Query)
	assert.Equal(t, 2, body.Count)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/recipes/search?query=%20", "").Code)
}

func TestGetRecipe(t *testing.T) {
	r := newRouter(nil, true)

	w := serve(r, http.MethodGet, "/api/v1/recipes/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Recipe core.Recipe `json:"recipe"`
	}](t, w)
	assert.Equal(t, "Garlic Bread", body.Recipe.Name)

	w = serve(r, http.MethodGet, "/api/v1/recipes/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RECIPE_NOT_FOUND", decode[common.ErrorResponse](t, w).Code)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/v1/recipes/abc", "").Code)
}

func TestRefine(t *testing.T) {
	llm := &fakeCompleter{available: true, answer: "  Use day-old rice.  "}
	r := newRouter(llm, true)

	w := serve(r, http.MethodPost, "/api/v1/recipes/refine",
		`{"recipe_name": "Lemon Rice", "ingredients": ["rice", "lemon"], "question": "How do I keep it fluffy?"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		RecipeName string `json:"recipe_name"`
		Answer     string `json:"answer"`
	}](t, w)
	assert.Equal(t, "Lemon Rice", body.RecipeName)
	assert.Equal(t, "Use day-old rice.", body.Answer)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "How do I keep it fluffy?")
}

func TestRefineErrors(t *testing.T) {
	const valid = `{"recipe_name": "Lemon Rice", "question": "Why?"}`
	tests := []struct {
		name   string
		llm    core.Completer
		body   string
		status int
		code   string
	}{
		{"no llm configured", nil, valid, http.StatusServiceUnavailable, "LLM_UNAVAILABLE"},
		{"llm offline", &fakeCompleter{}, valid, http.StatusServiceUnavailable, "LLM_UNAVAILABLE"},
		{"llm error", &fakeCompleter{available: true, err: errors.New("boom")}, valid, http.StatusServiceUnavailable, "AI_SERVICE_ERROR"},
		{"missing question", &fakeCompleter{available: true}, `{"recipe_name": "x"}`, http.StatusBadRequest, common.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(newRouter(tt.llm, true), http.MethodPost, "/api/v1/recipes/refine", tt.body)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[common.ErrorResponse](t, w).Code)
		})
	}
}
