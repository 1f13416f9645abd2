// Package recipe 食譜目錄、關鍵字比對排序與推薦策略
package recipe

// Recipe 食譜目錄中的一筆資料
type Recipe struct {
	ID           int      `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Ingredients  []string `json:"ingredients" yaml:"ingredients"`
	Difficulty   string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	PrepTimeMins int      `json:"prep_time_mins,omitempty" yaml:"prep_time_mins,omitempty"`
	Servings     int      `json:"servings,omitempty" yaml:"servings,omitempty"`
	URL          string   `json:"url,omitempty" yaml:"url,omitempty"`
}

// recipeRecord 讀檔用，接受舊轉換腳本輸出的 recipe_id
type recipeRecord struct {
	ID           int      `json:"id" yaml:"id"`
	RecipeID     int      `json:"recipe_id" yaml:"recipe_id"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Ingredients  []string `json:"ingredients" yaml:"ingredients"`
	Difficulty   string   `json:"difficulty" yaml:"difficulty"`
	PrepTimeMins int      `json:"prep_time_mins" yaml:"prep_time_mins"`
	Servings     int      `json:"servings" yaml:"servings"`
	URL          string   `json:"url" yaml:"url"`
}

func (r recipeRecord) toRecipe() Recipe {
	id := r.ID
	if id == 0 {
		id = r.RecipeID
	}
	return Recipe{
		ID:           id,
		Name:         r.Name,
		Description:  r.Description,
		Ingredients:  r.Ingredients,
		Difficulty:   r.Difficulty,
		PrepTimeMins: r.PrepTimeMins,
		Servings:     r.Servings,
		URL:          r.URL,
	}
}

// Source 推薦來源
type Source string

const (
	SourceKeyword Source = "keyword"
	SourceLLM     Source = "llm"
)

// Recommendation 推薦結果，關鍵字與 LLM 兩種策略輸出相同結構
type Recommendation struct {
	RecipeID            int      `json:"recipe_id"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	IngredientsRequired []string `json:"ingredients_required"`
	MatchedIngredients  []string `json:"matched_ingredients"`
	MissingIngredients  []string `json:"missing_ingredients"`
	MatchCount          int      `json:"match_count"`
	MissingCount        int      `json:"missing_count"`
	MatchPercentage     float64  `json:"match_percentage"`
	Difficulty          string   `json:"difficulty"`
	PrepTimeMins        int      `json:"prep_time_mins"`
	Servings            int      `json:"servings"`
	Score               float64  `json:"score"`
	Source              Source   `json:"source"`
}
