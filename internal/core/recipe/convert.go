package recipe

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"fridge-vision/internal/pkg/common"

	"go.uber.org/zap"
)

// 轉換後食譜的預設值
const (
	convertedDifficulty = "medium"
	convertedPrepTime   = 30
	convertedServings   = 4
)

// ConvertStats 轉換統計
type ConvertStats struct {
	Rows    int `json:"rows"`
	Kept    int `json:"kept"`
	Dropped int `json:"dropped"`
}

// ConvertCSV 讀取含 title、ingredients、url 欄位的 CSV，最多處理 limit 列（<= 0 為不限）
func ConvertCSV(r io.Reader, n *Normalizer, limit int) ([]Recipe, ConvertStats, error) {
	var stats ConvertStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	titleCol, ok := cols["title"]
	if !ok {
		return nil, stats, errors.New("csv has no title column")
	}
	ingCol, ok := cols["ingredients"]
	if !ok {
		return nil, stats, errors.New("csv has no ingredients column")
	}
	urlCol, hasURL := cols["url"]

	recipes := make([]Recipe, 0)
	for limit <= 0 || stats.Rows < limit {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read csv row %d: %w", stats.Rows+2, err)
		}
		stats.Rows++

		ingredients := n.NormalizeList(field(row, ingCol))
		if len(ingredients) == 0 {
			stats.Dropped++
			continue
		}
		rec := Recipe{
			ID:           len(recipes) + 1,
			Name:         field(row, titleCol),
			Description:  fmt.Sprintf("Recipe with %d ingredients", len(ingredients)),
			Ingredients:  ingredients,
			Difficulty:   convertedDifficulty,
			PrepTimeMins: convertedPrepTime,
			Servings:     convertedServings,
		}
		if hasURL {
			rec.URL = field(row, urlCol)
		}
		recipes = append(recipes, rec)

		if len(recipes)%1000 == 0 {
			common.LogDebug("轉換進度", zap.Int("rows", stats.Rows), zap.Int("kept", len(recipes)))
		}
	}
	stats.Kept = len(recipes)
	return recipes, stats, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

// WriteCatalog 以縮排 JSON 寫出目錄
func WriteCatalog(w io.Writer, recipes []Recipe) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recipes)
}

// CatalogStats 目錄統計
type CatalogStats struct {
	Recipes           int               `json:"recipes"`
	UniqueIngredients int               `json:"unique_ingredients"`
	AvgIngredients    float64           `json:"avg_ingredients"`
	EmptyRecipes      []int             `json:"empty_recipes"`
	TopIngredients    []IngredientCount `json:"top_ingredients"`
}

// IngredientCount 食材出現次數
type IngredientCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats 計算目錄統計，top 為最常出現的食材數量
func Stats(recipes []Recipe, top int) CatalogStats {
	st := CatalogStats{Recipes: len(recipes), EmptyRecipes: []int{}}
	counts := make(map[string]int)
	total := 0
	for _, r := range recipes {
		names := common.NormalizeNames(r.Ingredients)
		if len(names) == 0 {
			st.EmptyRecipes = append(st.EmptyRecipes, r.ID)
		}
		total += len(names)
		for _, ing := range names {
			counts[ing]++
		}
	}
	st.UniqueIngredients = len(counts)
	if len(recipes) > 0 {
		st.AvgIngredients = round1(float64(total) / float64(len(recipes)))
	}

	st.TopIngredients = make([]IngredientCount, 0, len(counts))
	for name, c := range counts {
		st.TopIngredients = append(st.TopIngredients, IngredientCount{Name: name, Count: c})
	}
	sort.Slice(st.TopIngredients, func(i, j int) bool {
		a, b := st.TopIngredients[i], st.TopIngredients[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if top >= 0 && len(st.TopIngredients) > top {
		st.TopIngredients = st.TopIngredients[:top]
	}
	return st
}
