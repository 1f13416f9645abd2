package recipe

import (
	"math"
	"sort"

	"fridge-vision/internal/pkg/common"

	"go.uber.org/zap"
)

const unknownDifficulty = "unknown"

// Matcher 以食材交集比對並排序目錄中的食譜
type Matcher struct {
	store *Store
}

// NewMatcher 創建比對器
func NewMatcher(store *Store) *Matcher {
	return &Matcher{store: store}
}

// Store 比對使用的目錄
func (m *Matcher) Store() *Store { return m.store }

// Score 推薦分數：覆蓋率最多 50 分，缺少的食材每項扣 10 分（最多扣 50 分）
func Score(matchCount, total, missingCount int) float64 {
	var matchTerm float64
	if total > 0 {
		matchTerm = clamp(50*float64(matchCount)/float64(total), 0, 50)
	}
	missingTerm := math.Max(0, 50-10*float64(missingCount))
	return clamp(matchTerm+missingTerm, 0, 100)
}

// MatchPercentage 覆蓋率百分比，四捨五入到小數點一位
func MatchPercentage(matchCount, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(100 * float64(matchCount) / float64(total))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Recommend 回傳依分數排序的前 topK 筆；topK <= 0 時不截斷
func (m *Matcher) Recommend(available []string, topK, minMatch int) []Recommendation {
	have := make(map[string]struct{}, len(available))
	for _, ing := range common.NormalizeNames(available) {
		have[ing] = struct{}{}
	}
	if len(have) == 0 {
		common.LogWarn("未提供食材，略過食譜比對")
		return []Recommendation{}
	}

	ranked := make([]Recommendation, 0)
	for _, r := range m.store.recipes {
		needed := common.NormalizeNames(r.Ingredients)
		matched := make([]string, 0, len(needed))
		missing := make([]string, 0, len(needed))
		for _, ing := range needed {
			if _, ok := have[ing]; ok {
				matched = append(matched, ing)
			} else {
				missing = append(missing, ing)
			}
		}
		if len(matched) < minMatch {
			continue
		}
		ranked = append(ranked, newRecommendation(r, matched, missing, SourceKeyword))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	common.LogDebug("食譜比對完成",
		zap.Int("candidates", len(ranked)),
		zap.Int("available", len(have)),
	)

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func newRecommendation(r Recipe, matched, missing []string, source Source) Recommendation {
	total := len(matched) + len(missing)
	difficulty := r.Difficulty
	if difficulty == "" {
		difficulty = unknownDifficulty
	}
	required := r.Ingredients
	if required == nil {
		required = []string{}
	}
	return Recommendation{
		RecipeID:            r.ID,
		Name:                r.Name,
		Description:         r.Description,
		IngredientsRequired: required,
		MatchedIngredients:  matched,
		MissingIngredients:  missing,
		MatchCount:          len(matched),
		MissingCount:        len(missing),
		MatchPercentage:     MatchPercentage(len(matched), total),
		Difficulty:          difficulty,
		PrepTimeMins:        r.PrepTimeMins,
		Servings:            r.Servings,
		Score:               Score(len(matched), total, len(missing)),
		Source:              source,
	}
}
