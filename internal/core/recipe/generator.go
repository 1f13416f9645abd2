package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fridge-vision/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	generateTemperature = 0.7
	refineTemperature   = 0.5

	defaultLLMName       = "Unknown Recipe"
	defaultLLMPrepTime   = 30
	defaultLLMDifficulty = "medium"
	defaultLLMServings   = 4
)

// ErrNoRecipesInOutput 模型輸出中找不到可解析的 JSON 陣列
var ErrNoRecipesInOutput = errors.New("no recipe array in llm output")

// Completer 文字補全能力，AI 服務實作此介面
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
	Available(ctx context.Context) bool
}

// LLMGenerator 以語言模型生成食譜
type LLMGenerator struct {
	llm        Completer
	numRecipes int
}

// NewLLMGenerator 創建生成器，numRecipes <= 0 時使用 3
func NewLLMGenerator(llm Completer, numRecipes int) *LLMGenerator {
	if numRecipes <= 0 {
		numRecipes = 3
	}
	return &LLMGenerator{llm: llm, numRecipes: numRecipes}
}

// Available 模型是否可用
func (g *LLMGenerator) Available(ctx context.Context) bool {
	return g != nil && g.llm != nil && g.llm.Available(ctx)
}

func buildGeneratePrompt(ingredients []string, n int, restrictions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a creative cooking assistant. Given the following ingredients, generate %d unique recipe suggestions.\n\n", n)
	fmt.Fprintf(&b, "Available ingredients: %s\n", strings.Join(ingredients, ", "))
	if len(restrictions) > 0 {
		fmt.Fprintf(&b, "Dietary restrictions: %s.\n", strings.Join(restrictions, ", "))
	}
	b.WriteString("\nRequirements:\n")
	b.WriteString("- Each recipe should use mostly the available ingredients (at least 70% of ingredients available)\n")
	b.WriteString("- Include recipe name, brief description, preparation time, difficulty level, servings and any additional items needed\n")
	b.WriteString(`- Format as JSON array with objects: {"name": "...", "description": "...", "prep_time_mins": 20, "difficulty": "easy/medium/hard", "servings": 2, "additional_items": ["..."]}` + "\n")
	b.WriteString("- Only respond with valid JSON, no other text\n\n")
	fmt.Fprintf(&b, "Generate %d recipes:", n)
	return b.String()
}

// Generate 依現有食材生成食譜，輸出形狀與關鍵字比對相同
func (g *LLMGenerator) Generate(ctx context.Context, ingredients, restrictions []string) ([]Recommendation, error) {
	available := common.NormalizeNames(ingredients)
	if len(available) == 0 {
		return []Recommendation{}, nil
	}

	prompt := buildGeneratePrompt(available, g.numRecipes, common.NormalizeNames(restrictions))
	output, err := g.llm.Complete(ctx, prompt, generateTemperature)
	if err != nil {
		return nil, fmt.Errorf("generate recipes: %w", err)
	}

	recs, err := ParseLLMRecipes(output, available)
	if err != nil {
		common.LogWarn("無法解析 LLM 食譜輸出",
			zap.Error(err),
			zap.String("output", truncateOutput(output, 500)),
		)
		return nil, err
	}

	common.LogInfo("LLM 食譜生成完成", zap.Int("count", len(recs)))
	return recs, nil
}

// ParseLLMRecipes 從模型輸出取出 JSON 陣列並轉成推薦結果
func ParseLLMRecipes(output string, available []string) ([]Recommendation, error) {
	raw, ok := common.ExtractJSONArray(output)
	if !ok {
		return nil, ErrNoRecipesInOutput
	}

	var items []map[string]any
	if err := common.ParseJSON(raw, &items); err != nil {
		// 部分模型輸出的鍵沒有加雙引號
		if err2 := common.ParseJSON(common.QuoteJSONKeys(raw), &items); err2 != nil {
			return nil, fmt.Errorf("decode llm recipes: %w", err)
		}
	}

	matched := common.NormalizeNames(available)
	have := make(map[string]struct{}, len(matched))
	for _, ing := range matched {
		have[ing] = struct{}{}
	}

	recs := make([]Recommendation, 0, len(items))
	for i, item := range items {
		if item == nil {
			continue
		}
		missing := make([]string, 0)
		for _, ing := range common.NormalizeNames(stringList(item["additional_items"])) {
			if _, ok := have[ing]; !ok {
				missing = append(missing, ing)
			}
		}
		r := Recipe{
			ID:           i + 1,
			Name:         stringOr(item["name"], defaultLLMName),
			Description:  stringOr(item["description"], ""),
			Difficulty:   strings.ToLower(stringOr(item["difficulty"], defaultLLMDifficulty)),
			PrepTimeMins: intOr(item["prep_time_mins"], defaultLLMPrepTime),
			Servings:     intOr(item["servings"], defaultLLMServings),
		}
		r.Ingredients = append(append([]string{}, matched...), missing...)
		recs = append(recs, newRecommendation(r, append([]string{}, matched...), missing, SourceLLM))
	}
	return recs, nil
}

// Refine 針對某道食譜回答使用者的烹飪問題
func (g *LLMGenerator) Refine(ctx context.Context, recipeName string, ingredients []string, question string) (string, error) {
	prompt := fmt.Sprintf(`You are a cooking assistant helping with recipe details.

Recipe: %s
Available ingredients: %s

User question: %s

Provide a helpful, concise answer:`,
		strings.TrimSpace(recipeName),
		strings.Join(common.NormalizeNames(ingredients), ", "),
		strings.TrimSpace(question),
	)

	answer, err := g.llm.Complete(ctx, prompt, refineTemperature)
	if err != nil {
		return "", fmt.Errorf("refine recipe: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func stringOr(v any, def string) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

func intOr(v any, def int) int {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(n)
	case string:
		// "20 mins" 之類的寫法取開頭數字
		fields := strings.Fields(n)
		if len(fields) > 0 {
			if i, err := strconv.Atoi(fields[0]); err == nil {
				return i
			}
		}
	}
	return def
}

func stringList(v any) []string {
	switch items := v.(type) {
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return common.SplitList([]string{items})
	}
	return nil
}

func truncateOutput(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
