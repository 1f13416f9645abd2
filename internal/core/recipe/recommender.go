package recipe

import (
	"context"

	"fridge-vision/internal/pkg/common"

	"go.uber.org/zap"
)

// Strategy 推薦策略
type Strategy string

const (
	StrategyKeyword Strategy = "keyword"
	StrategyLLM     Strategy = "llm"
)

// Request 推薦請求
type Request struct {
	Ingredients         []string
	TopK                int
	MinMatch            int
	PreferLLM           bool
	DietaryRestrictions []string
}

// Result 推薦結果；Fallback 表示 LLM 失敗後改用關鍵字比對
type Result struct {
	Strategy Strategy         `json:"strategy"`
	Recipes  []Recommendation `json:"recipes"`
	Fallback bool             `json:"fallback"`
}

// Recommender 依請求選擇策略，generator 可為 nil
type Recommender struct {
	matcher   *Matcher
	generator *LLMGenerator
}

// NewRecommender 創建推薦器
func NewRecommender(matcher *Matcher, generator *LLMGenerator) *Recommender {
	return &Recommender{matcher: matcher, generator: generator}
}

// LLMAvailable LLM 策略目前是否可用
func (r *Recommender) LLMAvailable(ctx context.Context) bool {
	return r.generator != nil && r.generator.Available(ctx)
}

// Recommend 執行推薦
func (r *Recommender) Recommend(ctx context.Context, req Request) Result {
	fallback := false
	if req.PreferLLM && r.LLMAvailable(ctx) {
		recs, err := r.generator.Generate(ctx, req.Ingredients, req.DietaryRestrictions)
		switch {
		case err != nil:
			common.LogWarn("LLM 推薦失敗，改用關鍵字比對", zap.Error(err))
			fallback = true
		case len(recs) == 0:
			common.LogWarn("LLM 未產生食譜，改用關鍵字比對")
			fallback = true
		default:
			if req.TopK > 0 && len(recs) > req.TopK {
				recs = recs[:req.TopK]
			}
			return Result{Strategy: StrategyLLM, Recipes: recs}
		}
	} else if req.PreferLLM {
		common.LogDebug("LLM 不可用，使用關鍵字比對")
		fallback = true
	}

	return Result{
		Strategy: StrategyKeyword,
		Recipes:  r.matcher.Recommend(req.Ingredients, req.TopK, req.MinMatch),
		Fallback: fallback,
	}
}
