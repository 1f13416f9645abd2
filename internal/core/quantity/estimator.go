// Package quantity 由偵測框大小推估食材份量，並與 OCR 結果合併
package quantity

import (
	"strings"

	"fridge-vision/internal/core/vision"
)

// SizeCategory 偵測框佔畫面比例的分級
type SizeCategory string

const (
	VerySmall SizeCategory = "very_small"
	Small     SizeCategory = "small"
	Medium    SizeCategory = "medium"
	Large     SizeCategory = "large"
	VeryLarge SizeCategory = "very_large"
)

// 上界為開區間，剛好落在門檻上的比例歸到下一級
var sizeThresholds = []struct {
	upper    float64
	category SizeCategory
}{
	{0.02, VerySmall},
	{0.08, Small},
	{0.20, Medium},
	{0.40, Large},
}

// Portion 份量描述與基準值
type Portion struct {
	Label string
	Base  float64
}

var portions = map[SizeCategory]Portion{
	VerySmall: {"pinch", 0.1},
	Small:     {"small portion", 0.25},
	Medium:    {"medium portion", 0.5},
	Large:     {"large portion", 0.75},
	VeryLarge: {"whole/bulk", 1.0},
}

// 依序比對，先命中的分類勝出
var unitBuckets = []struct {
	unit     string
	keywords []string
}{
	{"ml", []string{"milk", "oil", "sauce", "yogurt", "juice"}},
	{"g", []string{"flour", "sugar", "salt", "pepper", "rice"}},
	{"pcs", []string{"apple", "banana", "egg", "tomato", "onion", "orange", "lemon", "garlic"}},
	{"g", []string{"bread", "pasta", "butter", "cheese"}},
}

// DefaultUnit 未命中任何分類時的單位
const DefaultUnit = "portion"

// ClassifySize 將面積比例分級
func ClassifySize(ratio float64) SizeCategory {
	for _, t := range sizeThresholds {
		if ratio < t.upper {
			return t.category
		}
	}
	return VeryLarge
}

// PortionFor 取得分級對應的份量
func PortionFor(c SizeCategory) Portion {
	return portions[c]
}

// SuggestUnit 依食材名稱推薦單位
func SuggestUnit(name string) string {
	lower := strings.ToLower(name)
	for _, b := range unitBuckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return b.unit
			}
		}
	}
	return DefaultUnit
}

// Estimate 單一食材的份量估計
type Estimate struct {
	Ingredient       string       `json:"ingredient"`
	Confidence       float64      `json:"confidence"`
	Count            int          `json:"count"`
	SizeCategory     SizeCategory `json:"size_category"`
	QuantityEstimate string       `json:"quantity_estimate"`
	QuantityValue    float64      `json:"quantity_value"`
	EstimatedUnit    string       `json:"estimated_unit"`
	SizeRatio        float64      `json:"size_ratio"`
}

// ImageDimensions 影像尺寸
type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BatchResult 整張影像的估計結果，Ingredients 依首次出現順序排列
type BatchResult struct {
	Ingredients            []Estimate      `json:"ingredients"`
	TotalUniqueIngredients int             `json:"total_unique_ingredients"`
	TotalItemsDetected     int             `json:"total_items_detected"`
	ImageDimensions        ImageDimensions `json:"image_dimensions"`
}

// Estimator 以影像面積為基準的份量估計器
//
// 呼叫端須保證寬高為正數。
type Estimator struct {
	width  int
	height int
}

// NewEstimator 創建估計器
func NewEstimator(width, height int) *Estimator {
	return &Estimator{width: width, height: height}
}

// SizeRatio 偵測框面積佔影像面積的比例
func (e *Estimator) SizeRatio(det vision.Detection) float64 {
	return det.Area() / float64(e.width*e.height)
}

// Estimate 估計單一偵測的份量，count 為同類別的實例數
func (e *Estimator) Estimate(det vision.Detection, count int) Estimate {
	ratio := e.SizeRatio(det)
	category := ClassifySize(ratio)
	portion := PortionFor(category)

	return Estimate{
		Ingredient:       det.ClassName,
		Confidence:       det.Confidence,
		Count:            count,
		SizeCategory:     category,
		QuantityEstimate: portion.Label,
		QuantityValue:    portion.Base * float64(count),
		EstimatedUnit:    SuggestUnit(det.ClassName),
		SizeRatio:        ratio,
	}
}

// EstimateBatch 依類別分組計數，以每類第一個偵測框估計份量
func (e *Estimator) EstimateBatch(dets []vision.Detection) *BatchResult {
	order := make([]string, 0, len(dets))
	first := make(map[string]vision.Detection, len(dets))
	counts := make(map[string]int, len(dets))

	for _, det := range dets {
		if _, ok := first[det.ClassName]; !ok {
			first[det.ClassName] = det
			order = append(order, det.ClassName)
		}
		counts[det.ClassName]++
	}

	estimates := make([]Estimate, 0, len(order))
	for _, name := range order {
		estimates = append(estimates, e.Estimate(first[name], counts[name]))
	}

	return &BatchResult{
		Ingredients:            estimates,
		TotalUniqueIngredients: len(estimates),
		TotalItemsDetected:     len(dets),
		ImageDimensions:        ImageDimensions{Width: e.width, Height: e.height},
	}
}
