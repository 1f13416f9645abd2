package quantity

import (
	"sort"
	"strings"

	"fridge-vision/internal/core/vision"
)

// 食材來源
const (
	SourceDetection    = "detection"
	SourceDetectionOCR = "detection + ocr"
)

// MergedIngredient 偵測、份量與 OCR 佐證合併後的單一食材
type MergedIngredient struct {
	Estimate
	Source      string `json:"source"`
	FoundInText bool   `json:"found_in_text,omitempty"`
}

// Merge 每個類別輸出一筆，OCR 成功且全文包含食材名稱時標記為 detection + ocr；
// 結果依信心值由高到低穩定排序
func Merge(batch *BatchResult, ocr *vision.OCRResult) []MergedIngredient {
	if batch == nil {
		return []MergedIngredient{}
	}

	var fullText string
	corroborate := ocr.Succeeded()
	if corroborate {
		fullText = strings.ToLower(ocr.FullText)
	}

	merged := make([]MergedIngredient, 0, len(batch.Ingredients))
	for _, est := range batch.Ingredients {
		m := MergedIngredient{Estimate: est, Source: SourceDetection}
		if corroborate && strings.Contains(fullText, strings.ToLower(est.Ingredient)) {
			m.Source = SourceDetectionOCR
			m.FoundInText = true
		}
		merged = append(merged, m)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// Names 取出合併結果中的食材名稱，保持排序
func Names(items []MergedIngredient) []string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Ingredient)
	}
	return names
}
