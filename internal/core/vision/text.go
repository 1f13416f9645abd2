package vision

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// 標籤上常見但不是食材的字
var labelStopWords = map[string]bool{
	"contains":    true,
	"ingredients": true,
	"product":     true,
	"made from":   true,
	"of":          true,
	"and":         true,
	"with":        true,
	"including":   true,
	"mix":         true,
}

const labelTrimChars = `.,;:!?()[]{}"'-`

// ParseIngredientsFromText 從 OCR 文字中挑出可能的食材字詞，結果已排序且不重複
func ParseIngredientsFromText(text string) []string {
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		cleaned := strings.TrimSpace(strings.Trim(word, labelTrimChars))
		if len([]rune(cleaned)) <= 2 || labelStopWords[cleaned] || isDigits(cleaned) || strings.Contains(cleaned, "%") {
			continue
		}
		seen[cleaned] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// 依序嘗試，先找有關鍵字前綴的日期
var expiryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:exp|expiry|best before|use by)[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`),
	regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`),
	regexp.MustCompile(`\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{4}\b`),
}

// DetectExpiryDate 在文字中尋找保存期限
func DetectExpiryDate(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, re := range expiryPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return m[1], true
		}
		return m[0], true
	}
	return "", false
}
