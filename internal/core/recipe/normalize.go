package recipe

import (
	"regexp"
	"strings"
)

// 同義詞比對的門檻，相似度必須大於此值
const similarityThreshold = 0.7

// 開頭的數量與單位，例如 "2 cups"、"1 1/2 tbsp."
var leadingQuantity = regexp.MustCompile(`(?i)^\d+\s*(?:\d+/\d+)?\s*(?:(?:cup|tbsp|tsp|ml|l|oz|lb|g|kg|x)s?\b\.?)?\s*`)

var fillerWords = map[string]struct{}{
	"of": {}, "the": {}, "a": {}, "and": {}, "or": {},
	"finely": {}, "chopped": {}, "diced": {}, "sliced": {}, "grated": {}, "minced": {},
	"whole": {}, "fresh": {}, "dried": {}, "ground": {}, "powder": {},
}

type synonymGroup struct {
	canonical string
	variants  []string
}

// 依序比對，先命中者為準
var defaultSynonyms = []synonymGroup{
	{"tomato", []string{"tomatoes", "cherry tomato", "roma tomato", "beefsteak tomato"}},
	{"carrot", []string{"carrots", "grated carrot"}},
	{"potato", []string{"potatoes", "mashed potato"}},
	{"onion", []string{"onions", "red onion", "yellow onion", "white onion", "shallot"}},
	{"garlic", []string{"garlic cloves", "minced garlic", "garlic powder"}},
	{"egg", []string{"eggs", "egg yolk", "egg white"}},
	{"milk", []string{"whole milk", "skim milk", "evaporated milk"}},
	{"cheese", []string{"cheddar", "mozzarella", "parmesan", "cream cheese", "feta"}},
	{"chicken", []string{"chicken breast", "chicken thigh", "ground chicken"}},
	{"beef", []string{"ground beef", "steak", "minced beef"}},
	{"pork", []string{"bacon", "ham", "pork chop"}},
	{"bread", []string{"white bread", "wheat bread", "whole grain bread"}},
	{"butter", []string{"unsalted butter", "salted butter"}},
	{"flour", []string{"all-purpose flour", "wheat flour", "rice flour"}},
	{"green beans", []string{"string beans", "snap beans"}},
	{"cucumber", []string{"cucumbers", "english cucumber"}},
	{"mushroom", []string{"mushrooms", "button mushroom", "cremini"}},
	{"lemon", []string{"lemons", "lemon juice", "lemon zest"}},
	{"corn", []string{"sweet corn", "corn kernels"}},
	{"fresh cream", []string{"heavy cream", "whipped cream", "sour cream"}},
	{"bell pepper", []string{"bell peppers", "red pepper", "green pepper", "capsicum"}},
	{"yogurt", []string{"yoghurt", "greek yogurt", "plain yogurt"}},
}

// Normalizer 將食譜原始食材字串對應到偵測模型的詞彙
type Normalizer struct {
	vocabulary []string
	known      map[string]struct{}
	synonyms   []synonymGroup
}

// NewNormalizer 以偵測詞彙建立正規化器
func NewNormalizer(vocabulary []string) *Normalizer {
	n := &Normalizer{
		known:    make(map[string]struct{}, len(vocabulary)),
		synonyms: defaultSynonyms,
	}
	for _, v := range vocabulary {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := n.known[v]; ok {
			continue
		}
		n.known[v] = struct{}{}
		n.vocabulary = append(n.vocabulary, v)
	}
	return n
}

// Normalize 去掉數量與單位、轉小寫並去除修飾詞，再依序嘗試
// 詞彙完全相符、同義詞、字串相似度；都不符時回傳清理後的字串
func (n *Normalizer) Normalize(raw string) string {
	s := leadingQuantity.ReplaceAllString(strings.TrimSpace(raw), "")
	s = strings.ToLower(strings.TrimSpace(s))

	words := make([]string, 0)
	for _, w := range strings.Fields(s) {
		if _, filler := fillerWords[w]; filler || len(w) <= 1 {
			continue
		}
		words = append(words, w)
	}
	s = strings.Join(words, " ")
	if s == "" {
		return ""
	}

	if _, ok := n.known[s]; ok {
		return s
	}

	for _, g := range n.synonyms {
		for _, v := range g.variants {
			if s == v || containsWords(v, s) {
				return g.canonical
			}
		}
	}

	best, bestRatio := "", similarityThreshold
	for _, v := range n.vocabulary {
		if r := Similarity(s, v); r > bestRatio {
			best, bestRatio = v, r
		}
	}
	if best != "" {
		return best
	}
	return s
}

// containsWords s 是否以完整單字的形式出現在 v 中
func containsWords(v, s string) bool {
	return strings.Contains(" "+v+" ", " "+s+" ")
}

// NormalizeList 以逗號切分並正規化，去除重複與過短的結果
func (n *Normalizer) NormalizeList(raw string) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		norm := n.Normalize(part)
		if len(norm) <= 1 {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// Similarity 兩字串的相似度 2*M/T，M 為遞迴取最長共同子字串的總長度
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	bestI, bestJ, bestLen := 0, 0, 0
	for i := range a {
		for j := range b {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > bestLen {
				bestI, bestJ, bestLen = i, j, k
			}
		}
	}
	if bestLen == 0 {
		return 0
	}
	return bestLen +
		matchingRunes(a[:bestI], b[:bestJ]) +
		matchingRunes(a[bestI+bestLen:], b[bestJ+bestLen:])
}
