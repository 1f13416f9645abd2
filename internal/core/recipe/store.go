package recipe

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fridge-vision/internal/pkg/common"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SourceDefault 使用內建目錄時的來源名稱
const SourceDefault = "default"

// ErrEmptyCatalog 目錄檔內沒有任何有效食譜
var ErrEmptyCatalog = errors.New("recipe catalog has no valid entries")

// Store 唯讀的食譜目錄，載入後不再變動，可供多個請求同時讀取
type Store struct {
	recipes []Recipe
	byID    map[int]int
	source  string
}

// NewStore 以給定的食譜建立目錄，id 不合法或重複的項目會被略過
func NewStore(recipes []Recipe) *Store {
	s := &Store{
		recipes: make([]Recipe, 0, len(recipes)),
		byID:    make(map[int]int, len(recipes)),
		source:  SourceDefault,
	}
	for _, r := range recipes {
		if r.ID <= 0 {
			common.LogWarn("略過無效的食譜 id", zap.Int("id", r.ID), zap.String("name", r.Name))
			continue
		}
		if _, dup := s.byID[r.ID]; dup {
			common.LogWarn("略過重複的食譜 id", zap.Int("id", r.ID), zap.String("name", r.Name))
			continue
		}
		if len(r.Ingredients) == 0 {
			common.LogWarn("食譜沒有任何食材", zap.Int("id", r.ID), zap.String("name", r.Name))
		}
		s.byID[r.ID] = len(s.recipes)
		s.recipes = append(s.recipes, r)
	}
	return s
}

// LoadStore 讀取目錄檔；讀不到或格式錯誤時改用內建目錄，永遠不會失敗
func LoadStore(path string) *Store {
	if path == "" {
		common.LogInfo("未設定食譜檔，使用內建食譜", zap.Int("count", len(DefaultRecipes())))
		return NewStore(DefaultRecipes())
	}

	recipes, err := ReadCatalog(path)
	if err == nil {
		s := NewStore(recipes)
		if s.Len() > 0 {
			s.source = path
			common.LogInfo("已載入食譜目錄", zap.String("path", path), zap.Int("count", s.Len()))
			return s
		}
		err = ErrEmptyCatalog
	}

	common.LogWarn("無法載入食譜檔，改用內建食譜",
		zap.String("path", path),
		zap.Error(err),
	)
	return NewStore(DefaultRecipes())
}

// ReadCatalog 解析 JSON 或 YAML 目錄檔
func ReadCatalog(path string) ([]Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []recipeRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse yaml catalog: %w", err)
		}
	default:
		if err := common.DecodeJSON(bytes.NewReader(data), &records); err != nil {
			return nil, fmt.Errorf("failed to parse json catalog: %w", err)
		}
	}

	recipes := make([]Recipe, 0, len(records))
	for _, r := range records {
		recipes = append(recipes, r.toRecipe())
	}
	return recipes, nil
}

// Source 目錄來源（檔案路徑或 default）
func (s *Store) Source() string { return s.source }

// Len 食譜數量
func (s *Store) Len() int { return len(s.recipes) }

// Recipes 依目錄順序回傳所有食譜
func (s *Store) Recipes() []Recipe {
	out := make([]Recipe, len(s.recipes))
	copy(out, s.recipes)
	return out
}

// List 回傳前 limit 筆，limit <= 0 時回傳全部
func (s *Store) List(limit int) []Recipe {
	if limit <= 0 || limit > len(s.recipes) {
		limit = len(s.recipes)
	}
	out := make([]Recipe, limit)
	copy(out, s.recipes[:limit])
	return out
}

// FindByID 依 id 查詢，第二個回傳值為 false 代表不存在
func (s *Store) FindByID(id int) (Recipe, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return Recipe{}, false
	}
	return s.recipes[idx], true
}

// Search 名稱或任一食材包含 query（不分大小寫）的食譜
func (s *Store) Search(query string) []Recipe {
	q := strings.ToLower(query)
	results := []Recipe{}
	for _, r := range s.recipes {
		if strings.Contains(strings.ToLower(r.Name), q) || anyContains(r.Ingredients, q) {
			results = append(results, r)
		}
	}
	return results
}

func anyContains(items []string, q string) bool {
	for _, it := range items {
		if strings.Contains(strings.ToLower(it), q) {
			return true
		}
	}
	return false
}

// AllIngredients 目錄中所有食材（小寫、排序、不重複）
func (s *Store) AllIngredients() []string {
	seen := make(map[string]struct{})
	for _, r := range s.recipes {
		for _, ing := range r.Ingredients {
			seen[strings.ToLower(ing)] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for ing := range seen {
		out = append(out, ing)
	}
	sort.Strings(out)
	return out
}
