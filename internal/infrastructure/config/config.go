package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 偵測與 OCR 後端
const (
	BackendNone        = "none"
	BackendHTTP        = "http"
	BackendRekognition = "rekognition"
)

// LLM 供應商
const (
	ProviderNone       = "none"
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
)

// 快取後端
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Detector    DetectorConfig  `mapstructure:"detector"`
	OCR         OCRConfig       `mapstructure:"ocr"`
	AWS         AWSConfig       `mapstructure:"aws"`
	Recipe      RecipeConfig    `mapstructure:"recipe"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Queue       QueueConfig     `mapstructure:"queue"`
	Image       ImageConfig     `mapstructure:"image"`
	Features    FeatureConfig   `mapstructure:"features"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
	LogDir      string          `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

// DetectorConfig 物件偵測設定
type DetectorConfig struct {
	Backend       string        `mapstructure:"backend"`
	Endpoint      string        `mapstructure:"endpoint"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ConfThreshold float64       `mapstructure:"conf_threshold"`
	IOUThreshold  float64       `mapstructure:"iou_threshold"`
	Classes       []string      `mapstructure:"classes"`
}

// OCRConfig 文字辨識設定
type OCRConfig struct {
	Backend             string        `mapstructure:"backend"`
	Endpoint            string        `mapstructure:"endpoint"`
	Timeout             time.Duration `mapstructure:"timeout"`
	Languages           []string      `mapstructure:"languages"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
}

// AWSConfig AWS 設定
type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// RecipeConfig 食譜目錄與推薦設定
type RecipeConfig struct {
	File        string `mapstructure:"file"`
	DefaultTopK int    `mapstructure:"default_top_k"`
	MaxTopK     int    `mapstructure:"max_top_k"`
	MinMatch    int    `mapstructure:"min_match"`
	ListLimit   int    `mapstructure:"list_limit"`
}

// LLMConfig 語言模型設定
type LLMConfig struct {
	Provider   string           `mapstructure:"provider"`
	Timeout    time.Duration    `mapstructure:"timeout"`
	NumRecipes int              `mapstructure:"num_recipes"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
}

// OllamaConfig 本地 Ollama 設定
type OllamaConfig struct {
	Host  string `mapstructure:"host"`
	Model string `mapstructure:"model"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// QueueConfig 推論呼叫的並行限制
type QueueConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	MaxWaiting    int           `mapstructure:"max_waiting"`
	WaitTimeout   time.Duration `mapstructure:"wait_timeout"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	MaxDimension int   `mapstructure:"max_dimension"`
	JPEGQuality  int   `mapstructure:"jpeg_quality"`
}

// FeatureConfig 功能開關
type FeatureConfig struct {
	EnableOCR                   bool `mapstructure:"enable_ocr"`
	EnableQuantityEstimation    bool `mapstructure:"enable_quantity_estimation"`
	EnableRecipeRecommendations bool `mapstructure:"enable_recipe_recommendations"`
}

// DefaultClasses 偵測模型的食材詞彙
var DefaultClasses = []string{
	"apple", "banana", "orange", "tomato", "carrot", "broccoli", "lettuce", "cucumber",
	"bell pepper", "onion", "potato", "egg", "milk", "cheese", "butter", "yogurt",
	"chicken", "beef", "pork", "fish", "bread", "rice", "pasta", "lemon",
	"garlic", "avocado", "strawberry", "grapes", "mushroom", "spinach",
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 為選用
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalize(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// bindLegacyEnv 綁定不帶前綴的環境變數名稱
func bindLegacyEnv(v *viper.Viper) {
	bindings := map[string][]string{
		"server.host":                            {"HOST"},
		"server.port":                            {"PORT"},
		"detector.backend":                       {"DETECTOR_BACKEND"},
		"detector.endpoint":                      {"MODEL_ENDPOINT", "DETECTOR_ENDPOINT"},
		"detector.conf_threshold":                {"CONF_THRESHOLD"},
		"detector.iou_threshold":                 {"IOU_THRESHOLD"},
		"ocr.backend":                            {"OCR_BACKEND"},
		"ocr.endpoint":                           {"OCR_ENDPOINT"},
		"ocr.languages":                          {"OCR_LANGUAGES"},
		"ocr.confidence_threshold":               {"OCR_CONF_THRESHOLD"},
		"aws.region":                             {"AWS_REGION"},
		"recipe.file":                            {"RECIPES_FILE"},
		"recipe.default_top_k":                   {"DEFAULT_TOP_K"},
		"recipe.min_match":                       {"MIN_MATCH"},
		"llm.provider":                           {"LLM_PROVIDER"},
		"llm.ollama.host":                        {"OLLAMA_HOST"},
		"llm.ollama.model":                       {"OLLAMA_MODEL"},
		"llm.openrouter.api_key":                 {"OPENROUTER_API_KEY"},
		"llm.openrouter.model":                   {"OPENROUTER_MODEL"},
		"llm.openrouter.max_tokens":              {"MODEL_MAX_TOKENS"},
		"cache.enabled":                          {"CACHE_ENABLED"},
		"cache.backend":                          {"CACHE_BACKEND"},
		"cache.redis_addr":                       {"REDIS_ADDR"},
		"cache.redis_password":                   {"REDIS_PASSWORD"},
		"rate_limit.enabled":                     {"RATE_LIMIT_ENABLED"},
		"rate_limit.requests":                    {"RATE_LIMIT_REQUESTS"},
		"rate_limit.window":                      {"RATE_LIMIT_WINDOW"},
		"image.max_dimension":                    {"IMAGE_MAX_SIZE"},
		"features.enable_ocr":                    {"ENABLE_OCR"},
		"features.enable_quantity_estimation":    {"ENABLE_QUANTITY_ESTIMATION"},
		"features.enable_recipe_recommendations": {"ENABLE_RECIPE_RECOMMENDATIONS"},
		"dedup_window":                           {"DEDUP_WINDOW"},
		"log_level":                              {"LOG_LEVEL"},
		"log_dir":                                {"LOG_DIR"},
	}
	for key, envs := range bindings {
		// APP_ 前綴的名稱優先
		names := append([]string{"APP_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))}, envs...)
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "Fridge Vision API")

	// 伺服器設定
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.cors_origins", []string{"*"})

	// 偵測設定
	v.SetDefault("detector.backend", BackendHTTP)
	v.SetDefault("detector.endpoint", "http://localhost:9000")
	v.SetDefault("detector.timeout", "30s")
	v.SetDefault("detector.conf_threshold", 0.5)
	v.SetDefault("detector.iou_threshold", 0.45)
	v.SetDefault("detector.classes", DefaultClasses)

	// OCR 設定
	v.SetDefault("ocr.backend", BackendHTTP)
	v.SetDefault("ocr.endpoint", "http://localhost:9001")
	v.SetDefault("ocr.timeout", "30s")
	v.SetDefault("ocr.languages", []string{"en"})
	v.SetDefault("ocr.confidence_threshold", 0.3)

	v.SetDefault("aws.region", "us-east-1")

	// 食譜設定
	v.SetDefault("recipe.file", "data/recipes.json")
	v.SetDefault("recipe.default_top_k", 5)
	v.SetDefault("recipe.max_top_k", 20)
	v.SetDefault("recipe.min_match", 1)
	v.SetDefault("recipe.list_limit", 20)

	// LLM 設定
	v.SetDefault("llm.provider", ProviderNone)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.num_recipes", 3)
	v.SetDefault("llm.ollama.host", "http://localhost:11434")
	v.SetDefault("llm.ollama.model", "mistral")
	v.SetDefault("llm.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.model", "mistralai/mistral-7b-instruct:free")
	v.SetDefault("llm.openrouter.max_tokens", 1500)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 圖片設定
	// 推論隊列
	v.SetDefault("queue.max_concurrent", 4)
	v.SetDefault("queue.max_waiting", 32)
	v.SetDefault("queue.wait_timeout", "30s")

	v.SetDefault("image.max_size_bytes", 50*1024*1024) // 50MB
	v.SetDefault("image.max_dimension", 640)
	v.SetDefault("image.jpeg_quality", 90)

	// 功能開關
	v.SetDefault("features.enable_ocr", true)
	v.SetDefault("features.enable_quantity_estimation", true)
	v.SetDefault("features.enable_recipe_recommendations", true)

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

func normalize(config *Config) {
	config.Detector.Backend = strings.ToLower(strings.TrimSpace(config.Detector.Backend))
	config.OCR.Backend = strings.ToLower(strings.TrimSpace(config.OCR.Backend))
	config.LLM.Provider = strings.ToLower(strings.TrimSpace(config.LLM.Provider))
	config.Cache.Backend = strings.ToLower(strings.TrimSpace(config.Cache.Backend))
	for i, c := range config.Detector.Classes {
		config.Detector.Classes[i] = strings.ToLower(strings.TrimSpace(c))
	}
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// Addr 伺服器監聽位址
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Detector.Backend {
	case BackendNone, BackendHTTP, BackendRekognition:
	default:
		return fmt.Errorf("unknown detector backend %q", config.Detector.Backend)
	}
	if config.Detector.Backend == BackendHTTP && config.Detector.Endpoint == "" {
		return fmt.Errorf("detector endpoint is required for http backend")
	}
	if config.Detector.ConfThreshold < 0 || config.Detector.ConfThreshold > 1 {
		return fmt.Errorf("detector conf_threshold must be within [0,1]")
	}
	if config.Detector.IOUThreshold < 0 || config.Detector.IOUThreshold > 1 {
		return fmt.Errorf("detector iou_threshold must be within [0,1]")
	}

	switch config.OCR.Backend {
	case BackendNone, BackendHTTP, BackendRekognition:
	default:
		return fmt.Errorf("unknown ocr backend %q", config.OCR.Backend)
	}
	if config.OCR.ConfidenceThreshold < 0 || config.OCR.ConfidenceThreshold > 1 {
		return fmt.Errorf("ocr confidence_threshold must be within [0,1]")
	}

	if config.Recipe.MaxTopK <= 0 {
		return fmt.Errorf("invalid recipe max_top_k")
	}
	if config.Recipe.DefaultTopK <= 0 || config.Recipe.DefaultTopK > config.Recipe.MaxTopK {
		return fmt.Errorf("recipe default_top_k must be within [1,%d]", config.Recipe.MaxTopK)
	}
	if config.Recipe.MinMatch < 1 {
		return fmt.Errorf("recipe min_match must be at least 1")
	}

	if config.Queue.MaxConcurrent <= 0 {
		return fmt.Errorf("queue max_concurrent must be positive")
	}
	if config.Queue.MaxWaiting < 0 {
		return fmt.Errorf("queue max_waiting must not be negative")
	}

	switch config.LLM.Provider {
	case "", ProviderNone, ProviderOllama:
	case ProviderOpenRouter:
		if config.LLM.OpenRouter.APIKey == "" {
			return fmt.Errorf("openrouter api key is required")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", config.LLM.Provider)
	}

	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case CacheMemory:
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
			if config.Cache.CleanupInterval <= 0 {
				return fmt.Errorf("invalid cache cleanup interval")
			}
		case CacheRedis:
			if config.Cache.RedisAddr == "" {
				return fmt.Errorf("redis address is required")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	if config.Image.MaxSizeBytes <= 0 {
		return fmt.Errorf("invalid image max size")
	}
	if config.Image.MaxDimension <= 0 {
		return fmt.Errorf("invalid image max dimension")
	}

	return nil
}
