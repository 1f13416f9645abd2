package provider

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable 供應商無法連線或未設定
var ErrUnavailable = errors.New("ai provider unavailable")

// Message 表示與 AI 模型的對話消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 表示發送到 AI 提供者的請求
type Request struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

// Prompt 將所有訊息內容串成單一提示
func (r *Request) Prompt() string {
	var out string
	for i, m := range r.Messages {
		if i > 0 {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}

// NewUserRequest 建立只有一則使用者訊息的請求
func NewUserRequest(prompt string, temperature float64) *Request {
	return &Request{
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: temperature,
	}
}

// Usage 用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response 表示從 AI 提供者收到的響應
type Response struct {
	Content  string `json:"content"`
	Model    string `json:"model"`
	Usage    Usage  `json:"usage"`
	CacheHit bool   `json:"cache_hit"`
}

// Provider 定義 AI 提供者介面
type Provider interface {
	// Name 供應商名稱
	Name() string

	// Generate 生成 AI 響應
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Ping 檢查供應商是否可用
	Ping(ctx context.Context) error

	// GetModel 獲取當前使用的模型名稱
	GetModel() string

	// GetTimeout 獲取請求超時時間
	GetTimeout() time.Duration

	// Close 關閉提供者連接
	Close() error
}

// Config 定義 AI 提供者配置
type Config struct {
	APIKey    string
	Model     string
	Timeout   time.Duration
	BaseURL   string
	MaxTokens int
}
