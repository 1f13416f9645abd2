package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fridge-vision/internal/core/ai/provider"
	"fridge-vision/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL OpenRouter API 位址
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Client OpenRouter API 客戶端
type Client struct {
	client *resty.Client
	cfg    provider.Config
}

// Request 表示 API 請求
type Request struct {
	Messages    []provider.Message `json:"messages"`
	Model       string             `json:"model,omitempty"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
	TopP        float64            `json:"top_p,omitempty"`
	Stop        []string           `json:"stop,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// Response OpenRouter 響應結構
type Response struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message provider.Message `json:"message"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

// Error 表示 API 錯誤
type Error struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg provider.Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("HTTP-Referer", "https://github.com/fridge-vision").
		SetHeader("X-Title", "Fridge Vision")

	return &Client{client: client, cfg: cfg}
}

// Name 供應商名稱
func (c *Client) Name() string { return "openrouter" }

// GetModel 模型名稱
func (c *Client) GetModel() string { return c.cfg.Model }

// GetTimeout 請求逾時
func (c *Client) GetTimeout() time.Duration { return c.cfg.Timeout }

// Ping 只檢查 API key 是否設定
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("%w: openrouter api key not configured", provider.ErrUnavailable)
	}
	return nil
}

// Generate 呼叫 /chat/completions
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := Request{
		Model:       c.cfg.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        req.Stop,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.cfg.MaxTokens
	}

	common.LogDebug("Sending request to OpenRouter",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
	)

	var out Response
	var apiErr Error
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		common.LogError("AI service returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", body.Model),
			zap.String("response", msg),
		)
		return nil, fmt.Errorf("OpenRouter API returned error (status %d): %s", resp.StatusCode(), msg)
	}

	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenRouter response")
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty content in OpenRouter response")
	}

	model := out.Model
	if model == "" {
		model = body.Model
	}
	return &provider.Response{Content: content, Model: model, Usage: out.Usage}, nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
