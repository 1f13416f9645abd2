package ollama

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

// 可用性探測使用較短的逾時
const pingTimeout = 2 * time.Second

// Client 本地 Ollama 伺服器客戶端
type Client struct {
	client *resty.Client
	cfg    provider.Config
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewClient 創建 Ollama 客戶端
func NewClient(cfg provider.Config) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{client: client, cfg: cfg}
}

// Name 供應商名稱
func (c *Client) Name() string { return "ollama" }

// GetModel 模型名稱
func (c *Client) GetModel() string { return c.cfg.Model }

// GetTimeout 請求逾時
func (c *Client) GetTimeout() time.Duration { return c.cfg.Timeout }

// Ping 以 /api/tags 確認伺服器在線
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	resp, err := c.client.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: ollama returned status %d", provider.ErrUnavailable, resp.StatusCode())
	}
	return nil
}

// Generate 呼叫 /api/generate（非串流）
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := generateRequest{
		Model:  c.cfg.Model,
		Prompt: req.Prompt(),
		Stream: false,
	}
	options := map[string]any{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if len(req.Stop) > 0 {
		options["stop"] = req.Stop
	}
	if len(options) > 0 {
		body.Options = options
	}

	var out generateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/api/generate")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to ollama: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		common.LogError("Ollama 回應錯誤",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", c.cfg.Model),
		)
		return nil, fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	content := strings.TrimSpace(out.Response)
	if content == "" {
		return nil, fmt.Errorf("empty content in ollama response")
	}

	return &provider.Response{
		Content: content,
		Model:   c.cfg.Model,
		Usage: provider.Usage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		},
	}, nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
