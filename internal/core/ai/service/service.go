package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"fridge-vision/internal/core/ai/cache"
	"fridge-vision/internal/core/ai/provider"
	"fridge-vision/internal/pkg/common"

	"go.uber.org/zap"
)

// 可用性探測結果的保存時間
const availabilityTTL = 30 * time.Second

// Service AI 服務：供應商呼叫加上回應快取
type Service struct {
	provider provider.Provider
	cache    cache.Store

	mu        sync.Mutex
	available bool
	checkedAt time.Time
}

// NewService 創建 AI 服務，store 可為 nil
func NewService(p provider.Provider, store cache.Store) *Service {
	return &Service{provider: p, cache: store}
}

// Available 供應商是否可用，結果會暫存一段時間
func (s *Service) Available(ctx context.Context) bool {
	if s == nil || s.provider == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkedAt.IsZero() && time.Since(s.checkedAt) < availabilityTTL {
		return s.available
	}

	err := s.provider.Ping(ctx)
	s.available = err == nil
	s.checkedAt = time.Now()
	if err != nil {
		common.LogWarn("AI 供應商不可用",
			zap.String("provider", s.provider.Name()),
			zap.Error(err),
		)
	}
	return s.available
}

// normalizePrompt 統一空白，確保快取 key 一致
func normalizePrompt(prompt string) string {
	return strings.Join(strings.Fields(prompt), " ")
}

// ProcessRequest 統一對外方法
func (s *Service) ProcessRequest(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if s == nil || s.provider == nil {
		return nil, provider.ErrUnavailable
	}

	for i := range req.Messages {
		req.Messages[i].Content = normalizePrompt(req.Messages[i].Content)
	}
	key := cache.Key("llm",
		s.provider.Name(),
		s.provider.GetModel(),
		strconv.FormatFloat(req.Temperature, 'f', 2, 64),
		req.Prompt(),
	)

	if s.cache != nil {
		val, err := s.cache.Get(ctx, key)
		switch {
		case err == nil && val != "":
			common.LogCacheHit("llm")
			return &provider.Response{Content: val, Model: s.provider.GetModel(), CacheHit: true}, nil
		case err != nil && !errors.Is(err, cache.ErrCacheMiss):
			common.LogWarn("讀取快取失敗", zap.Error(err))
		default:
			common.LogCacheMiss("llm")
		}
	}

	start := time.Now()
	resp, err := s.provider.Generate(ctx, req)
	common.LogAICall(s.provider.Name(), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", s.provider.Name(), err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp.Content); err != nil {
			common.LogWarn("寫入快取失敗", zap.Error(err))
		}
	}
	return resp, nil
}

// Complete 單則提示的便捷呼叫，回傳文字內容
func (s *Service) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := s.ProcessRequest(ctx, provider.NewUserRequest(prompt, temperature))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Close 關閉供應商與快取
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.provider != nil {
		errs = append(errs, s.provider.Close())
	}
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	return errors.Join(errs...)
}
