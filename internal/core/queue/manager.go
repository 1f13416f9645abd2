// Package queue 限制同時進行的推論呼叫（偵測、OCR、LLM）
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"fridge-vision/internal/infrastructure/config"
	"fridge-vision/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrWaitTimeout = errors.New("timed out waiting for a queue slot")
)

// Status 隊列狀態
type Status struct {
	InFlight       int64 `json:"in_flight"`
	Waiting        int64 `json:"waiting"`
	ProcessedCount int64 `json:"processed_count"`
	RejectedCount  int64 `json:"rejected_count"`
	MaxConcurrent  int   `json:"max_concurrent"`
	MaxWaiting     int   `json:"max_waiting"`
}

// Manager 以 semaphore 控制並行數，等待數超過上限時直接拒絕
type Manager struct {
	sem         *semaphore.Weighted
	maxRunning  int
	maxWaiting  int
	waitTimeout time.Duration

	inFlight  atomic.Int64
	waiting   atomic.Int64
	processed atomic.Int64
	rejected  atomic.Int64
}

// NewManager 創建新的隊列管理器
func NewManager(cfg config.QueueConfig) *Manager {
	running := cfg.MaxConcurrent
	if running <= 0 {
		running = 1
	}
	return &Manager{
		sem:         semaphore.NewWeighted(int64(running)),
		maxRunning:  running,
		maxWaiting:  cfg.MaxWaiting,
		waitTimeout: cfg.WaitTimeout,
	}
}

// Do 取得執行名額後呼叫 fn
func (m *Manager) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}

	if !m.sem.TryAcquire(1) {
		if int(m.waiting.Add(1)) > m.maxWaiting {
			m.waiting.Add(-1)
			m.rejected.Add(1)
			common.LogWarn("推論隊列已滿",
				zap.String("task", name),
				zap.Int("max_waiting", m.maxWaiting),
			)
			return ErrQueueFull
		}

		waitCtx := ctx
		if m.waitTimeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, m.waitTimeout)
			defer cancel()
		}
		err := m.sem.Acquire(waitCtx, 1)
		m.waiting.Add(-1)
		if err != nil {
			m.rejected.Add(1)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s", ErrWaitTimeout, name)
		}
	}

	m.inFlight.Add(1)
	defer func() {
		m.inFlight.Add(-1)
		m.processed.Add(1)
		m.sem.Release(1)
	}()
	return fn(ctx)
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() Status {
	if m == nil {
		return Status{}
	}
	return Status{
		InFlight:       m.inFlight.Load(),
		Waiting:        m.waiting.Load(),
		ProcessedCount: m.processed.Load(),
		RejectedCount:  m.rejected.Load(),
		MaxConcurrent:  m.maxRunning,
		MaxWaiting:     m.maxWaiting,
	}
}
