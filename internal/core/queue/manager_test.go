package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fridge-vision/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRunsTask(t *testing.T) {
	m := NewManager(config.QueueConfig{MaxConcurrent: 2, MaxWaiting: 1})

	boom := errors.New("boom")
	err := m.Do(context.Background(), "detect", func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	st := m.GetQueueStatus()
	assert.Equal(t, int64(1), st.ProcessedCount)
	assert.Equal(t, int64(0), st.InFlight)
	assert.Equal(t, 2, st.MaxConcurrent)
}

func TestDoRejectsWhenFull(t *testing.T) {
	m := NewManager(config.QueueConfig{MaxConcurrent: 1, MaxWaiting: 0})

	started := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.Do(context.Background(), "slow", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := m.Do(context.Background(), "fast", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int64(1), m.GetQueueStatus().RejectedCount)

	close(release)
	wg.Wait()
}

func TestDoWaitTimeout(t *testing.T) {
	m := NewManager(config.QueueConfig{MaxConcurrent: 1, MaxWaiting: 1, WaitTimeout: 20 * time.Millisecond})

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Do(context.Background(), "slow", func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := m.Do(context.Background(), "waiting", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrWaitTimeout)

	close(release)
	<-done
}

func TestDoWaitsForSlot(t *testing.T) {
	m := NewManager(config.QueueConfig{MaxConcurrent: 1, MaxWaiting: 4, WaitTimeout: time.Second})

	var mu sync.Mutex
	running, peak := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Do(context.Background(), "task", func(context.Context) error {
				mu.Lock()
				running++
				if running > peak {
					peak = running
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, peak)
	assert.Equal(t, int64(4), m.GetQueueStatus().ProcessedCount)
}

func TestNilManagerRunsDirectly(t *testing.T) {
	var m *Manager
	called := false

	require.NoError(t, m.Do(context.Background(), "x", func(context.Context) error { called = true; return nil }))
	assert.True(t, called)
}
