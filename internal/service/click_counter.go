package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"linkly/internal/apperrors"
	"linkly/internal/config"
	"linkly/internal/model"
)

type clickJob struct {
	shortKey string
	meta     model.ClickMeta
}

// ClickCounter 记录点击，失败只记日志，不影响重定向结果
//
// 同步模式下在返回前完成递增；异步模式下投递到有界队列，队列满时丢弃。
type ClickCounter struct {
	store   ClickStore
	timeout time.Duration
	logger  *zap.Logger

	async  bool
	queue  chan clickJob
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewClickCounter(store ClickStore, cfg config.ClickConfig, logger *zap.Logger) *ClickCounter {
	c := &ClickCounter{
		store:   store,
		timeout: cfg.Timeout,
		logger:  logger.Named("click"),
		async:   cfg.Async,
	}
	if !c.async {
		return c
	}

	c.queue = make(chan clickJob, cfg.QueueSize)
	for i := 0; i < cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	c.logger.Info("Click workers started",
		zap.Int("workers", cfg.Workers),
		zap.Int("queue_size", cfg.QueueSize),
	)
	return c
}

// Record 记录一次点击；ctx 取消不会中断已开始的递增
func (c *ClickCounter) Record(ctx context.Context, shortKey string, meta model.ClickMeta) {
	if !c.async {
		c.increment(context.WithoutCancel(ctx), shortKey, meta)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Warn("Click dropped after shutdown", zap.String("short_key", shortKey))
		return
	}
	select {
	case c.queue <- clickJob{shortKey: shortKey, meta: meta}:
	default:
		c.logger.Warn("Click queue full, dropping click", zap.String("short_key", shortKey))
	}
}

func (c *ClickCounter) worker() {
	defer c.wg.Done()
	for job := range c.queue {
		c.increment(context.Background(), job.shortKey, job.meta)
	}
}

func (c *ClickCounter) increment(ctx context.Context, shortKey string, meta model.ClickMeta) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	count, err := c.store.IncrementClick(ctx, shortKey, meta)
	if err != nil {
		c.logger.Warn("Failed to record click",
			zap.String("short_key", shortKey),
			zap.Error(fmt.Errorf("%w: %w", apperrors.ErrClickRecordingFailed, err)),
		)
		return
	}
	c.logger.Debug("Click recorded",
		zap.String("short_key", shortKey),
		zap.Int64("click_count", count),
	)
}

// Close 停止接收新的点击并等待队列处理完
func (c *ClickCounter) Close() {
	if !c.async {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("Click workers stopped")
}
