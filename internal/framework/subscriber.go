package framework

import (
	"context"
	"sync"
	"time"

	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

// Subscriber 订阅者：从消息队列拉取消息，转发给 Processor
type Subscriber struct {
	cfg    *SubscriberConfig
	source MessageSource
	log    logger.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSubscriber 创建订阅者
func NewSubscriber(cfg *SubscriberConfig, source MessageSource, log logger.Logger) *Subscriber {
	return &Subscriber{
		cfg:    cfg,
		source: source,
		log:    log,
	}
}

// Start 启动 Concurrency 个拉取协程
func (s *Subscriber) Start(parentCtx context.Context, inputChan chan<- *Message) {
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel

	s.log.Infof(ctx, "[Subscriber] Starting with %d workers for queue: %s", s.cfg.Concurrency, s.cfg.QueueName)

	for i := 0; i < s.cfg.Concurrency; i++ {
		s.wg.Add(1)
		go s.loop(context.WithValue(ctx, logger.KeyWorkerID, i), i, inputChan)
	}
}

// Stop 停止拉取新消息
func (s *Subscriber) Stop() {
	s.log.Infof(context.Background(), "[Subscriber] Stopping...")
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait 等待所有拉取协程退出
func (s *Subscriber) Wait() {
	s.wg.Wait()
	s.log.Infof(context.Background(), "[Subscriber] All workers exited")
}

// loop 单个拉取协程
// 拉取出错只退避不退出；已拉到的消息在退出时丢弃，由 TTR 重新投递
func (s *Subscriber) loop(ctx context.Context, workerID int, inputChan chan<- *Message) {
	defer s.wg.Done()
	defer s.log.Infof(ctx, "[Subscriber-%d] Exiting", workerID)

	for ctx.Err() == nil {
		msg, err := s.source.Consume(s.cfg.QueueName, s.cfg.Timeout, s.cfg.TTR)
		if err != nil {
			s.log.Warnf(ctx, "[Subscriber-%d] Consume error: %v, retrying...", workerID, err)
			if !pause(ctx, s.cfg.ErrorBackoff) {
				return
			}
			continue
		}
		if msg == nil {
			continue
		}

		select {
		case inputChan <- msg:
			s.log.Debugf(ctx, "[Subscriber-%d] Message sent: %s", workerID, msg.ID)
		case <-ctx.Done():
			s.log.Warnf(ctx, "[Subscriber-%d] Dropping message due to shutdown: %s", workerID, msg.ID)
			return
		}

		if !pause(ctx, s.cfg.Rate) {
			return
		}
	}
}

// pause 等待 d，期间 ctx 取消返回 false
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
