package mdnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gorbenco03/curatire-backend/common/model"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

// Dispatcher 通知发送通道（SMTP 或开发环境的日志实现）
type Dispatcher interface {
	SendReadyNotification(ctx context.Context, order *etorder.Order) error
	Ping(ctx context.Context) error
}

// JobPublisher 延迟任务投递（lmstfy）
type JobPublisher interface {
	Publish(queue string, data []byte, ttl, delay uint32) error
}

// Options 通知模块配置
type Options struct {
	Queue      string        // 重试队列
	Timeout    time.Duration // 单次发送超时
	RetryDelay time.Duration // 失败后重试延迟
	RetryTTL   time.Duration // 重试任务存活时间
}

// NotifyModule 通知模块
// 职责：
// 1. 调用发送通道并控制超时
// 2. 构造重试任务消息并投递到队列
type NotifyModule struct {
	dispatcher Dispatcher
	publisher  JobPublisher
	opts       Options
	logger     logger.Logger
}

// NewNotifyModule 创建通知模块；publisher 为空时不投递重试任务
func NewNotifyModule(dispatcher Dispatcher, publisher JobPublisher, opts Options, log logger.Logger) *NotifyModule {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Minute
	}
	if opts.RetryTTL <= 0 {
		opts.RetryTTL = 24 * time.Hour
	}
	return &NotifyModule{
		dispatcher: dispatcher,
		publisher:  publisher,
		opts:       opts,
		logger:     log,
	}
}

// Dispatch 发送取件通知，超时或失败都归类为 ErrNotificationFailed
func (m *NotifyModule) Dispatch(ctx context.Context, order *etorder.Order) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.dispatcher.SendReadyNotification(ctx, order)
	}()

	select {
	case err := <-done:
		if err != nil {
			return errorx.Wrap(errorx.ErrNotificationFailed, err)
		}
		return nil
	case <-ctx.Done():
		return errorx.Wrap(errorx.ErrNotificationFailed, fmt.Errorf("send to %s: %w", order.Customer.Email, ctx.Err()))
	}
}

// ScheduleRetry 投递发送重试任务
// notifier 消费时会重新读取订单判断，这里只携带订单定位信息
func (m *NotifyModule) ScheduleRetry(ctx context.Context, order *etorder.Order, reason string) error {
	if m.publisher == nil || m.opts.Queue == "" {
		m.logger.Warnf(ctx, "[NotifyModule] retry queue not configured, order %s will wait for manual resend", order.OrderNumber)
		return nil
	}
	return m.publish(ctx, order, model.NotifyStepSend, reason)
}

// ScheduleMarkRetry 邮件已发出但标记写入失败，投递只写标记的任务
func (m *NotifyModule) ScheduleMarkRetry(ctx context.Context, order *etorder.Order, reason string) error {
	if m.publisher == nil || m.opts.Queue == "" {
		return fmt.Errorf("retry queue not configured, order %s stays unmarked", order.OrderNumber)
	}
	return m.publish(ctx, order, model.NotifyStepMark, reason)
}

func (m *NotifyModule) publish(ctx context.Context, order *etorder.Order, step, reason string) error {
	requestID := logger.TraceID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	message := model.NotifyJob{
		Payload: model.NotifyPayload{
			Data: model.NotifyData{
				RequestID:  requestID,
				ActionType: model.ActionNotifyReady,
				ID:         order.ID,
				Data: model.NotifyBusinessData{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					Step:        step,
					Reason:      reason,
				},
			},
		},
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal notify job failed: %w", err)
	}

	return m.publisher.Publish(m.opts.Queue, data, uint32(m.opts.RetryTTL.Seconds()), uint32(m.opts.RetryDelay.Seconds()))
}

// MinClaimLease 发送占用的最短租约：覆盖一次发送超时和补写标记任务的延迟
func (m *NotifyModule) MinClaimLease() time.Duration {
	return m.opts.Timeout + m.opts.RetryDelay
}

// CheckConnection 检查发送通道是否可用
func (m *NotifyModule) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()
	return m.dispatcher.Ping(ctx)
}
