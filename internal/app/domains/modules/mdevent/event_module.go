package mdevent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorbenco03/curatire-backend/common/model"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

// Broadcaster 实时频道（Redis Pub/Sub）
type Broadcaster interface {
	Publish(ctx context.Context, channel string, message string) error
	Subscribe(ctx context.Context, channel string, timeout time.Duration) (string, error)
}

// AuditWriter 事件审计流（Kafka）
type AuditWriter interface {
	Write(ctx context.Context, key string, value []byte) error
}

// EventModule 订单事件模块
// 职责：
// 1. 频道命名规则（order:events:{orderID}）
// 2. 同一事件同时推送到实时频道和审计流，任一通道可为空
type EventModule struct {
	broadcaster Broadcaster
	audit       AuditWriter
	logger      logger.Logger
}

// NewEventModule 创建事件模块
func NewEventModule(broadcaster Broadcaster, audit AuditWriter, log logger.Logger) *EventModule {
	return &EventModule{
		broadcaster: broadcaster,
		audit:       audit,
		logger:      log,
	}
}

// Channel 订单事件频道名
func Channel(orderID string) string {
	return fmt.Sprintf("order:events:%s", orderID)
}

// Publish 发布事件；发布失败只记录日志，不影响主流程
func (m *EventModule) Publish(ctx context.Context, event model.OrderEvent) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		m.logger.Errorf(ctx, "[EventModule] marshal event %s failed: %v", event.Type, err)
		return
	}

	if m.broadcaster != nil {
		if err := m.broadcaster.Publish(ctx, Channel(event.OrderID), string(data)); err != nil {
			m.logger.Warnf(ctx, "[EventModule] broadcast %s for order %s failed: %v", event.Type, event.OrderNumber, err)
		}
	}
	if m.audit != nil {
		if err := m.audit.Write(ctx, event.OrderID, data); err != nil {
			m.logger.Warnf(ctx, "[EventModule] audit %s for order %s failed: %v", event.Type, event.OrderNumber, err)
		}
	}
}

// WaitForEvent 等待订单的下一个事件（长轮询）
func (m *EventModule) WaitForEvent(ctx context.Context, orderID string, timeout time.Duration) (*model.OrderEvent, error) {
	if m.broadcaster == nil {
		return nil, fmt.Errorf("event broadcaster not configured")
	}

	payload, err := m.broadcaster.Subscribe(ctx, Channel(orderID), timeout)
	if err != nil {
		return nil, err
	}

	var event model.OrderEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("unmarshal order event failed: %w", err)
	}
	return &event, nil
}
