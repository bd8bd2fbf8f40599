package model

import "time"

// 订单生命周期事件类型
const (
	EventOrderCreated       = "order.created"
	EventItemScanned        = "item.scanned"
	EventOrderReady         = "order.ready"
	EventOrderCompleted     = "order.completed"
	EventNotificationSent   = "notification.sent"
	EventNotificationFailed = "notification.failed"
)

// OrderEvent 订单事件（Redis 实时频道和 Kafka 审计 topic 共用）
type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	ItemCode    string    `json:"item_code,omitempty"`
	Actor       string    `json:"actor,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	At          time.Time `json:"at"`
}
