package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Order 订单实体（单件明细以 JSON 存储，整单一行，按 version 做乐观锁）
type Order struct {
	// 基础字段
	ID          string `gorm:"column:id;primaryKey;type:varchar(64)"`
	OrderNumber string `gorm:"column:order_number;type:varchar(16);not null;uniqueIndex:uk_order_number"`

	// 客户信息（拆列便于搜索）
	CustomerName  string `gorm:"column:customer_name;type:varchar(128);not null;index:idx_customer_name"`
	CustomerPhone string `gorm:"column:customer_phone;type:varchar(32);not null"`
	CustomerEmail string `gorm:"column:customer_email;type:varchar(255);not null;default:''"`

	// 单件明细
	Items datatypes.JSON `gorm:"column:items;type:json;not null"`

	// 创建时的汇总（不随明细重算）
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2);not null"`
	TotalItems  int             `gorm:"column:total_items;not null"`

	// 状态
	Status      string     `gorm:"column:status;type:varchar(16);not null;default:'pending';index:idx_location_status"`
	Location    string     `gorm:"column:location;type:varchar(64);not null;index:idx_location_status"`
	Notes       string     `gorm:"column:notes;type:text"`
	ReadyAt     *time.Time `gorm:"column:ready_at"`
	CollectedAt *time.Time `gorm:"column:collected_at"`

	// 通知标记（只由通知流程写入）
	NotificationSent bool       `gorm:"column:notification_sent;not null;default:false"`
	NotifiedAt       *time.Time `gorm:"column:notified_at"`

	// 发送占用时间，发送中的订单不会被其他入口重复发送
	NotificationClaimedAt *time.Time `gorm:"column:notification_claimed_at"`

	CreatedBy string `gorm:"column:created_by;type:varchar(64)"`
	Version   int64  `gorm:"column:version;not null;default:1"`

	// 时间戳
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;index:idx_updated_at"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderItemCode 单件编码索引表，保证扫码编码全局唯一
type OrderItemCode struct {
	ItemCode  string    `gorm:"column:item_code;primaryKey;type:varchar(32)"`
	OrderID   string    `gorm:"column:order_id;type:varchar(64);not null;index:idx_order_id"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName 指定表名
func (OrderItemCode) TableName() string {
	return "order_item_codes"
}

// OrderItem items 列中的单件结构
type OrderItem struct {
	ID          string          `json:"id"`
	ItemCode    string          `json:"item_code"`
	ServiceCode string          `json:"service_code"`
	ServiceName string          `json:"service_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      string          `json:"status"`
	Notes       string          `json:"notes,omitempty"`
	ScannedAt   *time.Time      `json:"scanned_at,omitempty"`
	ScannedBy   string          `json:"scanned_by,omitempty"`
}
