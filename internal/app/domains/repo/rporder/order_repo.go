package rporder

import (
	"context"
	"time"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etprimitive"
)

// OrderRepository 订单仓储接口（只定义，不实现）
// 所有实现都必须支持单文档乐观并发控制
type OrderRepository interface {
	// Create 创建订单（连同全部单件）；订单号或单件编码重复返回 errorx.ErrDuplicateOrder
	Create(ctx context.Context, order *etorder.Order) error

	// GetByID 根据ID查询订单，不存在返回 errorx.ErrOrderNotFound
	GetByID(ctx context.Context, orderID string) (*etorder.Order, error)

	// GetByOrderNumber 根据订单号查询
	GetByOrderNumber(ctx context.Context, orderNumber string) (*etorder.Order, error)

	// GetByItemCode 根据单件编码查询所属订单
	GetByItemCode(ctx context.Context, itemCode string) (*etorder.Order, error)

	// Update 条件更新：仅当库中 version 等于 order.Version 时写入，成功后 order.Version 加一
	// 版本不匹配返回 errorx.ErrVersionConflict；不会写通知标记
	Update(ctx context.Context, order *etorder.Order) error

	// MarkNotificationSent 独立写入通知标记
	// force=false 时仅在尚未标记时写入，返回是否发生了写入
	// 写入标记的同时清除发送占用
	MarkNotificationSent(ctx context.Context, orderID string, at time.Time, force bool) (bool, error)

	// ClaimNotification 发送前占用通知
	// 仅当尚未标记、且没有占用或占用早于 now-lease 时写入占用时间，返回是否占用成功
	ClaimNotification(ctx context.Context, orderID string, now time.Time, lease time.Duration) (bool, error)

	// ReleaseNotificationClaim 发送失败后释放占用，重试无需等待租约到期
	ReleaseNotificationClaim(ctx context.Context, orderID string) error

	// List 分页查询订单列表
	List(ctx context.Context, filter ListFilter) ([]*etorder.Order, int64, error)

	// ListPendingNotifications 已 ready、未通知、有邮箱的订单
	ListPendingNotifications(ctx context.Context, filter PendingFilter) ([]*etorder.Order, int64, error)

	// ListAttention 需要关注的订单：处理中超过阈值，或已 ready 待取件
	ListAttention(ctx context.Context, location string, staleBefore time.Time) ([]*etorder.Order, error)

	// ListActivity 指定时间后有过变更的非 pending 订单（扫码记录统计用）
	ListActivity(ctx context.Context, location string, since time.Time) ([]*etorder.Order, error)
}

// ListFilter 订单列表过滤条件
type ListFilter struct {
	Status   etorder.Status
	Location string
	Search   string // 订单号、客户姓名或电话
	From     *time.Time
	To       *time.Time
	etprimitive.Pagination
}

// PendingFilter 待通知订单过滤条件
type PendingFilter struct {
	Location     string
	OrderNumbers []string
	etprimitive.Pagination
}
