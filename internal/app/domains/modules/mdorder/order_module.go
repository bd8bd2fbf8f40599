package mdorder

import (
	"context"
	"errors"
	"time"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etprimitive"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/repo/rporder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

// DefaultMaxRetries 版本冲突时的默认重试次数
const DefaultMaxRetries = 5

// Loader 加载待修改的订单
type Loader func(ctx context.Context) (*etorder.Order, error)

// MutateFunc 在订单上执行领域行为，返回是否有修改
type MutateFunc func(order *etorder.Order) (changed bool, err error)

// Mutation 一次修改的结果
type Mutation struct {
	Order       *etorder.Order // 持久化后的订单
	Previous    etorder.Status // 修改前已持久化的状态
	Changed     bool
	NotifyReady bool // 本次写入使订单首次进入 ready，需要自动通知
}

// OrderModule 订单模块（业务编排层）
type OrderModule struct {
	orderRepo  rporder.OrderRepository
	maxRetries int
	logger     logger.Logger
	now        func() time.Time
}

// NewOrderModule 创建订单模块
func NewOrderModule(orderRepo rporder.OrderRepository, maxRetries int, log logger.Logger) *OrderModule {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}
	return &OrderModule{
		orderRepo:  orderRepo,
		maxRetries: maxRetries,
		logger:     log,
		now:        time.Now,
	}
}

// CreateOrder 创建订单（数据操作）
func (m *OrderModule) CreateOrder(ctx context.Context, order *etorder.Order) error {
	return m.orderRepo.Create(ctx, order)
}

// GetOrder 按订单 ID 或订单号查询
func (m *OrderModule) GetOrder(ctx context.Context, ref string) (*etorder.Order, error) {
	if etorder.IsOrderNumber(ref) {
		return m.orderRepo.GetByOrderNumber(ctx, ref)
	}
	return m.orderRepo.GetByID(ctx, ref)
}

// GetByItemCode 根据单件编码查询订单
func (m *OrderModule) GetByItemCode(ctx context.Context, itemCode string) (*etorder.Order, error) {
	return m.orderRepo.GetByItemCode(ctx, itemCode)
}

// ListOrders 查询订单列表
func (m *OrderModule) ListOrders(ctx context.Context, filter rporder.ListFilter) ([]*etorder.Order, int64, error) {
	return m.orderRepo.List(ctx, filter)
}

// ListAll 按条件分批读取全部订单（统计使用）
func (m *OrderModule) ListAll(ctx context.Context, filter rporder.ListFilter) ([]*etorder.Order, error) {
	filter.Pagination = etprimitive.Pagination{Page: 1, Limit: etprimitive.MaxPageSize}
	out := make([]*etorder.Order, 0)
	for {
		orders, total, err := m.orderRepo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, orders...)
		if len(orders) == 0 || int64(len(out)) >= total {
			return out, nil
		}
		filter.Page++
	}
}

// ListPending 待通知订单
func (m *OrderModule) ListPending(ctx context.Context, filter rporder.PendingFilter) ([]*etorder.Order, int64, error) {
	return m.orderRepo.ListPendingNotifications(ctx, filter)
}

// ListAttention 需要关注的订单
func (m *OrderModule) ListAttention(ctx context.Context, location string, staleBefore time.Time) ([]*etorder.Order, error) {
	return m.orderRepo.ListAttention(ctx, location, staleBefore)
}

// ListActivity 扫码记录
func (m *OrderModule) ListActivity(ctx context.Context, location string, since time.Time) ([]*etorder.Order, error) {
	return m.orderRepo.ListActivity(ctx, location, since)
}

// MarkNotificationSent 写入通知标记
func (m *OrderModule) MarkNotificationSent(ctx context.Context, orderID string, force bool) (bool, error) {
	return m.orderRepo.MarkNotificationSent(ctx, orderID, m.now(), force)
}

// ClaimNotification 发送前占用通知，lease 内其他入口无法再次占用
func (m *OrderModule) ClaimNotification(ctx context.Context, orderID string, lease time.Duration) (bool, error) {
	return m.orderRepo.ClaimNotification(ctx, orderID, m.now(), lease)
}

// ReleaseNotificationClaim 释放发送占用
func (m *OrderModule) ReleaseNotificationClaim(ctx context.Context, orderID string) error {
	return m.orderRepo.ReleaseNotificationClaim(ctx, orderID)
}

// Mutate 读取-修改-条件写入循环
// 1. 加载订单并记录修改前状态
// 2. 执行领域行为，重新推导状态
// 3. 按版本号写入；冲突时重新加载，最多 maxRetries 次
// 通知判定基于本轮加载时的状态，只有写入成功的那一轮的判定会返回
func (m *OrderModule) Mutate(ctx context.Context, load Loader, fn MutateFunc) (*Mutation, error) {
	var lastErr error
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		order, err := load(ctx)
		if err != nil {
			return nil, err
		}
		previous := order.Status

		changed, err := fn(order)
		if err != nil {
			return nil, err
		}
		if !changed {
			return &Mutation{Order: order, Previous: previous}, nil
		}

		order.Reconcile(m.now())
		notify := etorder.ShouldNotifyReady(previous, order)

		err = m.orderRepo.Update(ctx, order)
		if err == nil {
			return &Mutation{
				Order:       order,
				Previous:    previous,
				Changed:     true,
				NotifyReady: notify,
			}, nil
		}
		if !errors.Is(err, errorx.ErrVersionConflict) {
			return nil, err
		}

		lastErr = err
		m.logger.Warnf(ctx, "[OrderModule] version conflict on order %s, attempt %d/%d", order.OrderNumber, attempt, m.maxRetries)
	}

	return nil, lastErr
}
