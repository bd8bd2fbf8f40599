package rporder

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
)

// MemoryOrderRepository 内存订单仓储（storage.driver=memory，本地开发和测试使用）
// 存取都做深拷贝，版本号语义与 MySQL 实现一致
type MemoryOrderRepository struct {
	mu       sync.RWMutex
	orders   map[string]*etorder.Order
	byNumber map[string]string
	byCode   map[string]string
	claims   map[string]time.Time // orderID -> 发送占用时间
}

// NewMemoryOrderRepository 创建内存仓储
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:   make(map[string]*etorder.Order),
		byNumber: make(map[string]string),
		byCode:   make(map[string]string),
		claims:   make(map[string]time.Time),
	}
}

// Create 创建订单
func (r *MemoryOrderRepository) Create(ctx context.Context, order *etorder.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; ok {
		return errorx.Newf(errorx.ErrDuplicateOrder, "order id %s already exists", order.ID)
	}
	if _, ok := r.byNumber[order.OrderNumber]; ok {
		return errorx.Newf(errorx.ErrDuplicateOrder, "order number %s already exists", order.OrderNumber)
	}
	for _, item := range order.Items {
		if _, ok := r.byCode[item.ItemCode]; ok {
			return errorx.Newf(errorx.ErrDuplicateOrder, "item code %s already exists", item.ItemCode)
		}
	}

	r.orders[order.ID] = order.Clone()
	r.byNumber[order.OrderNumber] = order.ID
	for _, item := range order.Items {
		r.byCode[item.ItemCode] = order.ID
	}
	return nil
}

// GetByID 根据ID查询订单
func (r *MemoryOrderRepository) GetByID(ctx context.Context, orderID string) (*etorder.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(orderID, orderID)
}

// GetByOrderNumber 根据订单号查询
func (r *MemoryOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*etorder.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.byNumber[orderNumber], orderNumber)
}

// GetByItemCode 根据单件编码查询
func (r *MemoryOrderRepository) GetByItemCode(ctx context.Context, itemCode string) (*etorder.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.byCode[itemCode], itemCode)
}

// Update 按版本号条件更新
func (r *MemoryOrderRepository) Update(ctx context.Context, order *etorder.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return errorx.Newf(errorx.ErrOrderNotFound, "order %s not found", order.ID)
	}
	if stored.Version != order.Version {
		return errorx.Newf(errorx.ErrVersionConflict, "order %s changed since version %d", order.OrderNumber, order.Version)
	}

	next := order.Clone()
	next.Version = stored.Version + 1
	// 通知标记只由 MarkNotificationSent 维护
	next.NotificationSent = stored.NotificationSent
	next.NotifiedAt = stored.NotifiedAt
	r.orders[order.ID] = next

	order.Version = next.Version
	return nil
}

// MarkNotificationSent 写入通知标记
func (r *MemoryOrderRepository) MarkNotificationSent(ctx context.Context, orderID string, at time.Time, force bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[orderID]
	if !ok {
		return false, nil
	}
	if stored.NotificationSent && !force {
		return false, nil
	}
	stored.NotificationSent = true
	notifiedAt := at
	stored.NotifiedAt = &notifiedAt
	delete(r.claims, orderID)
	return true, nil
}

// ClaimNotification 占用通知发送
func (r *MemoryOrderRepository) ClaimNotification(ctx context.Context, orderID string, now time.Time, lease time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[orderID]
	if !ok || stored.NotificationSent {
		return false, nil
	}
	if claimedAt, ok := r.claims[orderID]; ok && !claimedAt.Before(now.Add(-lease)) {
		return false, nil
	}
	r.claims[orderID] = now
	return true, nil
}

// ReleaseNotificationClaim 释放发送占用
func (r *MemoryOrderRepository) ReleaseNotificationClaim(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, orderID)
	return nil
}

// List 分页查询订单列表
func (r *MemoryOrderRepository) List(ctx context.Context, filter ListFilter) ([]*etorder.Order, int64, error) {
	search := strings.ToLower(filter.Search)
	p := filter.Pagination.Normalize()
	return r.page(p.Offset(), p.Limit, func(o *etorder.Order) bool {
		if filter.Status != "" && o.Status != filter.Status {
			return false
		}
		if filter.Location != "" && o.Location != filter.Location {
			return false
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(o.OrderNumber), search) &&
			!strings.Contains(strings.ToLower(o.Customer.Name), search) &&
			!strings.Contains(o.Customer.Phone, search) {
			return false
		}
		if filter.From != nil && o.CreatedAt.Before(*filter.From) {
			return false
		}
		if filter.To != nil && o.CreatedAt.After(*filter.To) {
			return false
		}
		return true
	})
}

// ListPendingNotifications 待通知订单
func (r *MemoryOrderRepository) ListPendingNotifications(ctx context.Context, filter PendingFilter) ([]*etorder.Order, int64, error) {
	numbers := make(map[string]bool, len(filter.OrderNumbers))
	for _, n := range filter.OrderNumbers {
		numbers[n] = true
	}
	p := filter.Pagination.Normalize()
	return r.page(p.Offset(), p.Limit, func(o *etorder.Order) bool {
		if o.Status != etorder.StatusReady || o.NotificationSent || !o.HasEmail() {
			return false
		}
		if filter.Location != "" && o.Location != filter.Location {
			return false
		}
		return len(numbers) == 0 || numbers[o.OrderNumber]
	})
}

// ListAttention 需要关注的订单
func (r *MemoryOrderRepository) ListAttention(ctx context.Context, location string, staleBefore time.Time) ([]*etorder.Order, error) {
	orders := r.filter(func(o *etorder.Order) bool {
		if location != "" && o.Location != location {
			return false
		}
		stale := o.Status == etorder.StatusInProgress && o.CreatedAt.Before(staleBefore)
		return stale || o.Status == etorder.StatusReady
	})
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}

// ListActivity 指定时间后有过变更的订单
func (r *MemoryOrderRepository) ListActivity(ctx context.Context, location string, since time.Time) ([]*etorder.Order, error) {
	orders := r.filter(func(o *etorder.Order) bool {
		if location != "" && o.Location != location {
			return false
		}
		return o.Status != etorder.StatusPending && !o.UpdatedAt.Before(since)
	})
	sort.Slice(orders, func(i, j int) bool { return orders[i].UpdatedAt.After(orders[j].UpdatedAt) })
	return orders, nil
}

func (r *MemoryOrderRepository) get(orderID, ref string) (*etorder.Order, error) {
	stored, ok := r.orders[orderID]
	if !ok {
		return nil, errorx.Newf(errorx.ErrOrderNotFound, "order %s not found", ref)
	}
	return stored.Clone(), nil
}

func (r *MemoryOrderRepository) filter(match func(*etorder.Order) bool) []*etorder.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*etorder.Order, 0)
	for _, o := range r.orders {
		if match(o) {
			out = append(out, o.Clone())
		}
	}
	return out
}

func (r *MemoryOrderRepository) page(offset, limit int, match func(*etorder.Order) bool) ([]*etorder.Order, int64, error) {
	orders := r.filter(match)
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })

	total := int64(len(orders))
	if offset >= len(orders) {
		return []*etorder.Order{}, total, nil
	}
	end := offset + limit
	if end > len(orders) {
		end = len(orders)
	}
	return orders[offset:end], total, nil
}
