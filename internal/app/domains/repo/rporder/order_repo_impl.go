package rporder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/gorbenco03/curatire-backend/common/entity"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
)

// OrderRepositoryImpl 订单仓储实现（MySQL）
type OrderRepositoryImpl struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储实例
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &OrderRepositoryImpl{db: db}
}

// AutoMigrate 建表（本地开发和测试使用）
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Order{}, &entity.OrderItemCode{})
}

// Create 创建订单，订单行和单件编码索引在同一事务中写入
func (r *OrderRepositoryImpl) Create(ctx context.Context, order *etorder.Order) error {
	po, err := r.toGormModel(order)
	if err != nil {
		return err
	}

	codes := make([]entity.OrderItemCode, 0, len(order.Items))
	for _, item := range order.Items {
		codes = append(codes, entity.OrderItemCode{
			ItemCode:  item.ItemCode,
			OrderID:   order.ID,
			CreatedAt: order.CreatedAt,
		})
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(po).Error; err != nil {
			return err
		}
		return tx.Create(&codes).Error
	})
	if isDuplicateKey(err) {
		return errorx.Wrap(errorx.ErrDuplicateOrder, err)
	}
	return err
}

// GetByID 根据ID查询订单
func (r *OrderRepositoryImpl) GetByID(ctx context.Context, orderID string) (*etorder.Order, error) {
	return r.first(ctx, "id = ?", orderID)
}

// GetByOrderNumber 根据订单号查询
func (r *OrderRepositoryImpl) GetByOrderNumber(ctx context.Context, orderNumber string) (*etorder.Order, error) {
	return r.first(ctx, "order_number = ?", orderNumber)
}

// GetByItemCode 先查编码索引表，再加载订单
func (r *OrderRepositoryImpl) GetByItemCode(ctx context.Context, itemCode string) (*etorder.Order, error) {
	var code entity.OrderItemCode
	err := r.db.WithContext(ctx).Where("item_code = ?", itemCode).First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.Newf(errorx.ErrOrderNotFound, "no order contains item %s", itemCode)
		}
		return nil, err
	}
	return r.GetByID(ctx, code.OrderID)
}

// Update 按版本号条件更新（compare-and-swap）
func (r *OrderRepositoryImpl) Update(ctx context.Context, order *etorder.Order) error {
	itemsJSON, err := json.Marshal(toItemModels(order.Items))
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&entity.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"items":        itemsJSON,
			"status":       string(order.Status),
			"notes":        order.Notes,
			"ready_at":     order.ReadyAt,
			"collected_at": order.CollectedAt,
			"updated_at":   order.UpdatedAt,
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errorx.Newf(errorx.ErrVersionConflict, "order %s changed since version %d", order.OrderNumber, order.Version)
	}

	order.Version++
	return nil
}

// MarkNotificationSent 写入通知标记
func (r *OrderRepositoryImpl) MarkNotificationSent(ctx context.Context, orderID string, at time.Time, force bool) (bool, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{}).Where("id = ?", orderID)
	if !force {
		query = query.Where("notification_sent = ?", false)
	}

	result := query.Updates(map[string]interface{}{
		"notification_sent":       true,
		"notified_at":             at,
		"notification_claimed_at": nil,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClaimNotification 条件写入发送占用；UpdateColumns 不刷新 updated_at
func (r *OrderRepositoryImpl) ClaimNotification(ctx context.Context, orderID string, now time.Time, lease time.Duration) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ? AND notification_sent = ?", orderID, false).
		Where("(notification_claimed_at IS NULL OR notification_claimed_at < ?)", now.Add(-lease)).
		UpdateColumns(map[string]interface{}{"notification_claimed_at": now})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseNotificationClaim 释放发送占用
func (r *OrderRepositoryImpl) ReleaseNotificationClaim(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ? AND notification_sent = ?", orderID, false).
		UpdateColumns(map[string]interface{}{"notification_claimed_at": nil}).Error
}

// List 分页查询订单列表
func (r *OrderRepositoryImpl) List(ctx context.Context, filter ListFilter) ([]*etorder.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}
	if filter.Search != "" {
		like := "%" + escapeLike(filter.Search) + "%"
		query = query.Where("order_number LIKE ? OR customer_name LIKE ? OR customer_phone LIKE ?", like, like, like)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	p := filter.Pagination.Normalize()
	return r.page(query, p.Offset(), p.Limit)
}

// ListPendingNotifications 待通知订单
func (r *OrderRepositoryImpl) ListPendingNotifications(ctx context.Context, filter PendingFilter) ([]*etorder.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("status = ? AND notification_sent = ? AND customer_email <> ''", string(etorder.StatusReady), false)
	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}
	if len(filter.OrderNumbers) > 0 {
		query = query.Where("order_number IN ?", filter.OrderNumbers)
	}
	p := filter.Pagination.Normalize()
	return r.page(query, p.Offset(), p.Limit)
}

// ListAttention 需要关注的订单
func (r *OrderRepositoryImpl) ListAttention(ctx context.Context, location string, staleBefore time.Time) ([]*etorder.Order, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("(status = ? AND created_at < ?) OR status = ?",
			string(etorder.StatusInProgress), staleBefore, string(etorder.StatusReady))
	if location != "" {
		query = query.Where("location = ?", location)
	}

	var pos []entity.Order
	if err := query.Order("created_at ASC").Find(&pos).Error; err != nil {
		return nil, err
	}
	return r.toDomainModels(pos)
}

// ListActivity 指定时间后有过变更的订单
func (r *OrderRepositoryImpl) ListActivity(ctx context.Context, location string, since time.Time) ([]*etorder.Order, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("status <> ? AND updated_at >= ?", string(etorder.StatusPending), since)
	if location != "" {
		query = query.Where("location = ?", location)
	}

	var pos []entity.Order
	if err := query.Order("updated_at DESC").Find(&pos).Error; err != nil {
		return nil, err
	}
	return r.toDomainModels(pos)
}

func (r *OrderRepositoryImpl) first(ctx context.Context, cond string, arg interface{}) (*etorder.Order, error) {
	var po entity.Order
	err := r.db.WithContext(ctx).Where(cond, arg).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.Newf(errorx.ErrOrderNotFound, "order %v not found", arg)
		}
		return nil, err
	}
	return r.toDomainModel(&po)
}

func (r *OrderRepositoryImpl) page(query *gorm.DB, offset, limit int) ([]*etorder.Order, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var pos []entity.Order
	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&pos).Error; err != nil {
		return nil, 0, err
	}

	orders, err := r.toDomainModels(pos)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// toGormModel 领域对象转换为 GORM 模型
func (r *OrderRepositoryImpl) toGormModel(order *etorder.Order) (*entity.Order, error) {
	itemsJSON, err := json.Marshal(toItemModels(order.Items))
	if err != nil {
		return nil, fmt.Errorf("marshal items failed: %w", err)
	}

	return &entity.Order{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		CustomerName:     order.Customer.Name,
		CustomerPhone:    order.Customer.Phone,
		CustomerEmail:    order.Customer.Email,
		Items:            itemsJSON,
		TotalAmount:      order.TotalAmount,
		TotalItems:       order.TotalItems,
		Status:           string(order.Status),
		Location:         order.Location,
		Notes:            order.Notes,
		ReadyAt:          order.ReadyAt,
		CollectedAt:      order.CollectedAt,
		NotificationSent: order.NotificationSent,
		NotifiedAt:       order.NotifiedAt,
		CreatedBy:        order.CreatedBy,
		Version:          order.Version,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}, nil
}

// toDomainModel GORM 模型转换为领域对象
func (r *OrderRepositoryImpl) toDomainModel(po *entity.Order) (*etorder.Order, error) {
	var items []entity.OrderItem
	if err := json.Unmarshal(po.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshal items of order %s failed: %w", po.ID, err)
	}

	return &etorder.Order{
		ID:          po.ID,
		OrderNumber: po.OrderNumber,
		Customer: etorder.Customer{
			Name:  po.CustomerName,
			Phone: po.CustomerPhone,
			Email: po.CustomerEmail,
		},
		Items:            fromItemModels(items),
		TotalAmount:      po.TotalAmount,
		TotalItems:       po.TotalItems,
		Status:           etorder.Status(po.Status),
		Location:         po.Location,
		Notes:            po.Notes,
		ReadyAt:          po.ReadyAt,
		CollectedAt:      po.CollectedAt,
		NotificationSent: po.NotificationSent,
		NotifiedAt:       po.NotifiedAt,
		CreatedBy:        po.CreatedBy,
		Version:          po.Version,
		CreatedAt:        po.CreatedAt,
		UpdatedAt:        po.UpdatedAt,
	}, nil
}

func (r *OrderRepositoryImpl) toDomainModels(pos []entity.Order) ([]*etorder.Order, error) {
	orders := make([]*etorder.Order, 0, len(pos))
	for i := range pos {
		order, err := r.toDomainModel(&pos[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func toItemModels(items []*etorder.Item) []entity.OrderItem {
	out := make([]entity.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, entity.OrderItem{
			ID:          item.ID,
			ItemCode:    item.ItemCode,
			ServiceCode: item.ServiceCode,
			ServiceName: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
			Status:      string(item.Status),
			Notes:       item.Notes,
			ScannedAt:   item.ScannedAt,
			ScannedBy:   item.ScannedBy,
		})
	}
	return out
}

func fromItemModels(items []entity.OrderItem) []*etorder.Item {
	out := make([]*etorder.Item, 0, len(items))
	for _, item := range items {
		out = append(out, &etorder.Item{
			ID:          item.ID,
			ItemCode:    item.ItemCode,
			ServiceCode: item.ServiceCode,
			ServiceName: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
			Status:      etorder.ItemStatus(item.Status),
			Notes:       item.Notes,
			ScannedAt:   item.ScannedAt,
			ScannedBy:   item.ScannedBy,
		})
	}
	return out
}

// isDuplicateKey 唯一索引冲突（依赖 gorm TranslateError，兼容未翻译的驱动错误）
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
