package svorder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gorbenco03/curatire-backend/common/model"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etaccess"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdevent"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/repo/rporder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/idgen"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

const (
	maxNumberAttempts = 5
	MaxWait           = 30 * time.Second
	staleAfter        = 3 * 24 * time.Hour
)

// NumberGenerator 订单号生成
type NumberGenerator interface {
	Next() (string, error)
}

// CreateInput 创建订单输入
type CreateInput struct {
	Customer etorder.Customer
	Lines    []etorder.LineInput
	Location string // 为空时使用操作人所在门店
	Notes    string
}

// OrderService 订单服务，负责订单业务编排
type OrderService struct {
	orderModule *mdorder.OrderModule
	eventModule *mdevent.EventModule
	numbers     NumberGenerator
	logger      logger.Logger
	now         func() time.Time
}

// NewOrderService 创建订单服务实例
func NewOrderService(orderModule *mdorder.OrderModule, eventModule *mdevent.EventModule, numbers NumberGenerator, log logger.Logger) *OrderService {
	if numbers == nil {
		numbers = idgen.NewOrderNumberGenerator()
	}
	return &OrderService{
		orderModule: orderModule,
		eventModule: eventModule,
		numbers:     numbers,
		logger:      log,
		now:         time.Now,
	}
}

// CreateOrder 创建订单（完整业务流程）
// 1. 确定门店并校验权限
// 2. 生成订单号，按件展开明细
// 3. 落库；订单号冲突时重新生成
// 4. 发布 order.created 事件
func (s *OrderService) CreateOrder(ctx context.Context, actor etaccess.Actor, in CreateInput) (*etorder.Order, error) {
	location := strings.TrimSpace(in.Location)
	if location == "" {
		location = actor.Location
	}
	if location == "" {
		return nil, errorx.Validation("location is required")
	}
	if !actor.CanAccess(location) {
		return nil, errorx.Newf(errorx.ErrForbidden, "cannot create orders for location %s", location)
	}

	var lastErr error
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		number, err := s.numbers.Next()
		if err != nil {
			return nil, err
		}

		order, err := etorder.NewOrder(idgen.NewID(), number, in.Customer, in.Lines, location, actor.UserID, in.Notes)
		if err != nil {
			return nil, errorx.Wrap(errorx.ErrValidation, err)
		}

		err = s.orderModule.CreateOrder(ctx, order)
		if err == nil {
			s.logger.Infof(ctx, "[OrderService] order %s created at %s with %d items by %s",
				order.OrderNumber, order.Location, len(order.Items), actor.DisplayName())
			s.eventModule.Publish(ctx, model.OrderEvent{
				Type:        model.EventOrderCreated,
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Status:      string(order.Status),
				Location:    order.Location,
				Actor:       actor.DisplayName(),
			})
			return order, nil
		}
		if !errors.Is(err, errorx.ErrDuplicateOrder) {
			return nil, err
		}

		lastErr = err
		s.logger.Warnf(ctx, "[OrderService] order number %s collided, attempt %d/%d", number, attempt, maxNumberAttempts)
	}
	return nil, lastErr
}

// GetOrder 查询订单（ID 或订单号）
// wait > 0 时先等待订单的下一个事件（最多 MaxWait），再返回最新数据
func (s *OrderService) GetOrder(ctx context.Context, actor etaccess.Actor, ref string, wait time.Duration) (*etorder.Order, error) {
	order, err := s.scopedOrder(ctx, actor, ref)
	if err != nil {
		return nil, err
	}
	if wait <= 0 || order.Status == etorder.StatusCompleted {
		return order, nil
	}
	if wait > MaxWait {
		wait = MaxWait
	}

	event, err := s.eventModule.WaitForEvent(ctx, order.ID, wait)
	if err != nil {
		s.logger.Debugf(ctx, "[OrderService] wait for order %s ended: %v", order.OrderNumber, err)
	} else {
		s.logger.Debugf(ctx, "[OrderService] order %s received event %s", order.OrderNumber, event.Type)
	}

	// 订阅前发布的事件收不到，等待结束后一律重新读取
	latest, err := s.orderModule.GetOrder(ctx, order.ID)
	if err != nil {
		s.logger.Warnf(ctx, "[OrderService] reload order %s after wait failed: %v", order.OrderNumber, err)
		return order, nil
	}
	return latest, nil
}

// ListOrders 查询订单列表；普通角色只能看到自己门店
func (s *OrderService) ListOrders(ctx context.Context, actor etaccess.Actor, filter rporder.ListFilter) ([]*etorder.Order, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, errorx.Newf(errorx.ErrValidation, "unknown status %q", filter.Status)
	}
	filter.Location = actor.ScopeLocation(filter.Location)
	return s.orderModule.ListOrders(ctx, filter)
}

// ListAttention 处理中超过 3 天的订单，以及已 ready 待取件的订单
func (s *OrderService) ListAttention(ctx context.Context, actor etaccess.Actor, location string) ([]*etorder.Order, error) {
	return s.orderModule.ListAttention(ctx, actor.ScopeLocation(location), s.now().Add(-staleAfter))
}

// UpdateStatus 修改订单状态
// 状态由单件推导，只允许手动设置 completed（客户取件）；已完成的订单重复提交直接返回
func (s *OrderService) UpdateStatus(ctx context.Context, actor etaccess.Actor, ref string, status etorder.Status, notes string) (*etorder.Order, error) {
	if status != etorder.StatusCompleted {
		return nil, errorx.Newf(errorx.ErrValidation, "status %q cannot be set manually, only %q is allowed", status, etorder.StatusCompleted)
	}

	load := func(ctx context.Context) (*etorder.Order, error) {
		return s.orderModule.GetOrder(ctx, ref)
	}
	mutation, err := s.orderModule.Mutate(ctx, load, func(order *etorder.Order) (bool, error) {
		if !actor.CanAccess(order.Location) {
			return false, errorx.Newf(errorx.ErrForbidden, "order %s belongs to another location", order.OrderNumber)
		}
		changed, err := order.Complete(notes, s.now())
		if err != nil {
			return false, errorx.Wrap(errorx.ErrValidation, err)
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}

	order := mutation.Order
	if mutation.Changed {
		s.logger.Infof(ctx, "[OrderService] order %s completed by %s", order.OrderNumber, actor.DisplayName())
		s.eventModule.Publish(ctx, model.OrderEvent{
			Type:        model.EventOrderCompleted,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      string(order.Status),
			Location:    order.Location,
			Actor:       actor.DisplayName(),
		})
	}
	return order, nil
}

// scopedOrder 查询订单并校验门店权限
func (s *OrderService) scopedOrder(ctx context.Context, actor etaccess.Actor, ref string) (*etorder.Order, error) {
	order, err := s.orderModule.GetOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.Location) {
		return nil, errorx.Newf(errorx.ErrForbidden, "order %s belongs to another location", order.OrderNumber)
	}
	return order, nil
}
