package svnotify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/gorbenco03/curatire-backend/common/model"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etaccess"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etprimitive"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdevent"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdnotify"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/repo/rporder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

const (
	defaultBulkLimit       = 50
	defaultBulkConcurrency = 4
	defaultClaimLease      = 5 * time.Minute
)

// Options 通知服务配置
type Options struct {
	BulkLimit       int // 批量补发上限
	BulkConcurrency int           // 批量补发并发数
	ClaimLease      time.Duration // 发送占用租约，不短于 mdnotify 的 MinClaimLease
}

// Status 订单通知状态
type Status struct {
	OrderNumber string
	EmailSent   bool
	HasEmail    bool
	ReadyItems  int
	TotalItems  int
	CanSend     bool
	Order       *etorder.Order
}

// BulkResult 批量补发结果
type BulkResult struct {
	Sent    int
	Failed  int
	Skipped int
	Errors  map[string]string // orderNumber -> 失败原因
}

// NotifyService 通知服务，负责取件通知的两阶段流程
// 阶段一（mdorder.Mutate 内）：判定是否需要通知并随订单一起持久化
// 阶段二（本服务）：写入成功后先占用通知，再异步发送，成功后单独写入已通知标记
// 非 force 的入口（自动发送、手动发送、批量补发、重试任务）都必须先占用成功才会发送
type NotifyService struct {
	orderModule  *mdorder.OrderModule
	notifyModule *mdnotify.NotifyModule
	eventModule  *mdevent.EventModule
	opts         Options
	logger       logger.Logger
	wg           sync.WaitGroup
}

// NewNotifyService 创建通知服务实例
func NewNotifyService(
	orderModule *mdorder.OrderModule,
	notifyModule *mdnotify.NotifyModule,
	eventModule *mdevent.EventModule,
	opts Options,
	log logger.Logger,
) *NotifyService {
	if opts.BulkLimit <= 0 {
		opts.BulkLimit = defaultBulkLimit
	}
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = defaultBulkConcurrency
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = defaultClaimLease
	}
	if minLease := notifyModule.MinClaimLease(); opts.ClaimLease < minLease {
		opts.ClaimLease = minLease
	}
	return &NotifyService{
		orderModule:  orderModule,
		notifyModule: notifyModule,
		eventModule:  eventModule,
		opts:         opts,
		logger:       log,
	}
}

// DispatchAsync 订单首次 ready 后异步发送通知
// 使用订单快照，不阻塞调用方，也不持有任何订单锁；失败时投递重试任务
func (s *NotifyService) DispatchAsync(ctx context.Context, order *etorder.Order) {
	snapshot := order.Clone()
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sent, err := s.deliver(ctx, snapshot, false)
		switch {
		case err == nil, sent:
		case errors.Is(err, errorx.ErrNotEligible):
			s.logger.Infof(ctx, "[NotifyService] skip automatic notification: %v", err)
		default:
			if rerr := s.notifyModule.ScheduleRetry(ctx, snapshot, err.Error()); rerr != nil {
				s.logger.Errorf(ctx, "[NotifyService] schedule retry for order %s failed: %v", snapshot.OrderNumber, rerr)
			}
		}
	}()
}

// Wait 等待所有进行中的异步发送结束（停机时调用）
func (s *NotifyService) Wait() {
	s.wg.Wait()
}

// Resend 手动发送
// 已发送过的订单只有 force=true 且操作人为管理员时才允许再次发送
func (s *NotifyService) Resend(ctx context.Context, actor etaccess.Actor, orderNumber string, force bool) (*etorder.Order, error) {
	if force && !actor.IsElevated() {
		return nil, errorx.New(errorx.ErrForbidden, "force resend requires an elevated role")
	}

	order, err := s.scopedOrder(ctx, actor, orderNumber)
	if err != nil {
		return nil, err
	}

	switch {
	case order.Status != etorder.StatusReady:
		return nil, errorx.Newf(errorx.ErrNotEligible, "order %s is %s, not ready", order.OrderNumber, order.Status)
	case !order.HasEmail():
		return nil, errorx.Newf(errorx.ErrNotEligible, "order %s has no customer email", order.OrderNumber)
	case !etorder.CanResend(order, force):
		return nil, errorx.Newf(errorx.ErrNotEligible, "notification for order %s was already sent", order.OrderNumber)
	}

	if _, err := s.deliver(ctx, order, force); err != nil {
		return nil, err
	}
	return s.orderModule.GetOrder(ctx, order.ID)
}

// Status 查询订单通知状态
func (s *NotifyService) Status(ctx context.Context, actor etaccess.Actor, orderNumber string) (*Status, error) {
	order, err := s.scopedOrder(ctx, actor, orderNumber)
	if err != nil {
		return nil, err
	}
	return &Status{
		OrderNumber: order.OrderNumber,
		EmailSent:   order.NotificationSent,
		HasEmail:    order.HasEmail(),
		ReadyItems:  order.ReadyItemCount(),
		TotalItems:  len(order.Items),
		CanSend:     etorder.CanResend(order, false),
		Order:       order,
	}, nil
}

// ListPending 已 ready 未通知的订单
func (s *NotifyService) ListPending(ctx context.Context, actor etaccess.Actor, location string, page etprimitive.Pagination) ([]*etorder.Order, int64, error) {
	return s.orderModule.ListPending(ctx, rporder.PendingFilter{
		Location:   actor.ScopeLocation(location),
		Pagination: page,
	})
}

// BulkResend 批量补发（仅管理员）
// 最多处理 BulkLimit 个待通知订单，并发受 BulkConcurrency 限制；单个失败不影响其他订单
func (s *NotifyService) BulkResend(ctx context.Context, actor etaccess.Actor, orderNumbers []string, location string) (*BulkResult, error) {
	if !actor.IsElevated() {
		return nil, errorx.New(errorx.ErrForbidden, "bulk resend requires an elevated role")
	}

	orders, _, err := s.orderModule.ListPending(ctx, rporder.PendingFilter{
		Location:     location,
		OrderNumbers: orderNumbers,
		Pagination:   etprimitive.Pagination{Page: 1, Limit: s.opts.BulkLimit},
	})
	if err != nil {
		return nil, err
	}

	var sent, failed, busy atomic.Int64
	var mu sync.Mutex
	failures := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BulkConcurrency)
	for _, order := range orders {
		order := order
		g.Go(func() error {
			delivered, err := s.deliver(gctx, order, false)
			switch {
			case err == nil, delivered:
				sent.Inc()
			case errors.Is(err, errorx.ErrNotEligible):
				// 其他入口正在发送或已发送
				busy.Inc()
			default:
				failed.Inc()
				mu.Lock()
				failures[order.OrderNumber] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	// 请求的订单号中不在待通知列表里的计为跳过
	skipped := int(busy.Load())
	if len(orderNumbers) > len(orders) {
		skipped += len(orderNumbers) - len(orders)
	}

	s.logger.Infof(ctx, "[NotifyService] bulk resend by %s: sent=%d failed=%d skipped=%d",
		actor.DisplayName(), sent.Load(), failed.Load(), skipped)

	return &BulkResult{
		Sent:    int(sent.Load()),
		Failed:  int(failed.Load()),
		Skipped: skipped,
		Errors:  failures,
	}, nil
}

// HandleRetry 处理队列中的重试任务
// 重新读取订单判断是否仍需发送；不再需要时直接返回 nil 以确认任务
func (s *NotifyService) HandleRetry(ctx context.Context, orderID string) error {
	order, err := s.orderModule.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !etorder.CanResend(order, false) {
		s.logger.Infof(ctx, "[NotifyService] order %s no longer needs notification (status=%s, sent=%v)",
			order.OrderNumber, order.Status, order.NotificationSent)
		return nil
	}
	sent, err := s.deliver(ctx, order, false)
	if sent || errors.Is(err, errorx.ErrNotEligible) {
		// 已发出时标记由补写任务负责；占用失败说明其他入口在发送
		if err != nil {
			s.logger.Infof(ctx, "[NotifyService] retry for order %s settled: %v", order.OrderNumber, err)
		}
		return nil
	}
	return err
}

// HandleMarkRetry 补写已通知标记，不会再次发送
func (s *NotifyService) HandleMarkRetry(ctx context.Context, orderID string) error {
	order, err := s.orderModule.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	written, err := s.orderModule.MarkNotificationSent(ctx, order.ID, false)
	if err != nil {
		return err
	}
	if !written {
		s.logger.Infof(ctx, "[NotifyService] order %s was already marked notified", order.OrderNumber)
		return nil
	}

	s.logger.Infof(ctx, "[NotifyService] notification flag restored for order %s", order.OrderNumber)
	s.eventModule.Publish(ctx, model.OrderEvent{
		Type:        model.EventNotificationSent,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Location:    order.Location,
	})
	return nil
}

// CheckConnection 检查发送通道
func (s *NotifyService) CheckConnection(ctx context.Context, actor etaccess.Actor) error {
	if !actor.IsElevated() {
		return errorx.New(errorx.ErrForbidden, "connection check requires an elevated role")
	}
	if err := s.notifyModule.CheckConnection(ctx); err != nil {
		return errorx.Wrap(errorx.ErrNotificationFailed, err)
	}
	return nil
}

// deliver 占用、发送并写入已通知标记
// sent=true 表示邮件已发出；此时若返回错误，说明标记写入失败，已投递补写任务
// 占用失败返回 ErrNotEligible；force 发送不占用
func (s *NotifyService) deliver(ctx context.Context, order *etorder.Order, force bool) (sent bool, err error) {
	if !force {
		claimed, err := s.orderModule.ClaimNotification(ctx, order.ID, s.opts.ClaimLease)
		if err != nil {
			return false, err
		}
		if !claimed {
			return false, errorx.Newf(errorx.ErrNotEligible, "notification for order %s was already sent or is in progress", order.OrderNumber)
		}
	}

	if err := s.notifyModule.Dispatch(ctx, order); err != nil {
		s.logger.Warnf(ctx, "[NotifyService] notify order %s failed: %v", order.OrderNumber, err)
		s.eventModule.Publish(ctx, model.OrderEvent{
			Type:        model.EventNotificationFailed,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      string(order.Status),
			Location:    order.Location,
			Detail:      err.Error(),
		})
		if !force {
			if rerr := s.orderModule.ReleaseNotificationClaim(ctx, order.ID); rerr != nil {
				s.logger.Warnf(ctx, "[NotifyService] release claim of order %s failed: %v", order.OrderNumber, rerr)
			}
		}
		return false, err
	}

	written, err := s.orderModule.MarkNotificationSent(ctx, order.ID, force)
	if err != nil {
		// 邮件已发出，占用保持到补写任务完成，期间其他入口不会再次发送
		s.logger.Errorf(ctx, "[NotifyService] mark order %s notified failed: %v", order.OrderNumber, err)
		if rerr := s.notifyModule.ScheduleMarkRetry(ctx, order, err.Error()); rerr != nil {
			s.logger.Errorf(ctx, "[NotifyService] schedule mark retry for order %s failed: %v", order.OrderNumber, rerr)
		}
		return true, err
	}
	if !written {
		s.logger.Warnf(ctx, "[NotifyService] order %s was already marked notified", order.OrderNumber)
	}

	s.logger.Infof(ctx, "[NotifyService] ready notification sent for order %s to %s", order.OrderNumber, order.Customer.Email)
	s.eventModule.Publish(ctx, model.OrderEvent{
		Type:        model.EventNotificationSent,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Location:    order.Location,
	})
	return true, nil
}

// scopedOrder 查询订单并校验门店权限
func (s *NotifyService) scopedOrder(ctx context.Context, actor etaccess.Actor, orderNumber string) (*etorder.Order, error) {
	order, err := s.orderModule.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.Location) {
		return nil, errorx.Newf(errorx.ErrForbidden, "order %s belongs to another location", orderNumber)
	}
	return order, nil
}
