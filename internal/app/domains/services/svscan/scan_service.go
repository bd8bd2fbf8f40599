package svscan

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gorbenco03/curatire-backend/common/model"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etaccess"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etprimitive"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdevent"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/modules/mdorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/repo/rporder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

const (
	HistoryPageSize = 50
	defaultWindow   = 7 * 24 * time.Hour
)

// ReadyNotifier 订单首次 ready 后的通知入口（svnotify.NotifyService）
type ReadyNotifier interface {
	DispatchAsync(ctx context.Context, order *etorder.Order)
}

// ScanResult 扫码结果；AlreadyReady 表示重复扫码，不是错误
type ScanResult struct {
	Order        *etorder.Order
	Item         *etorder.Item
	AlreadyReady bool
	Progress     int
}

// HistoryFilter 扫码记录查询条件
type HistoryFilter struct {
	Location  string
	ScannedBy string
	From      *time.Time
	To        *time.Time
	etprimitive.Pagination
}

// ScanRecord 一条扫码记录
type ScanRecord struct {
	OrderID      string
	OrderNumber  string
	OrderStatus  etorder.Status
	CustomerName string
	Location     string
	ItemID       string
	ItemCode     string
	ServiceName  string
	Status       etorder.ItemStatus
	Notes        string
	ScannedAt    time.Time
	ScannedBy    string
}

// Stats 扫码统计（按订单创建时间筛选）
type Stats struct {
	TotalItems     int
	ScannedItems   int
	ReadyItems     int
	PendingItems   int
	ScanRate       float64
	CompletionRate float64
	ByScanner      map[string]int
}

// ScanService 扫码服务：按编码定位单件、校验门店、幂等地置为 ready
type ScanService struct {
	orderModule *mdorder.OrderModule
	eventModule *mdevent.EventModule
	notifier    ReadyNotifier
	logger      logger.Logger
	now         func() time.Time
}

// NewScanService 创建扫码服务实例
func NewScanService(orderModule *mdorder.OrderModule, eventModule *mdevent.EventModule, notifier ReadyNotifier, log logger.Logger) *ScanService {
	return &ScanService{
		orderModule: orderModule,
		eventModule: eventModule,
		notifier:    notifier,
		logger:      log,
		now:         time.Now,
	}
}

// ScanByCode 按扫码编码置为 ready（主流程）
// 1. 先校验格式，格式错误不做任何查询
// 2. 按编码定位订单，校验门店
// 3. 执行状态变更并写入（版本冲突自动重试）
// 4. 写入成功后发布事件；首次 ready 时异步通知
func (s *ScanService) ScanByCode(ctx context.Context, actor etaccess.Actor, code, notes string) (*ScanResult, error) {
	parsed, err := etorder.ParseItemCode(strings.TrimSpace(code))
	if err != nil {
		return nil, errorx.Wrap(errorx.ErrInvalidItemCode, err)
	}
	itemCode := parsed.String()

	load := func(ctx context.Context) (*etorder.Order, error) {
		order, err := s.orderModule.GetByItemCode(ctx, itemCode)
		if errors.Is(err, errorx.ErrOrderNotFound) {
			return nil, errorx.Newf(errorx.ErrItemNotFound, "item %s not found", itemCode)
		}
		return order, err
	}
	return s.scan(ctx, actor, load, itemCode, notes)
}

// ScanItem 按订单 + 单件定位（兼容旧扫码枪和手动置为 ready）
// orderRef 可以是订单 ID 或订单号，itemRef 可以是单件 ID 或编码
func (s *ScanService) ScanItem(ctx context.Context, actor etaccess.Actor, orderRef, itemRef, notes string) (*ScanResult, error) {
	if strings.TrimSpace(orderRef) == "" || strings.TrimSpace(itemRef) == "" {
		return nil, errorx.Validation("order id and item id are required")
	}
	load := func(ctx context.Context) (*etorder.Order, error) {
		return s.orderModule.GetOrder(ctx, orderRef)
	}
	return s.scan(ctx, actor, load, itemRef, notes)
}

// FindItemByCode 按编码查询单件（只读预览）
func (s *ScanService) FindItemByCode(ctx context.Context, actor etaccess.Actor, code string) (*etorder.Order, *etorder.Item, error) {
	parsed, err := etorder.ParseItemCode(strings.TrimSpace(code))
	if err != nil {
		return nil, nil, errorx.Wrap(errorx.ErrInvalidItemCode, err)
	}

	order, err := s.orderModule.GetByItemCode(ctx, parsed.String())
	if err != nil {
		if errors.Is(err, errorx.ErrOrderNotFound) {
			return nil, nil, errorx.Newf(errorx.ErrItemNotFound, "item %s not found", parsed)
		}
		return nil, nil, err
	}
	return s.locate(actor, order, parsed.String())
}

// ItemStatus 查询订单内某个单件的状态
func (s *ScanService) ItemStatus(ctx context.Context, actor etaccess.Actor, orderRef, itemRef string) (*etorder.Order, *etorder.Item, error) {
	order, err := s.orderModule.GetOrder(ctx, orderRef)
	if err != nil {
		return nil, nil, err
	}
	return s.locate(actor, order, itemRef)
}

// History 扫码记录，按扫码时间倒序
func (s *ScanService) History(ctx context.Context, actor etaccess.Actor, filter HistoryFilter) ([]*ScanRecord, int64, error) {
	if filter.Limit == 0 {
		filter.Limit = HistoryPageSize
	}
	p := filter.Pagination.Normalize()
	from, to := s.window(filter.From, filter.To)

	orders, err := s.orderModule.ListActivity(ctx, actor.ScopeLocation(filter.Location), from)
	if err != nil {
		return nil, 0, err
	}

	scannedBy := strings.ToLower(filter.ScannedBy)
	records := make([]*ScanRecord, 0)
	for _, order := range orders {
		for _, item := range order.Items {
			if item.ScannedAt == nil || item.ScannedAt.Before(from) || item.ScannedAt.After(to) {
				continue
			}
			if scannedBy != "" && !strings.Contains(strings.ToLower(item.ScannedBy), scannedBy) {
				continue
			}
			records = append(records, &ScanRecord{
				OrderID:      order.ID,
				OrderNumber:  order.OrderNumber,
				OrderStatus:  order.Status,
				CustomerName: order.Customer.Name,
				Location:     order.Location,
				ItemID:       item.ID,
				ItemCode:     item.ItemCode,
				ServiceName:  item.ServiceName,
				Status:       item.Status,
				Notes:        item.Notes,
				ScannedAt:    *item.ScannedAt,
				ScannedBy:    item.ScannedBy,
			})
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ScannedAt.After(records[j].ScannedAt) })

	total := int64(len(records))
	start := p.Offset()
	if start >= len(records) {
		return []*ScanRecord{}, total, nil
	}
	end := start + p.Limit
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], total, nil
}

// Stats 扫码统计
func (s *ScanService) Stats(ctx context.Context, actor etaccess.Actor, location string, from, to *time.Time) (*Stats, error) {
	start, end := s.window(from, to)
	orders, err := s.orderModule.ListAll(ctx, rporder.ListFilter{
		Location: actor.ScopeLocation(location),
		From:     &start,
		To:       &end,
	})
	if err != nil {
		return nil, err
	}

	stats := &Stats{ByScanner: make(map[string]int)}
	for _, order := range orders {
		for _, item := range order.Items {
			stats.TotalItems++
			if item.ScannedAt != nil {
				stats.ScannedItems++
				stats.ByScanner[item.ScannedBy]++
			}
			if item.Status == etorder.ItemStatusReady {
				stats.ReadyItems++
			} else {
				stats.PendingItems++
			}
		}
	}
	if stats.TotalItems > 0 {
		stats.ScanRate = float64(stats.ScannedItems) * 100 / float64(stats.TotalItems)
		stats.CompletionRate = float64(stats.ReadyItems) * 100 / float64(stats.TotalItems)
	}
	return stats, nil
}

// scan 扫码公共流程
func (s *ScanService) scan(ctx context.Context, actor etaccess.Actor, load mdorder.Loader, itemRef, notes string) (*ScanResult, error) {
	var (
		item         *etorder.Item
		alreadyReady bool
	)

	mutation, err := s.orderModule.Mutate(ctx, load, func(order *etorder.Order) (bool, error) {
		// 门店校验在定位单件之前，越权时不暴露单件是否存在
		if !actor.CanAccess(order.Location) {
			return false, errorx.Newf(errorx.ErrForbidden, "order %s belongs to another location", order.OrderNumber)
		}

		scanned, already, err := order.ScanItem(itemRef, actor.DisplayName(), notes, s.now())
		if err != nil {
			return false, domainError(err)
		}
		item, alreadyReady = scanned, already
		return !already, nil
	})
	if err != nil {
		return nil, err
	}

	order := mutation.Order
	result := &ScanResult{
		Order:        order,
		Item:         item,
		AlreadyReady: alreadyReady,
		Progress:     order.Progress(),
	}
	if !mutation.Changed {
		s.logger.Infof(ctx, "[ScanService] item %s of order %s already ready", item.ItemCode, order.OrderNumber)
		return result, nil
	}

	s.logger.Infof(ctx, "[ScanService] item %s scanned by %s, order %s now %s (%d%%)",
		item.ItemCode, actor.DisplayName(), order.OrderNumber, order.Status, result.Progress)

	s.eventModule.Publish(ctx, model.OrderEvent{
		Type:        model.EventItemScanned,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Location:    order.Location,
		ItemCode:    item.ItemCode,
		Actor:       actor.DisplayName(),
	})
	if order.Status == etorder.StatusReady && mutation.Previous != etorder.StatusReady {
		s.eventModule.Publish(ctx, model.OrderEvent{
			Type:        model.EventOrderReady,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      string(order.Status),
			Location:    order.Location,
			Actor:       actor.DisplayName(),
		})
	}

	if mutation.NotifyReady && s.notifier != nil {
		s.notifier.DispatchAsync(ctx, order)
	}
	return result, nil
}

// locate 校验门店并定位单件
func (s *ScanService) locate(actor etaccess.Actor, order *etorder.Order, itemRef string) (*etorder.Order, *etorder.Item, error) {
	if !actor.CanAccess(order.Location) {
		return nil, nil, errorx.Newf(errorx.ErrForbidden, "order %s belongs to another location", order.OrderNumber)
	}
	item := order.FindItem(itemRef)
	if item == nil {
		return nil, nil, errorx.Newf(errorx.ErrItemNotFound, "item %s not found in order %s", itemRef, order.OrderNumber)
	}
	return order, item, nil
}

// window 默认统计最近 7 天
func (s *ScanService) window(from, to *time.Time) (time.Time, time.Time) {
	end := s.now()
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultWindow)
	if from != nil {
		start = *from
	}
	return start, end
}

// domainError 领域错误归类
func domainError(err error) error {
	switch {
	case errors.Is(err, etorder.ErrItemNotFound):
		return errorx.Wrap(errorx.ErrItemNotFound, err)
	case errors.Is(err, etorder.ErrOrderCompleted):
		return errorx.Wrap(errorx.ErrOrderClosed, err)
	default:
		return errorx.Wrap(errorx.ErrValidation, err)
	}
}
