package response

import (
	"math"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etprimitive"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svnotify"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svscan"
)

// FromOrderEntity 从领域对象转换为响应 DTO
func FromOrderEntity(order *etorder.Order) *OrderResponse {
	items := make([]*ItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, FromItemEntity(item))
	}

	return &OrderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Customer: CustomerDTO{
			Name:  order.Customer.Name,
			Phone: order.Customer.Phone,
			Email: order.Customer.Email,
		},
		Items:            items,
		TotalAmount:      order.TotalAmount,
		TotalItems:       order.TotalItems,
		ReadyItems:       order.ReadyItemCount(),
		Progress:         order.Progress(),
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
	}
}

// FromOrderEntities 批量转换
func FromOrderEntities(orders []*etorder.Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, FromOrderEntity(order))
	}
	return out
}

// FromItemEntity 单件转换
func FromItemEntity(item *etorder.Item) *ItemResponse {
	return &ItemResponse{
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
	}
}

// FromOrderSummary 订单摘要
func FromOrderSummary(order *etorder.Order) *OrderSummary {
	return &OrderSummary{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.Customer.Name,
		Status:       string(order.Status),
		Location:     order.Location,
		ReadyItems:   order.ReadyItemCount(),
		TotalItems:   len(order.Items),
		Progress:     order.Progress(),
	}
}

// FromScanResult 扫码结果
func FromScanResult(result *svscan.ScanResult) *ScanResponse {
	message := "item marked ready"
	if result.AlreadyReady {
		message = "item was already ready"
	} else if result.Order.Status == etorder.StatusReady {
		message = "item marked ready, order is ready for pickup"
	}
	return &ScanResponse{
		AlreadyReady: result.AlreadyReady,
		Message:      message,
		Order:        FromOrderSummary(result.Order),
		Item:         FromItemEntity(result.Item),
		Progress:     result.Progress,
	}
}

// FromScanRecords 扫码记录
func FromScanRecords(records []*svscan.ScanRecord) []*ScanRecordResponse {
	out := make([]*ScanRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, &ScanRecordResponse{
			OrderID:      r.OrderID,
			OrderNumber:  r.OrderNumber,
			OrderStatus:  string(r.OrderStatus),
			CustomerName: r.CustomerName,
			Location:     r.Location,
			ItemID:       r.ItemID,
			ItemCode:     r.ItemCode,
			ServiceName:  r.ServiceName,
			Status:       string(r.Status),
			Notes:        r.Notes,
			ScannedAt:    r.ScannedAt,
			ScannedBy:    r.ScannedBy,
		})
	}
	return out
}

// FromStats 扫码统计，比率保留一位小数
func FromStats(stats *svscan.Stats) *StatsResponse {
	return &StatsResponse{
		TotalItems:     stats.TotalItems,
		ScannedItems:   stats.ScannedItems,
		ReadyItems:     stats.ReadyItems,
		PendingItems:   stats.PendingItems,
		ScanRate:       math.Round(stats.ScanRate*10) / 10,
		CompletionRate: math.Round(stats.CompletionRate*10) / 10,
		ByScanner:      stats.ByScanner,
	}
}

// FromNotificationStatus 通知状态
func FromNotificationStatus(status *svnotify.Status) *NotificationStatusResponse {
	resp := &NotificationStatusResponse{
		OrderNumber: status.OrderNumber,
		EmailSent:   status.EmailSent,
		HasEmail:    status.HasEmail,
		ReadyItems:  status.ReadyItems,
		TotalItems:  status.TotalItems,
		CanSend:     status.CanSend,
	}
	if status.Order != nil {
		resp.NotifiedAt = status.Order.NotifiedAt
	}
	return resp
}

// FromBulkResult 批量补发结果
func FromBulkResult(result *svnotify.BulkResult) *BulkResendResponse {
	return &BulkResendResponse{
		Sent:    result.Sent,
		Failed:  result.Failed,
		Skipped: result.Skipped,
		Errors:  result.Errors,
	}
}

// NewPage 分页响应
func NewPage(items interface{}, p etprimitive.Pagination, total int64) *PageResponse {
	p = p.Normalize()
	p.Total = total
	return &PageResponse{
		Items: items,
		Pagination: PaginationMeta{
			Page:  p.Page,
			Limit: p.Limit,
			Total: total,
			Pages: p.Pages(),
		},
	}
}
