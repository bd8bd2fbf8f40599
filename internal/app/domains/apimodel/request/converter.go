package request

import (
	"strings"
	"time"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etprimitive"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/repo/rporder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svscan"
)

// ToCreateInput 将 Request DTO 转换为创建订单输入
func (r *CreateOrderRequest) ToCreateInput() svorder.CreateInput {
	lines := make([]etorder.LineInput, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, etorder.LineInput{
			ServiceCode: strings.TrimSpace(item.ServiceCode),
			ServiceName: strings.TrimSpace(item.ServiceName),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Notes:       item.Notes,
		})
	}
	return svorder.CreateInput{
		Customer: etorder.Customer{
			Name:  r.Customer.Name,
			Phone: r.Customer.Phone,
			Email: r.Customer.Email,
		},
		Lines:    lines,
		Location: r.Location,
		Notes:    r.Notes,
	}
}

// ToFilter 转换为订单列表过滤条件
func (q *ListOrdersQuery) ToFilter() rporder.ListFilter {
	return rporder.ListFilter{
		Status:     etorder.Status(q.Status),
		Location:   q.Location,
		Search:     strings.TrimSpace(q.Search),
		From:       q.From,
		To:         endOfDay(q.To),
		Pagination: etprimitive.Pagination{Page: q.Page, Limit: q.Limit},
	}
}

// ToFilter 转换为扫码记录过滤条件
func (q *HistoryQuery) ToFilter() svscan.HistoryFilter {
	return svscan.HistoryFilter{
		Location:   q.Location,
		ScannedBy:  strings.TrimSpace(q.ScannedBy),
		From:       q.From,
		To:         endOfDay(q.To),
		Pagination: etprimitive.Pagination{Page: q.Page, Limit: q.Limit},
	}
}

// Range 统计时间范围
func (q *StatsQuery) Range() (*time.Time, *time.Time) {
	return q.From, endOfDay(q.To)
}

// Pagination 分页参数
func (q *PendingQuery) Pagination() etprimitive.Pagination {
	return etprimitive.Pagination{Page: q.Page, Limit: q.Limit}
}

// endOfDay 日期参数包含当天
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end
}
