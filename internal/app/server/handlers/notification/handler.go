package notification

import (
	"github.com/gin-gonic/gin"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/apimodel/request"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/apimodel/response"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svnotify"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/ginx"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/common"
)

// NotificationHandler 通知 HTTP 处理器
type NotificationHandler struct {
	notifyService *svnotify.NotifyService
}

// NewNotificationHandler 创建通知处理器实例
func NewNotificationHandler(notifyService *svnotify.NotifyService) *NotificationHandler {
	return &NotificationHandler{notifyService: notifyService}
}

// Status 订单通知状态
// GET /api/v1/notifications/:orderNumber/status
func (h *NotificationHandler) Status(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	status, err := h.notifyService.Status(c.Request.Context(), actor, c.Param("orderNumber"))
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.FromNotificationStatus(status))
}

// Send 手动发送（force 需要管理员）
// POST /api/v1/notifications/:orderNumber/send
func (h *NotificationHandler) Send(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	var req request.ResendRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			ginx.BadRequestWithValidation(c, err)
			return
		}
	}

	order, err := h.notifyService.Resend(c.Request.Context(), actor, c.Param("orderNumber"), req.Force)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.FromOrderSummary(order))
}

// Pending 待通知订单
// GET /api/v1/notifications/pending
func (h *NotificationHandler) Pending(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	var q request.PendingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	page := q.Pagination()
	orders, total, err := h.notifyService.ListPending(c.Request.Context(), actor, q.Location, page)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	summaries := make([]*response.OrderSummary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, response.FromOrderSummary(o))
	}
	ginx.Success(c, response.NewPage(summaries, page, total))
}

// Bulk 批量补发（管理员）
// POST /api/v1/notifications/bulk
func (h *NotificationHandler) Bulk(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	var req request.BulkResendRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			ginx.BadRequestWithValidation(c, err)
			return
		}
	}

	result, err := h.notifyService.BulkResend(c.Request.Context(), actor, req.OrderNumbers, req.Location)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.FromBulkResult(result))
}

// CheckSMTP 检查邮件通道（管理员）
// GET /api/v1/notifications/smtp/check
func (h *NotificationHandler) CheckSMTP(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	if err := h.notifyService.CheckConnection(c.Request.Context(), actor); err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, gin.H{"connected": true})
}
