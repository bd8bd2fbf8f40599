package order

import (
	"github.com/gin-gonic/gin"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/apimodel/request"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/apimodel/response"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/ginx"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/common"
)

// UpdateStatus 修改订单状态，只接受 completed（客户取件）
// PATCH /api/v1/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	var req request.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), actor, c.Param("id"), etorder.Status(req.Status), req.Notes)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.FromOrderEntity(order))
}

// MarkItemReady 手动将单件置为 ready，与扫码走同一流程
// PATCH /api/v1/orders/:id/items/:itemId/ready
func (h *OrderHandler) MarkItemReady(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	var req request.MarkReadyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			ginx.BadRequestWithValidation(c, err)
			return
		}
	}

	result, err := h.scanService.ScanItem(c.Request.Context(), actor, c.Param("id"), c.Param("itemId"), req.Notes)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.FromScanResult(result))
}
