package order

import (
	"github.com/gin-gonic/gin"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/apimodel/request"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/apimodel/response"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/ginx"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/common"
)

// Create godoc
// @Summary      创建订单
// @Description  生成订单号，按数量把明细展开为单件并生成扫码编码
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body request.CreateOrderRequest true "订单信息"
// @Success      201 {object} ginx.Response{data=response.OrderResponse}
// @Failure      400 {object} ginx.Response "参数错误"
// @Failure      403 {object} ginx.Response "无权操作该门店"
// @Router       /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	var req request.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), actor, req.ToCreateInput())
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Created(c, response.FromOrderEntity(order))
}
