package order

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/apimodel/request"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/apimodel/response"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/ginx"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/common"
)

// Get godoc
// @Summary      获取订单详情
// @Description  id 可以是订单 ID 或订单号
// @Description  wait=N 时等待订单的下一个事件（扫码、取件）最多 N 秒（上限 30）后返回最新数据
// @Tags         orders
// @Produce      json
// @Param        id   path  string true  "订单ID或订单号"
// @Param        wait query int    false "等待秒数"
// @Success      200 {object} ginx.Response{data=response.OrderResponse}
// @Failure      404 {object} ginx.Response "订单不存在"
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	waitSeconds := 0
	if waitStr := c.Query("wait"); waitStr != "" {
		if w, err := strconv.Atoi(waitStr); err == nil && w > 0 {
			waitSeconds = w
		}
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), actor, c.Param("id"), time.Duration(waitSeconds)*time.Second)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.FromOrderEntity(order))
}

// List 订单列表
// GET /api/v1/orders?status=&location=&search=&from=&to=&page=&limit=
func (h *OrderHandler) List(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	var q request.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	filter := q.ToFilter()
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), actor, filter)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.NewPage(response.FromOrderEntities(orders), filter.Pagination, total))
}

// Attention 需要关注的订单
// GET /api/v1/orders/attention?location=
func (h *OrderHandler) Attention(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	orders, err := h.orderService.ListAttention(c.Request.Context(), actor, c.Query("location"))
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.FromOrderEntities(orders))
}

// ItemByCode 按扫码编码查询单件（不修改状态）
// GET /api/v1/orders/items/:itemCode
func (h *OrderHandler) ItemByCode(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	order, item, err := h.scanService.FindItemByCode(c.Request.Context(), actor, c.Param("itemCode"))
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, &response.ItemLookupResponse{
		Order: response.FromOrderSummary(order),
		Item:  response.FromItemEntity(item),
	})
}

// ItemStatus 单件状态
// GET /api/v1/orders/:id/items/:itemId/status
func (h *OrderHandler) ItemStatus(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	order, item, err := h.scanService.ItemStatus(c.Request.Context(), actor, c.Param("id"), c.Param("itemId"))
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, &response.ItemLookupResponse{
		Order: response.FromOrderSummary(order),
		Item:  response.FromItemEntity(item),
	})
}
