package scan

import (
	"github.com/gin-gonic/gin"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/apimodel/request"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/apimodel/response"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svscan"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/ginx"
	"github.com/gorbenco03/curatire-backend/internal/app/server/handlers/common"
)

// ScanHandler 扫码 HTTP 处理器
type ScanHandler struct {
	scanService *svscan.ScanService
}

// NewScanHandler 创建扫码处理器实例
func NewScanHandler(scanService *svscan.ScanService) *ScanHandler {
	return &ScanHandler{scanService: scanService}
}

// ScanByCode godoc
// @Summary      扫码置为 ready
// @Description  重复扫码返回 alreadyReady=true，不是错误
// @Tags         scans
// @Accept       json
// @Produce      json
// @Param        request body request.ScanByCodeRequest true "扫码内容"
// @Success      200 {object} ginx.Response{data=response.ScanResponse}
// @Failure      400 {object} ginx.Response "编码格式错误"
// @Failure      404 {object} ginx.Response "单件不存在"
// @Failure      409 {object} ginx.Response "订单已完成或并发冲突"
// @Router       /orders/scan-by-code [post]
func (h *ScanHandler) ScanByCode(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	var req request.ScanByCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	result, err := h.scanService.ScanByCode(c.Request.Context(), actor, req.ItemCode, req.Notes)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.FromScanResult(result))
}

// Scan 旧版扫码（订单 + 单件）
// POST /api/v1/orders/scan
func (h *ScanHandler) Scan(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	var req request.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	result, err := h.scanService.ScanItem(c.Request.Context(), actor, req.OrderID, req.ItemID, req.Notes)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.FromScanResult(result))
}

// History 扫码记录
// GET /api/v1/scans/history
func (h *ScanHandler) History(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	var q request.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	filter := q.ToFilter()
	if filter.Limit == 0 {
		filter.Limit = svscan.HistoryPageSize
	}
	records, total, err := h.scanService.History(c.Request.Context(), actor, filter)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.NewPage(response.FromScanRecords(records), filter.Pagination, total))
}

// Stats 扫码统计
// GET /api/v1/scans/stats
func (h *ScanHandler) Stats(c *gin.Context) {
	actor, ok := common.Actor(c)
	if !ok {
		return
	}

	var q request.StatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	from, to := q.Range()
	stats, err := h.scanService.Stats(c.Request.Context(), actor, q.Location, from, to)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, response.FromStats(stats))
}
