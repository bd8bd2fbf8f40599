package order

import (
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svorder"
	"github.com/gorbenco03/curatire-backend/internal/app/domains/services/svscan"
)

// OrderHandler 订单 HTTP 处理器
type OrderHandler struct {
	orderService *svorder.OrderService
	scanService  *svscan.ScanService
}

// NewOrderHandler 创建订单处理器实例
func NewOrderHandler(orderService *svorder.OrderService, scanService *svscan.ScanService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		scanService:  scanService,
	}
}
