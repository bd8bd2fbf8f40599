package request

import "github.com/shopspring/decimal"

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Customer *Customer  `json:"customer" binding:"required"`
	Items    []LineItem `json:"items" binding:"required,min=1,dive"`
	Location string     `json:"location" binding:"omitempty,max=100" example:"centru"`
	Notes    string     `json:"notes" binding:"max=1000"`
}

// Customer 客户信息
type Customer struct {
	Name  string `json:"name" binding:"required,min=2,max=100" example:"Ion Popescu"`
	Phone string `json:"phone" binding:"required,ro_phone" example:"0712345678"`
	Email string `json:"email" binding:"omitempty,email" example:"ion@example.com"`
}

// LineItem 下单明细行，数量大于 1 时按件展开
type LineItem struct {
	ServiceCode string          `json:"serviceCode" binding:"required" example:"CAM"`
	ServiceName string          `json:"serviceName" binding:"required" example:"Cămașă"`
	Quantity    int             `json:"quantity" binding:"required,min=1,max=100" example:"2"`
	UnitPrice   decimal.Decimal `json:"unitPrice" example:"15.50"`
	Notes       string          `json:"notes" binding:"max=500"`
}

// UpdateStatusRequest 修改订单状态（只接受 completed）
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending in_progress ready completed" example:"completed"`
	Notes  string `json:"notes" binding:"max=1000"`
}
