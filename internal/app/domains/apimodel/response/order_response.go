package response

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderResponse 订单响应（DTO）
type OrderResponse struct {
	ID               string          `json:"id"`
	OrderNumber      string          `json:"orderNumber"`
	Customer         CustomerDTO     `json:"customer"`
	Items            []*ItemResponse `json:"items"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	TotalItems       int             `json:"totalItems"`
	ReadyItems       int             `json:"readyItems"`
	Progress         int             `json:"progress"`
	Status           string          `json:"status"`
	Location         string          `json:"location"`
	Notes            string          `json:"notes,omitempty"`
	ReadyAt          *time.Time      `json:"readyAt,omitempty"`
	CollectedAt      *time.Time      `json:"collectedAt,omitempty"`
	NotificationSent bool            `json:"emailSent"`
	NotifiedAt       *time.Time      `json:"notifiedAt,omitempty"`
	CreatedBy        string          `json:"createdBy"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// CustomerDTO 客户信息
type CustomerDTO struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// ItemResponse 单件衣物
type ItemResponse struct {
	ID          string          `json:"id"`
	ItemCode    string          `json:"itemCode"`
	ServiceCode string          `json:"serviceCode"`
	ServiceName string          `json:"serviceName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Status      string          `json:"status"`
	Notes       string          `json:"notes,omitempty"`
	ScannedAt   *time.Time      `json:"scannedAt,omitempty"`
	ScannedBy   string          `json:"scannedBy,omitempty"`
}

// OrderSummary 订单摘要（扫码、单件查询返回）
type OrderSummary struct {
	ID           string `json:"id"`
	OrderNumber  string `json:"orderNumber"`
	CustomerName string `json:"customerName"`
	Status       string `json:"status"`
	Location     string `json:"location"`
	ReadyItems   int    `json:"readyItems"`
	TotalItems   int    `json:"totalItems"`
	Progress     int    `json:"progress"`
}

// ItemLookupResponse 单件查询
type ItemLookupResponse struct {
	Order *OrderSummary `json:"order"`
	Item  *ItemResponse `json:"item"`
}

// PageResponse 分页列表
type PageResponse struct {
	Items      interface{}    `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// PaginationMeta 分页信息
type PaginationMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}
