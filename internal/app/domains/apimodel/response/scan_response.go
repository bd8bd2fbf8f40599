package response

import "time"

// ScanResponse 扫码结果
type ScanResponse struct {
	AlreadyReady bool          `json:"alreadyReady"`
	Message      string        `json:"message"`
	Order        *OrderSummary `json:"order"`
	Item         *ItemResponse `json:"item"`
	Progress     int           `json:"progress"`
}

// ScanRecordResponse 扫码记录
type ScanRecordResponse struct {
	OrderID      string    `json:"orderId"`
	OrderNumber  string    `json:"orderNumber"`
	OrderStatus  string    `json:"orderStatus"`
	CustomerName string    `json:"customerName"`
	Location     string    `json:"location"`
	ItemID       string    `json:"itemId"`
	ItemCode     string    `json:"itemCode"`
	ServiceName  string    `json:"serviceName"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	ScannedAt    time.Time `json:"scannedAt"`
	ScannedBy    string    `json:"scannedBy"`
}

// StatsResponse 扫码统计
type StatsResponse struct {
	TotalItems     int            `json:"totalItems"`
	ScannedItems   int            `json:"scannedItems"`
	ReadyItems     int            `json:"readyItems"`
	PendingItems   int            `json:"pendingItems"`
	ScanRate       float64        `json:"scanRate"`
	CompletionRate float64        `json:"completionRate"`
	ByScanner      map[string]int `json:"byScanner"`
}

// NotificationStatusResponse 通知状态
type NotificationStatusResponse struct {
	OrderNumber string     `json:"orderNumber"`
	EmailSent   bool       `json:"emailSent"`
	HasEmail    bool       `json:"hasEmail"`
	ReadyItems  int        `json:"readyItems"`
	TotalItems  int        `json:"totalItems"`
	CanSend     bool       `json:"canSend"`
	NotifiedAt  *time.Time `json:"notifiedAt,omitempty"`
}

// BulkResendResponse 批量补发结果
type BulkResendResponse struct {
	Sent    int               `json:"sent"`
	Failed  int               `json:"failed"`
	Skipped int               `json:"skipped"`
	Errors  map[string]string `json:"errors,omitempty"`
}
