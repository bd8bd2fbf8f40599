package request

import "time"

// ScanByCodeRequest 扫码请求
type ScanByCodeRequest struct {
	ItemCode string `json:"itemCode" binding:"required,item_code" example:"CMD1A2B3_1_1"`
	Notes    string `json:"notes" binding:"max=500"`
}

// ScanRequest 旧版扫码请求（订单 + 单件）
type ScanRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	ItemID  string `json:"itemId" binding:"required"`
	Notes   string `json:"notes" binding:"max=500"`
}

// MarkReadyRequest 手动置为 ready
type MarkReadyRequest struct {
	Notes string `json:"notes" binding:"max=500"`
}

// HistoryQuery 扫码记录查询
type HistoryQuery struct {
	Location  string     `form:"location"`
	ScannedBy string     `form:"scannedBy"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	Limit     int        `form:"limit" binding:"omitempty,min=1,max=100"`
}

// StatsQuery 扫码统计查询
type StatsQuery struct {
	Location string     `form:"location"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
}
