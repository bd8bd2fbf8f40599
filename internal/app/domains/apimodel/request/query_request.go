package request

import "time"

// ListOrdersQuery 订单列表查询
type ListOrdersQuery struct {
	Status   string     `form:"status" binding:"omitempty,oneof=pending in_progress ready completed"`
	Location string     `form:"location"`
	Search   string     `form:"search" binding:"max=100"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	Limit    int        `form:"limit" binding:"omitempty,min=1,max=100"`
}

// PendingQuery 待通知订单查询
type PendingQuery struct {
	Location string `form:"location"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ResendRequest 手动发送通知
type ResendRequest struct {
	Force bool `json:"force"`
}

// BulkResendRequest 批量补发
type BulkResendRequest struct {
	OrderNumbers []string `json:"orderNumbers" binding:"omitempty,max=50,dive,required"`
	Location     string   `json:"location"`
}
