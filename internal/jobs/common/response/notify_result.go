package response

import "github.com/gorbenco03/curatire-backend/internal/jobs/common/job"

const (
	NotifyStatusDone   = "DONE"
	NotifyStatusFailed = "FAILED"
)

// NotifyResult 通知重试结果（实现 ResultI 接口）
type NotifyResult struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

// NewNotifyResult 创建通知结果
func NewNotifyResult(orderNumber string) *NotifyResult {
	return &NotifyResult{OrderNumber: orderNumber}
}

// Set 实现 ResultI 接口
func (r *NotifyResult) Set(meta *job.Meta, err error) {
	r.OrderID = meta.ID
	if err != nil {
		r.Status = NotifyStatusFailed
		r.Reason = err.Error()
		return
	}
	r.Status = NotifyStatusDone
}

// GetStatus 实现 ResultI 接口
func (r *NotifyResult) GetStatus() string {
	return r.Status
}
