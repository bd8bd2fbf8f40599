package response

import (
	"errors"

	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
	"github.com/gorbenco03/curatire-backend/internal/jobs/common/job"
)

// ResultI 业务结果接口
type ResultI interface {
	// Set 设置元数据和错误
	Set(meta *job.Meta, err error)

	// GetStatus 获取状态
	GetStatus() string
}

// Error 任务错误
type Error struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Response 统一响应结构
type Response struct {
	Error     *Error    `json:"error"`
	Result    ResultI   `json:"result"`
	Processed bool      `json:"processed"`
	Meta      *job.Meta `json:"meta"`
}

// WrapResponse 包装响应
func (r *Response) WrapResponse(result ResultI, meta *job.Meta, err error) {
	result.Set(meta, err)

	if err == nil {
		r.Processed = true
	} else {
		r.Error = &Error{Message: err.Error(), Retryable: Retryable(err)}
	}
	r.Meta = meta
	r.Result = result
}

// Retryable 判断任务失败后是否值得等待重新投递
// 订单不存在、消息格式错误这类失败重投也不会成功
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, errorx.ErrOrderNotFound),
		errors.Is(err, errorx.ErrValidation),
		errors.Is(err, errorx.ErrNotEligible):
		return false
	default:
		return true
	}
}
