package errorx

import (
	"errors"
	"fmt"
	"net/http"
)

// 业务错误分类（handler 层通过 errors.Is 映射 HTTP 状态码）
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidItemCode    = errors.New("invalid item code format")
	ErrOrderNotFound      = errors.New("order not found")
	ErrItemNotFound       = errors.New("item not found")
	ErrForbidden          = errors.New("access denied for this location")
	ErrUnauthorized       = errors.New("authentication required")
	ErrDuplicateOrder     = errors.New("duplicate order")
	ErrVersionConflict    = errors.New("order was modified concurrently")
	ErrOrderClosed        = errors.New("order is already completed")
	ErrNotEligible        = errors.New("order is not eligible for notification")
	ErrNotificationFailed = errors.New("notification dispatch failed")
)

// BusinessError 业务错误结构
type BusinessError struct {
	Code      int
	Message   string
	Details   []ErrorDetail
	Retryable bool

	kind  error
	cause error
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string
	Info string
}

// Error 实现 error 接口
func (e *BusinessError) Error() string {
	return e.Message
}

// Unwrap 同时暴露错误分类和原始错误，便于 errors.Is 判断
func (e *BusinessError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// NewBusinessError 创建业务错误
func NewBusinessError(code int, message string) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
	}
}

// New 按错误分类创建业务错误
func New(kind error, message string) *BusinessError {
	return &BusinessError{
		Code:      HTTPStatus(kind),
		Message:   message,
		Retryable: errors.Is(kind, ErrVersionConflict),
		kind:      kind,
	}
}

// Newf 按错误分类创建业务错误（格式化消息）
func Newf(kind error, format string, args ...interface{}) *BusinessError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap 将底层错误归入指定分类，消息沿用底层错误
func Wrap(kind error, cause error) *BusinessError {
	if cause == nil {
		return New(kind, kind.Error())
	}
	e := New(kind, cause.Error())
	e.cause = cause
	return e
}

// Validation 创建校验错误（可带字段详情）
func Validation(message string, details ...ErrorDetail) *BusinessError {
	e := New(ErrValidation, message)
	e.Details = details
	return e
}

// IsRetryable 判断错误是否可以由调用方重试
func IsRetryable(err error) bool {
	var be *BusinessError
	if errors.As(err, &be) && be.Retryable {
		return true
	}
	return errors.Is(err, ErrVersionConflict)
}

// HTTPStatus 错误分类到 HTTP 状态码的映射
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidItemCode):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrOrderClosed), errors.Is(err, ErrDuplicateOrder):
		return http.StatusConflict
	case errors.Is(err, ErrNotEligible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotificationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
