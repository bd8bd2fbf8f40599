package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/gorbenco03/curatire-backend/internal/app/pkg/errorx"
)

// Response 统一响应结构
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data,omitempty"`
}

// Meta 元数据
type Meta struct {
	Code      int           `json:"code" example:"200"`
	Message   string        `json:"message" example:"OK"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Retryable bool          `json:"retryable,omitempty"`
	RequestID string        `json:"requestId,omitempty"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string `json:"path" example:"customer.phone"`
	Info string `json:"info" example:"phone must be a valid Romanian number"`
}

// RequestIDKey gin.Context 中的请求 ID
const RequestIDKey = "request_id"

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Meta: Meta{
			Code:    200,
			Message: "OK",
		},
		Data: data,
	})
}

// Created 创建成功（201）
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Meta: Meta{
			Code:    201,
			Message: "Created",
		},
		Data: data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, message string) {
	ErrorWithDetails(c, httpCode, message, nil)
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpCode int, message string, details []ErrorDetail) {
	c.AbortWithStatusJSON(httpCode, Response{
		Meta: Meta{
			Code:      httpCode,
			Message:   message,
			Details:   details,
			RequestID: c.GetString(RequestIDKey),
		},
	})
}

// FromError 按错误分类输出响应
// 未归类的错误统一返回 500，不暴露内部信息
func FromError(c *gin.Context, err error) {
	status := errorx.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		InternalError(c, "internal server error")
		return
	}

	message := err.Error()
	var details []ErrorDetail
	var be *errorx.BusinessError
	if errors.As(err, &be) {
		message = be.Message
		for _, d := range be.Details {
			details = append(details, ErrorDetail{Path: d.Path, Info: d.Info})
		}
	}

	c.AbortWithStatusJSON(status, Response{
		Meta: Meta{
			Code:      status,
			Message:   message,
			Details:   details,
			Retryable: errorx.IsRetryable(err),
			RequestID: c.GetString(RequestIDKey),
		},
	})
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// BadRequestWithValidation 400 错误（带验证详情）
func BadRequestWithValidation(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]ErrorDetail, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, ErrorDetail{
				Path: fieldPath(fieldErr),
				Info: getValidationErrorMessage(fieldErr),
			})
		}
		ErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details)
		return
	}

	BadRequest(c, err.Error())
}

// NotFound 404 错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError 500 错误
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// fieldPath 去掉顶层结构体名，例如 CreateOrderRequest.customer.phone -> customer.phone
func fieldPath(fieldErr validator.FieldError) string {
	ns := fieldErr.Namespace()
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return fieldErr.Field()
}

// getValidationErrorMessage 根据验证错误类型返回友好的错误消息
func getValidationErrorMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fieldErr.Field() + " is required"
	case "email":
		return fieldErr.Field() + " must be a valid email address"
	case "min", "gte":
		return fieldErr.Field() + " must be at least " + fieldErr.Param()
	case "max", "lte":
		return fieldErr.Field() + " must be at most " + fieldErr.Param()
	case "oneof":
		return fieldErr.Field() + " must be one of: " + fieldErr.Param()
	case "ro_phone":
		return fieldErr.Field() + " must be a valid Romanian phone number"
	case "item_code":
		return fieldErr.Field() + " must look like CMD1A2B3_1_1"
	default:
		return fieldErr.Field() + " is invalid"
	}
}
