/*
Package response - API 层统一响应处理

设计原则:
1. HTTP 状态码由 pkg/errors 的错误码决定，领域层和应用层不感知
2. 错误响应不暴露内部细节（堆栈、内部错误消息等）
3. 所有响应携带 RequestID 用于日志追踪

堆栈提取策略:
1. 优先从领域错误（实现 shared.Stacker 接口）提取"错误发生点"堆栈
2. 如果错误不带堆栈，则在此处捕获"错误处理点"堆栈作为兜底

响应格式:

	成功: { success: true, data: {...}, message: "...", code: 200, request_id: "..." }
	失败: { success: false, error: "ERROR_CODE", message: "用户可见消息", code: 4xx/5xx, request_id: "..." }
*/
package response

import (
	stderrors "errors"
	"net/http"
	"runtime"

	"ddd-users/domain/shared"
	"ddd-users/pkg/errors"
	"ddd-users/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestIDKey gin context 中保存请求 ID 的键
const RequestIDKey = "request_id"

// Response 通用响应结构
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"` // 错误码，不是错误详情
	Code      int         `json:"code"`            // HTTP 状态码
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
}

func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

// Abort 以统一格式中止请求，供中间件使用
func Abort(c *gin.Context, status int, code errors.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, &Response{
		Success:   false,
		Error:     string(code),
		Message:   message,
		Code:      status,
		RequestID: GetRequestID(c),
	})
}

// HandleBindError 处理参数绑定等框架层错误
func HandleBindError(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Warn("Invalid request parameters",
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Error(err))

	c.JSON(http.StatusBadRequest, &Response{
		Success:   false,
		Error:     string(errors.CodeBadRequest),
		Message:   "invalid request parameters",
		Code:      http.StatusBadRequest,
		RequestID: GetRequestID(c),
	})
}

// HandleAppError 把领域/应用错误翻译为响应
// 5xx 记 Error 并带堆栈，4xx 只记 Warn
func HandleAppError(c *gin.Context, err error) {
	appErr := errors.FromDomainError(err)
	status := appErr.HTTPStatusCode()

	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("error_code", string(appErr.Code)),
		zap.Int("http_status", status),
		zap.Error(err),
	}
	log := logger.FromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error(appErr.Message, append(fields, zap.Strings("stack", extractStack(err)))...)
	} else {
		log.Warn(appErr.Message, fields...)
	}

	message := appErr.Message
	if appErr.Code == errors.CodeInternal {
		message = "internal server error"
	}
	c.JSON(status, &Response{
		Success:   false,
		Error:     string(appErr.Code),
		Message:   message,
		Code:      status,
		RequestID: GetRequestID(c),
	})
}

func extractStack(err error) []string {
	var stacker shared.Stacker
	if stderrors.As(err, &stacker) {
		if stack := stacker.Stack(); len(stack) > 0 {
			return stack
		}
	}
	return captureStack(4) // skip: Callers, captureStack, extractStack, HandleAppError
}

func captureStack(skip int) []string {
	var pcs [16]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		frame, more := frames.Next()
		if frame.Function != "" {
			stack = append(stack, frame.Function)
		}
		if !more {
			break
		}
	}
	return stack
}

// HandleSuccess 200 OK
func HandleSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, &Response{
		Success:   true,
		Data:      data,
		Message:   message,
		Code:      http.StatusOK,
		RequestID: GetRequestID(c),
	})
}

// HandleCreated 201 Created
func HandleCreated(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, &Response{
		Success:   true,
		Data:      data,
		Message:   message,
		Code:      http.StatusCreated,
		RequestID: GetRequestID(c),
	})
}
