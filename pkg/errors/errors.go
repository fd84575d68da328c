// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeForbidden    Code = "FORBIDDEN"
	CodeQueueFull    Code = "QUEUE_FULL"

	// 区间与分配校验
	CodeInvalidDateRange      Code = "INVALID_DATE_RANGE"
	CodeOverlappingAssignment Code = "OVERLAPPING_ASSIGNMENT"
	CodeScheduleConflict      Code = "SCHEDULE_CONFLICT"

	// 求解相关
	CodeScheduleUnsolvable Code = "SCHEDULE_UNSOLVABLE"
	CodeJobAlreadyRunning  Code = "JOB_ALREADY_RUNNING"
	CodeJobNotFound        Code = "JOB_NOT_FOUND"
	CodeSolverTimeout      Code = "SOLVER_TIMEOUT"
	CodeSolverFailure      Code = "SOLVER_FAILURE"

	// 数据相关
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeValidationFail Code = "VALIDATION_FAILED"
)

// AppError 应用错误
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// codeToHTTPStatus 错误码转HTTP状态码
func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidationFail:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeJobNotFound:
		return http.StatusNotFound
	case CodeJobAlreadyRunning, CodeScheduleConflict:
		return http.StatusConflict
	case CodeInvalidDateRange, CodeOverlappingAssignment, CodeScheduleUnsolvable:
		return http.StatusUnprocessableEntity
	case CodeQueueFull:
		return http.StatusTooManyRequests
	case CodeSolverTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus 获取HTTP状态码
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// InvalidInput 创建输入无效错误
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason))
}

// NotFound 创建资源不存在错误
func NotFound(resource, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s '%s' 不存在", resource, id)).
		WithField("resource", resource).
		WithField("id", id)
}

// InvalidDateRange 创建时间区间无效错误
func InvalidDateRange(start, end time.Time, reason string) *AppError {
	return New(CodeInvalidDateRange, reason).
		WithField("start", start.Format(time.RFC3339)).
		WithField("end", end.Format(time.RFC3339))
}

// OverlappingAssignment 创建分配时间重叠错误，first/second 为冲突双方的描述
func OverlappingAssignment(employeeID, first, second string) *AppError {
	return New(CodeOverlappingAssignment,
		fmt.Sprintf("员工 %s 的分配时间重叠: %s 与 %s", employeeID, first, second)).
		WithField("employee_id", employeeID).
		WithField("first", first).
		WithField("second", second)
}

// ScheduleUnsolvable 创建排班不可求解错误
func ScheduleUnsolvable(reason string) *AppError {
	return New(CodeScheduleUnsolvable, reason)
}

// JobAlreadyRunning 创建求解任务已在运行错误
func JobAlreadyRunning(scheduleID, jobID string) *AppError {
	return New(CodeJobAlreadyRunning, fmt.Sprintf("排班 %s 已有求解任务 %s 在运行", scheduleID, jobID)).
		WithField("schedule_id", scheduleID).
		WithField("job_id", jobID)
}

// JobNotFound 创建求解任务不存在错误
func JobNotFound(jobID string) *AppError {
	return New(CodeJobNotFound, fmt.Sprintf("求解任务 '%s' 不存在", jobID))
}

// SolverTimeout 创建等待求解结果超时错误
func SolverTimeout(jobID string, timeout time.Duration) *AppError {
	return New(CodeSolverTimeout, fmt.Sprintf("等待求解任务 %s 超时 (%s)", jobID, timeout)).
		WithField("job_id", jobID)
}

// SolverFailure 创建求解失败错误
func SolverFailure(cause error) *AppError {
	return Wrap(cause, CodeSolverFailure, "求解失败")
}

// QueueFull 创建任务队列已满错误
func QueueFull(capacity int) *AppError {
	return New(CodeQueueFull, fmt.Sprintf("求解队列已满 (容量 %d)", capacity))
}

// ValidationErrors 验证错误集合
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ValidationError 单个验证错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "验证失败"
	}
	return fmt.Sprintf("验证失败: %s - %s", ve.Errors[0].Field, ve.Errors[0].Message)
}

// Add 添加验证错误
func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

// HasErrors 检查是否有错误
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ToAppError 转换为 AppError，畸形请求归为 INVALID_INPUT
func (ve *ValidationErrors) ToAppError() *AppError {
	err := New(CodeInvalidInput, ve.Error())
	err.Fields = make(map[string]interface{})
	for _, e := range ve.Errors {
		err.Fields[e.Field] = e.Message
	}
	return err
}
