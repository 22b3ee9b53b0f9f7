package errors

import (
	stdErrors "errors"
	"fmt"
)

// Code 是跨包传递的错误码，同时出现在 API 响应与任务记录中。
type Code string

const (
	CodeUnknown               Code = "UNKNOWN"
	CodeInvalidArgument       Code = "INVALID_ARGUMENT"
	CodeNotFound              Code = "NOT_FOUND"
	CodeConflict              Code = "CONFLICT"
	CodeAlreadyCompleted      Code = "ALREADY_COMPLETED"
	CodeRetriesExhausted      Code = "RETRIES_EXHAUSTED"
	CodeInitializationFailure Code = "INITIALIZATION_FAILURE"
	CodeStorageFailure        Code = "STORAGE_FAILURE"
	CodeQueueFailure          Code = "QUEUE_FAILURE"
	CodeParseFailure          Code = "PARSE_FAILURE"
	CodeTimeout               Code = "TIMEOUT"
	CodeUpstreamFailure       Code = "UPSTREAM_FAILURE"
	CodeUnsupportedPlatform   Code = "UNSUPPORTED_PLATFORM"
	CodeUnsupportedArtifact   Code = "UNSUPPORTED_ARTIFACT"
	CodePersonaInvalid        Code = "PERSONA_INVALID"
)

// Severity 决定告警事件的级别。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Attributes 描述错误码的默认文案，以及异步任务遇到该错误时是否重新入队、是否告警。
type Attributes struct {
	Message   string
	Severity  Severity
	Retryable bool
	Alert     bool
}

// 仅补全服务的超时与故障可重试。
var attributes = map[Code]Attributes{
	CodeUnknown:               {"unknown error", SeverityCritical, false, true},
	CodeInvalidArgument:       {"invalid argument", SeverityInfo, false, false},
	CodeNotFound:              {"not found", SeverityInfo, false, false},
	CodeConflict:              {"job already exists", SeverityWarning, false, false},
	CodeAlreadyCompleted:      {"job already completed", SeverityInfo, false, false},
	CodeRetriesExhausted:      {"job retries exhausted", SeverityWarning, false, true},
	CodeInitializationFailure: {"component not configured", SeverityCritical, false, true},
	CodeStorageFailure:        {"conversation store failure", SeverityCritical, false, true},
	CodeQueueFailure:          {"job queue failure", SeverityCritical, false, true},
	CodeParseFailure:          {"catalog or response could not be parsed", SeverityInfo, false, false},
	CodeTimeout:               {"completion service timed out", SeverityWarning, true, false},
	CodeUpstreamFailure:       {"completion service failure", SeverityWarning, true, false},
	CodeUnsupportedPlatform:   {"unsupported platform", SeverityInfo, false, false},
	CodeUnsupportedArtifact:   {"artifact type not supported by channel", SeverityInfo, false, false},
	CodePersonaInvalid:        {"invalid persona definition", SeverityInfo, false, false},
}

// AttributesOf 返回错误码的属性，未知错误码按 UNKNOWN 处理。
func AttributesOf(code Code) Attributes {
	if attr, ok := attributes[code]; ok {
		return attr
	}
	return attributes[CodeUnknown]
}

// Error 携带错误码、面向用户的消息与可选的原因。
type Error struct {
	code     Code
	message  string
	cause    error
	metadata map[string]string
	severity Severity
}

// Option 调整新建的错误。
type Option func(*Error)

// WithMetadata 附加键值信息，例如 persona_id 或 platform。
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithSeverity 覆盖错误码的默认级别。
func WithSeverity(sev Severity) Option {
	return func(e *Error) {
		e.severity = sev
	}
}

// New 创建错误，message 为空时使用错误码的默认文案。
func New(code Code, message string, opts ...Option) *Error {
	attr := AttributesOf(code)
	if message == "" {
		message = attr.Message
	}
	e := &Error{code: code, message: message, severity: attr.Severity}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap 以错误码包裹底层错误。
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 只比较错误码，便于 errors.Is(err, task.ErrJobNotFound) 这类判断。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if e == nil || !ok || t == nil {
		return false
	}
	return e.code == t.code
}

// Code 返回错误码，nil 视为 UNKNOWN。
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Severity 返回错误级别。
func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	return e.severity
}

// Metadata 返回附加信息的副本。
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// From 从错误链中取出 *Error。
func From(err error) (*Error, bool) {
	var target *Error
	if err == nil || !stdErrors.As(err, &target) {
		return nil, false
	}
	return target, true
}

// CodeOf 返回错误链中的错误码，普通错误返回 UNKNOWN。
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// RetryableError 判断任务遇到该错误时是否应重新入队。
func RetryableError(err error) bool {
	return err != nil && AttributesOf(CodeOf(err)).Retryable
}
