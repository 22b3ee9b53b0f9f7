package task

import (
	stdErrors "errors"

	"ScriptPilot/internal/agent"
	xerrors "ScriptPilot/internal/errors"
	"ScriptPilot/internal/memory"
)

// Status 表示任务在生命周期中的状态。
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job 描述了排队等待编排器处理的一条消息。
type Job struct {
	ID         string               `json:"id"`
	Request    agent.MessageRequest `json:"request"`
	Status     Status               `json:"status"`
	Attempts   int                  `json:"attempts"`
	MaxRetries int                  `json:"max_retries"`
	LastError  string               `json:"last_error,omitempty"`
	ErrorCode  string               `json:"error_code,omitempty"`
	Result     *agent.MessageResult `json:"result,omitempty"`
	CreatedAt  int64                `json:"created_at"`
	UpdatedAt  int64                `json:"updated_at"`
}

var (
	// ErrJobNotFound 表示指定的任务不存在。
	ErrJobNotFound = xerrors.New(xerrors.CodeNotFound, "job not found")
	// ErrJobConflict 表示任务在当前状态下无法进行所请求的操作。
	ErrJobConflict = xerrors.New(xerrors.CodeConflict, "job conflict", xerrors.WithSeverity(xerrors.SeverityWarning))
	// ErrJobCompleted 表示任务已经成功完成。
	ErrJobCompleted = xerrors.New(xerrors.CodeAlreadyCompleted, "job already completed", xerrors.WithSeverity(xerrors.SeverityInfo))
	// ErrJobExhausted 表示任务的重试次数已经耗尽。
	ErrJobExhausted = xerrors.New(xerrors.CodeRetriesExhausted, "job retries exhausted", xerrors.WithSeverity(xerrors.SeverityCritical))
)

// IsJobError 判断错误是否为指定错误码的任务错误。
func IsJobError(err error, target xerrors.Code) bool {
	if err == nil {
		return false
	}
	switch {
	case stdErrors.Is(err, ErrJobNotFound):
		return target == xerrors.CodeNotFound
	case stdErrors.Is(err, ErrJobConflict):
		return target == xerrors.CodeConflict
	case stdErrors.Is(err, ErrJobCompleted):
		return target == xerrors.CodeAlreadyCompleted
	case stdErrors.Is(err, ErrJobExhausted):
		return target == xerrors.CodeRetriesExhausted
	}
	return false
}

// IsValidStatus 检查给定的任务状态是否为支持的枚举值。
func IsValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed:
		return true
	default:
		return false
	}
}

func cloneJob(job *Job) *Job {
	clone := *job
	clone.Request.Options = cloneOptions(job.Request.Options)
	if job.Result != nil {
		result := *job.Result
		result.Related = append([]memory.Automation(nil), job.Result.Related...)
		clone.Result = &result
	}
	return &clone
}

func cloneOptions(options map[string]any) map[string]any {
	if options == nil {
		return nil
	}
	cloned := make(map[string]any, len(options))
	for key, value := range options {
		cloned[key] = value
	}
	return cloned
}
