package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsComparesCode(t *testing.T) {
	err := Wrap(CodeUpstreamFailure, stdErrors.New("dial tcp: refused"), "调用大模型失败")
	wrapped := fmt.Errorf("outer: %w", err)

	assert.True(t, stdErrors.Is(wrapped, New(CodeUpstreamFailure, "")))
	assert.False(t, stdErrors.Is(wrapped, New(CodeTimeout, "")))
	assert.Equal(t, CodeUpstreamFailure, CodeOf(wrapped))
	assert.Contains(t, err.Error(), "UPSTREAM_FAILURE")
	assert.ErrorContains(t, err, "dial tcp: refused")
}

func TestOnlyCompletionFailuresRetry(t *testing.T) {
	for code := range attributes {
		want := code == CodeTimeout || code == CodeUpstreamFailure
		assert.Equal(t, want, RetryableError(New(code, "")), code)
	}
	assert.False(t, RetryableError(nil))
	assert.False(t, RetryableError(stdErrors.New("plain")))
}

func TestDefaultsAndOverrides(t *testing.T) {
	err := New(CodeUnsupportedPlatform, "")
	assert.Equal(t, "[UNSUPPORTED_PLATFORM] unsupported platform", err.Error())
	assert.Equal(t, SeverityInfo, err.Severity())

	custom := New(CodePersonaInvalid, "缺少 greeting", WithSeverity(SeverityWarning), WithMetadata("field", "greeting"))
	assert.Equal(t, SeverityWarning, custom.Severity())
	assert.Equal(t, map[string]string{"field": "greeting"}, custom.Metadata())

	assert.Equal(t, CodeUnknown, CodeOf(stdErrors.New("plain")))
	assert.Equal(t, AttributesOf(CodeUnknown), AttributesOf(Code("NO_SUCH_CODE")))
	_, ok := From(nil)
	require.False(t, ok)
}
