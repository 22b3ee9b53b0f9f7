package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDSN(t *testing.T) {
	dsn, err := normalizeDSN("user:pass@tcp(127.0.0.1:3306)/scriptpilot")
	require.NoError(t, err)
	assert.Contains(t, dsn, "timeout=5s")

	dsn, err = normalizeDSN("user:pass@tcp(127.0.0.1:3306)/scriptpilot?timeout=200ms")
	require.NoError(t, err)
	assert.Contains(t, dsn, "timeout=200ms")
	assert.NotContains(t, dsn, "timeout=5s")
}

func TestNormalizeDSNRejectsInvalid(t *testing.T) {
	_, err := normalizeDSN("  ")
	assert.Error(t, err)

	_, err = normalizeDSN("user:pass@tcp(127.0.0.1:3306")
	assert.Error(t, err)
}

func TestOpenUnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Open(ctx, Config{DSN: "user:pass@tcp(127.0.0.1:1)/scriptpilot?timeout=200ms"})
	assert.Error(t, err)
}
