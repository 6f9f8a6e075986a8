package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}

func TestValidate_RejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestNew_BuildsLogger(t *testing.T) {
	logger, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("test entry")
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	logger, err := New(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNew_ConsoleFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "console"
	logger, err := New(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestContextFields_EmptyContext(t *testing.T) {
	fields := ContextFields(context.Background())
	assert.Empty(t, fields)
}

func TestContextFields_RequestAndRunIDs(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithRunID(ctx, "run-9")

	fields := ContextFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "request_id", fields[0].Key)
	assert.Equal(t, "run_id", fields[1].Key)
}
