package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-report-api/pkg/config"
)

func TestServeReturnsNonZeroAndReleasesSignalContext(t *testing.T) {
	chdir(t, t.TempDir())
	var runCtx context.Context
	code := serve(func(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
		runCtx = ctx
		return errors.New("postgres: connection refused")
	})

	assert.Equal(t, 1, code)
	require.NotNil(t, runCtx)
	assert.Error(t, runCtx.Err())
}

func TestServeReturnsZeroOnCleanShutdown(t *testing.T) {
	chdir(t, t.TempDir())
	code := serve(func(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
		require.NotNil(t, cfg)
		require.NotNil(t, logr)
		return nil
	})
	assert.Equal(t, 0, code)
}
