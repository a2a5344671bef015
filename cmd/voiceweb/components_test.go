package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/voiceweb/answers"
	"github.com/BaSui01/voiceweb/capture"
	"github.com/BaSui01/voiceweb/config"
	"github.com/BaSui01/voiceweb/page"
	"github.com/BaSui01/voiceweb/testutil"
	"github.com/BaSui01/voiceweb/testutil/fixtures"
	"github.com/BaSui01/voiceweb/testutil/mocks"
)

func TestInitLogger(t *testing.T) {
	logger := initLogger(config.LogConfig{Level: "debug", Format: "console", OutputPaths: []string{"stderr"}})
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger = initLogger(config.LogConfig{Level: "warn", Format: "json"})
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestNewSourceProvider(t *testing.T) {
	cfg := config.DefaultCaptureConfig()

	cfg.Provider = "synthetic"
	p, err := newSourceProvider(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &capture.SyntheticProvider{}, p)

	cfg.Provider = "display"
	p, err = newSourceProvider(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &capture.DisplayProvider{}, p)

	cfg.Provider = "tab"
	_, err = newSourceProvider(cfg, nil, nil)
	assert.Error(t, err)

	cfg.Provider = "webcam"
	_, err = newSourceProvider(cfg, nil, nil)
	assert.Error(t, err)
}

func TestNewSourceProvider_TabCapturesBrowserViewport(t *testing.T) {
	cfg := config.DefaultCaptureConfig()
	cfg.Provider = "tab"
	browser := mocks.NewMockScreenshotter().WithPNG(fixtures.PNG(t, 2560, 1440))
	t.Cleanup(browser.Close)

	p, err := newSourceProvider(cfg, browser, nil)
	require.NoError(t, err)
	assert.IsType(t, &page.TabProvider{}, p)

	orch := newOrchestrator(cfg, p, nil, zaptest.NewLogger(t))
	result := orch.Capture(testutil.TestContext(t))
	require.True(t, result.Success, result.Error)
	assert.Equal(t, capture.PathFast, result.Path)
	assert.Equal(t, 1920, result.Width)
	assert.Equal(t, 1080, result.Height)
	assert.Equal(t, int64(1), browser.Calls())
}

func TestOpenAnswerStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := config.DefaultConfig()
		store, check, closeFn, err := openAnswerStore(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &answers.MemoryStore{}, store)
		assert.Nil(t, check)
	})

	t.Run("gorm sqlite", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Storage.Driver = "gorm"
		cfg.Database.Driver = "sqlite"
		cfg.Database.Name = ":memory:"
		store, check, closeFn, err := openAnswerStore(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer closeFn()

		n, err := store.Append(ctx, "q", "a")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.NotNil(t, check)
		assert.Equal(t, "database", check.Name())
		assert.NoError(t, check.Check(ctx))
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.DefaultConfig()
		cfg.Storage.Driver = "redis"
		cfg.Redis.Addr = mr.Addr()
		store, check, closeFn, err := openAnswerStore(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer closeFn()

		n, err := store.Append(ctx, "q", "a")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, "redis", check.Name())
		assert.NoError(t, check.Check(ctx))
	})

	t.Run("unsupported", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Storage.Driver = "etcd"
		_, _, _, err := openAnswerStore(ctx, cfg, nil)
		assert.Error(t, err)
	})
}

func TestCaptureOnce_Synthetic(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Capture.Provider = "synthetic"

	result, err := captureOnce(context.Background(), cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, capture.PathFast, result.Path)
	require.NotNil(t, result.Image)
	assert.LessOrEqual(t, result.Width, cfg.Capture.Budget.MaxWidth)
	assert.LessOrEqual(t, result.Height, cfg.Capture.Budget.MaxHeight)
	assert.NotEmpty(t, result.Image.Data)
}
