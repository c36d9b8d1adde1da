package logx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/escolar/pkg/logx"
)

func newBufferLogger(format logx.Format, level logx.Level) (*logx.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := logx.DefaultConfig()
	cfg.Format = format
	cfg.Level = level
	cfg.EnableColors = false
	cfg.EnableTimestamp = false
	cfg.Output = &buf
	return logx.NewLogger(cfg), &buf
}

func TestJSONFormatter_WritesFieldsAndError(t *testing.T) {
	logger, buf := newBufferLogger(logx.FormatJSON, logx.LevelDebug)

	logger.WithFields(logx.Fields{"scan_id": "abc"}).WithError(errors.New("boom")).Warn("scan failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "scan failed", line["message"])
	assert.Equal(t, "abc", line["scan_id"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "escolar", line["service"])
}

func TestCloudWatchFormatter_UsesMsgKey(t *testing.T) {
	logger, buf := newBufferLogger(logx.FormatCloudWatch, logx.LevelInfo)

	logger.WithField("engine", "flask").Info("recognized")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "recognized", line["msg"])
	assert.NotContains(t, line, "message")
}

func TestConsoleFormatter_SortsFields(t *testing.T) {
	logger, buf := newBufferLogger(logx.FormatConsole, logx.LevelInfo)

	logger.WithFields(logx.Fields{"b": 2, "a": 1}).Info("hello")

	assert.Equal(t, "[INFO] hello a=1 b=2\n", buf.String())
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(logx.FormatConsole, logx.LevelWarn)

	logger.WithField("k", "v").Info("hidden")
	assert.Empty(t, buf.String())

	logger.SetLevel(logx.LevelOff)
	logger.WithField("k", "v").Error("hidden too")
	assert.Empty(t, buf.String())
}

func TestContextFields(t *testing.T) {
	logger, buf := newBufferLogger(logx.FormatJSON, logx.LevelInfo)

	ctx := logx.ContextWithFields(context.Background(), logx.Fields{"request_id": "r-1"})
	ctx = logx.ContextWithFields(ctx, logx.Fields{"user_id": "u-1"})
	logger.WithField("x", 1).WithContext(ctx).Info("ctx")

	out := buf.String()
	assert.True(t, strings.Contains(out, `"request_id":"r-1"`))
	assert.True(t, strings.Contains(out, `"user_id":"u-1"`))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logx.LevelWarn, logx.ParseLevel("warning"))
	assert.Equal(t, logx.LevelDebug, logx.ParseLevel(" debug "))
	assert.Equal(t, logx.LevelInfo, logx.ParseLevel("nonsense"))
	assert.Equal(t, "OFF", logx.LevelOff.String())
}
