package chatauth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	calls []string
}

func (c *captureLogger) Debug(format string, args ...any) { c.calls = append(c.calls, render(format, args)) }
func (c *captureLogger) Info(format string, args ...any)  { c.calls = append(c.calls, render(format, args)) }
func (c *captureLogger) Warn(format string, args ...any)  { c.calls = append(c.calls, render(format, args)) }
func (c *captureLogger) Error(format string, args ...any) { c.calls = append(c.calls, render(format, args)) }

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = orig

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestRenderFormats(t *testing.T) {
	assert.Equal(t, "issued 3 tokens\n", render("issued %d tokens", []any{3}))
	assert.Equal(t, "chat token rejected reason=expired identity=\n", render("chat token rejected", []any{"reason", ReasonExpired, "identity", ""}))
	assert.Equal(t, "odd args dangling\n", render("odd args", []any{"dangling"}))
	assert.Equal(t, "plain\n", render("plain\n", nil))
}

func TestDefaultLoggerPrefixes(t *testing.T) {
	out := captureStdout(t, func() {
		logger := DefaultLogger()
		logger.Debug("debug")
		logger.Info("info")
		logger.Warn("warn")
		logger.Error("error", "code", 42)
	})

	assert.Contains(t, out, "[DBG] CHATAUTH debug\n")
	assert.Contains(t, out, "[INF] CHATAUTH info\n")
	assert.Contains(t, out, "[WRN] CHATAUTH warn\n")
	assert.Contains(t, out, "[ERR] CHATAUTH error code=42\n")
}

func TestNormalizeLogger(t *testing.T) {
	assert.Equal(t, defLogger{}, normalizeLogger(nil))

	custom := &captureLogger{}
	assert.Same(t, custom, normalizeLogger(custom))
}

func TestRecordActivitySwallowsSinkErrors(t *testing.T) {
	logger := &captureLogger{}
	sink := ActivitySinkFunc(func(ctx context.Context, event ActivityEvent) error {
		assert.False(t, event.OccurredAt.IsZero())
		return errors.New("sink down")
	})

	assert.NotPanics(t, func() {
		RecordActivity(context.Background(), sink, logger, ActivityEvent{EventType: ActivityEventTokenIssued})
	})

	require.Len(t, logger.calls, 1)
	assert.Contains(t, logger.calls[0], "activity sink failed")
	assert.Contains(t, logger.calls[0], "sink down")
}

func TestNormalizeActivitySink(t *testing.T) {
	sink := NormalizeActivitySink(nil)
	assert.NoError(t, sink.Record(context.Background(), ActivityEvent{}))

	var nilFunc ActivitySinkFunc
	assert.NoError(t, nilFunc.Record(context.Background(), ActivityEvent{}))

	RecordActivity(context.Background(), nil, nil, ActivityEvent{})
}

func TestVerifierRejectionLogOmitsIdentity(t *testing.T) {
	logger := &captureLogger{}
	verifier, err := NewTokenVerifier("secret-A", WithVerifierLogger(logger))
	require.NoError(t, err)

	token, err := SignToken("user123", time.Now().UnixMilli(), "secret-B")
	require.NoError(t, err)

	result := verifier.Verify(context.Background(), token)
	require.False(t, result.Valid)

	require.Len(t, logger.calls, 1)
	assert.Equal(t, "chat token rejected reason=invalid_signature\n", logger.calls[0])
}
