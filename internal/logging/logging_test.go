package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "warn", Format: "json"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "school", "east")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"school":"east"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Options{Level: "loud"})
	assert.Error(t, err)
}

type report struct {
	err    error
	extras map[string]interface{}
}

func TestRollbarHandlerReportsErrors(t *testing.T) {
	var (
		buf     bytes.Buffer
		reports []report
	)
	h := NewRollbarHandler(slog.NewTextHandler(&buf, nil), func(err error, extras map[string]interface{}) {
		reports = append(reports, report{err, extras})
	})
	logger := slog.New(h).With("component", "store")

	logger.Info("request completed")
	assert.Empty(t, reports)

	boom := errors.New("disk full")
	logger.Error("insert message", "error", boom, "school", "east")
	require.Len(t, reports, 1)
	assert.Equal(t, boom, reports[0].err)
	assert.Equal(t, "insert message", reports[0].extras["message"])
	assert.Equal(t, "east", reports[0].extras["school"])
	assert.Equal(t, "store", reports[0].extras["component"])

	logger.Error("shutdown timed out")
	require.Len(t, reports, 2)
	assert.EqualError(t, reports[1].err, "shutdown timed out")

	// every record still reaches the wrapped handler
	assert.Contains(t, buf.String(), "request completed")
	assert.Contains(t, buf.String(), "disk full")
}
