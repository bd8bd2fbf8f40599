package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZapLoggerWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	log, err := NewZapLogger(Options{Level: "debug", File: file, MaxSizeMB: 1})
	require.NoError(t, err)

	ctx := WithTraceID(context.Background(), "trace-1")
	log.Infof(ctx, "order %s created", "CMD1A2B3")
	_ = log.Sync()

	assert.FileExists(t, file)
}

func TestNewZapLoggerRejectsUnknownEncoding(t *testing.T) {
	_, err := NewZapLogger(Options{Encoding: "xml"})
	assert.Error(t, err)
}

func TestTraceID(t *testing.T) {
	assert.Equal(t, "", TraceID(context.Background()))
	assert.Equal(t, "abc", TraceID(WithTraceID(context.Background(), "abc")))
}
