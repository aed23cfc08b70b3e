package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	require.NotNil(t, FromContext(context.Background()))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), logger)
	require.Same(t, logger, FromContext(ctx))
	FromContext(ctx).Info("hello", "cells", 3)
	require.Contains(t, buf.String(), "cells=3")

	require.NotNil(t, FromContext(WithLogger(context.Background(), nil)))
}
