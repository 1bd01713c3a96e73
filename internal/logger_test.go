package internal

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("prod writes JSON", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, "prod", "info").Info("order placed", "order_id", "o1")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "order placed", entry["msg"])
		assert.Equal(t, "o1", entry["order_id"])
		assert.Equal(t, "freyja", entry["service"])
	})

	t.Run("dev writes text", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(&buf, "dev", "info").Info("order placed")
		assert.True(t, strings.Contains(buf.String(), "msg=\"order placed\""))
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "dev", "warn")
		logger.Info("dropped")
		logger.Warn("kept")
		assert.NotContains(t, buf.String(), "dropped")
		assert.Contains(t, buf.String(), "kept")
	})
}
