package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/rtspoverlay/internal/domain"
	"github.com/pscheid92/rtspoverlay/internal/platform/retry"
)

func TestConnect_MalformedURLIsPermanent(t *testing.T) {
	pool, err := Connect(context.Background(), "postgres://localhost:abc/db", nil)

	assert.Nil(t, pool)
	var permErr *retry.PermanentError
	require.ErrorAs(t, err, &permErr)
	assert.Contains(t, err.Error(), "failed to parse database URL")
}

func TestExtractSSLMode(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=require", "require"},
		{"postgres://u:p@localhost:5432/db?sslmode=DISABLE", "disable"},
		{"postgres://u:p@localhost:5432/db", "prefer (default)"},
		{"://bad", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, extractSSLMode(tt.url))
		})
	}
}

func TestExtractQueryName(t *testing.T) {
	assert.Equal(t, "SELECT", extractQueryName("SELECT id::text, data FROM overlays"))
	assert.Equal(t, "UPDATE", extractQueryName("\n  update overlays SET data = data"))
	assert.Equal(t, "unknown", extractQueryName("   "))
	assert.Len(t, extractQueryName("averyveryverylongstatementwithoutspaces"), 20)
}

func TestEncodeDecodeFields_PreservesNumbers(t *testing.T) {
	fields := domain.Fields{
		"x":       json.Number("10.50"),
		"content": map[string]any{"src": "logo.png"},
		"opacity": nil,
	}

	data, err := encodeFields(fields)
	require.NoError(t, err)

	decoded, err := decodeFields([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, json.Number("10.50"), decoded["x"])
	assert.Equal(t, map[string]any{"src": "logo.png"}, decoded["content"])
	v, ok := decoded["opacity"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestEncodeFields_NilIsEmptyObject(t *testing.T) {
	data, err := encodeFields(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", data)
}

func TestDecodeFields_Invalid(t *testing.T) {
	_, err := decodeFields([]byte("not json"))
	assert.Error(t, err)
}

func TestSchemaFilesEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "001_create_overlays.sql", entries[0].Name())
}
