package s3delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDisabledByDefault(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.IsEnabled())
}

func TestLoadConfigEnabledRequiresCredentials(t *testing.T) {
	t.Setenv("S3_DELIVERY_ENABLED", "true")
	t.Setenv("S3_ACCESS_KEY_ID", "")
	t.Setenv("S3_SECRET_ACCESS_KEY", "")
	t.Setenv("S3_BUCKET_NAME", "")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_BUCKET_NAME", "stockship-exports")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, "stockship-exports", cfg.GetBucketName())
}

func TestGetObjectKey(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	ts := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	key := cfg.GetObjectKey("abc-123", "etsy_export_2025-03-14_103000.zip", ts)
	assert.Equal(t, "exports/2025/03/abc-123/etsy_export_2025-03-14_103000.zip", key)
}
