package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("APP_ENV", "development")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 10, cfg.MaxProductImages)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 5, cfg.ContactPerMinute)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CONTACT_INBOX=inbox@alesteb.test\nMAX_PRODUCT_IMAGES=4\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Cleanup(func() {
		_ = os.Unsetenv("CONTACT_INBOX")
		_ = os.Unsetenv("MAX_PRODUCT_IMAGES")
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "inbox@alesteb.test", cfg.ContactInbox)
	assert.Equal(t, 4, cfg.MaxProductImages)
}

func TestLoadConfigRejectsInvalidSettings(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "short secret", env: map[string]string{"JWT_SECRET": "short"}},
		{name: "memory storage in production", env: map[string]string{"APP_ENV": "production"}},
		{name: "s3 without bucket", env: map[string]string{"STORAGE_DRIVER": "s3"}},
		{name: "unknown driver", env: map[string]string{"STORAGE_DRIVER": "ftp"}},
		{name: "no images allowed", env: map[string]string{"MAX_PRODUCT_IMAGES": "0"}},
		{name: "tiny uploads", env: map[string]string{"MAX_UPLOAD_BYTES": "1024"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "production", LogFormat: "json"}, &buf)
	logger.Debug("hidden")
	logger.Info("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "alesteb-api", entry["service"])
	assert.Equal(t, "production", entry["env"])
}
