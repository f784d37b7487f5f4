package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_parseFile_JSON(t *testing.T) {
	path := writeTempFile(t, "cfg.json", `{
		"patient_store": "sqlite",
		"patient_store_path": "p.db",
		"record_store_path": "r.db",
		"session_ttl": "10m",
		"lockout_duration": 60000000000,
		"argon2_iterations": 5,
		"cipher": "xsalsa20-poly1305"
	}`)

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseFile(&c, path))

	assert.Equal(t, StoreSQLite, c.PatientStore)
	assert.Equal(t, "p.db", c.PatientStorePath)
	assert.Equal(t, "r.db", c.RecordStorePath)
	assert.Equal(t, 10*time.Minute, c.SessionTTL)
	assert.Equal(t, time.Minute, c.LockoutDuration)
	assert.Equal(t, uint32(5), c.Argon2Iterations)
	assert.Equal(t, "xsalsa20-poly1305", c.Cipher)
	assert.Equal(t, "secretKey", c.SecretKey, "absent fields keep defaults")
}

func Test_parseFile_TOML(t *testing.T) {
	path := writeTempFile(t, "cfg.toml", `
blob_store = "s3"
s3_bucket = "vault"
s3_base_endpoint = "http://minio:9000"
lockout_backend = "redis"
redis_addr = "redis:6379"
lockout_window = "2m"
log_format = "json"
`)

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseFile(&c, path))

	assert.Equal(t, BlobS3, c.BlobStore)
	assert.Equal(t, "vault", c.S3Bucket)
	assert.Equal(t, "http://minio:9000", c.S3BaseEndpoint)
	assert.Equal(t, LockoutRedis, c.LockoutBackend)
	assert.Equal(t, "redis:6379", c.RedisAddr)
	assert.Equal(t, 2*time.Minute, c.LockoutWindow)
	assert.Equal(t, "json", c.LogFormat)
}

func Test_parseFile_Errors(t *testing.T) {
	t.Run("no path means no changes", func(t *testing.T) {
		c := Config{SecretKey: "keep"}
		require.NoError(t, parseFile(&c, ""))
		assert.Equal(t, "keep", c.SecretKey)
	})

	t.Run("missing file", func(t *testing.T) {
		var c Config
		require.Error(t, parseFile(&c, filepath.Join(t.TempDir(), "nope.json")))
	})

	t.Run("invalid json", func(t *testing.T) {
		var c Config
		require.Error(t, parseFile(&c, writeTempFile(t, "bad.json", `{ this is not valid json`)))
	})

	t.Run("invalid toml", func(t *testing.T) {
		var c Config
		require.Error(t, parseFile(&c, writeTempFile(t, "bad.toml", `session_ttl = = "1m"`)))
	})
}
