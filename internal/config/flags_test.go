package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name: "store and s3 flags",
			args: []string{
				"-patient-store", "postgres", "-d", "db",
				"-record-store", "memory",
				"-blob-store", "s3", "-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			},
			mutate: func(c *Config) {
				c.PatientStore = StorePostgres
				c.DatabaseDSN = "db"
				c.RecordStore = StoreMemory
				c.BlobStore = BlobS3
				c.S3RootUser = "user"
				c.S3RootPassword = "password"
				c.S3Bucket = "bucket"
				c.S3Region = "us-west-1"
				c.S3BaseEndpoint = "http://endpoint"
			},
		},
		{
			name: "security and lockout flags, double dash",
			args: []string{
				"--pepper", "pp", "-s", "secret", "--session-ttl=90s",
				"-lockout", "redis", "-lockout-max-attempts", "3", "-lockout-window", "2m", "-redis-addr", "r:6379",
				"-cipher", "age-x25519",
			},
			mutate: func(c *Config) {
				c.IdentityPepper = "pp"
				c.SecretKey = "secret"
				c.SessionTTL = 90 * time.Second
				c.LockoutBackend = LockoutRedis
				c.LockoutMaxAttempts = 3
				c.LockoutWindow = 2 * time.Minute
				c.RedisAddr = "r:6379"
				c.Cipher = "age-x25519"
			},
		},
		{
			name: "unrelated flags are ignored",
			args: []string{"-c", "conf.toml", "-x", "1", "-log-level", "debug", "-audit", "amqp"},
			mutate: func(c *Config) {
				c.LogLevel = "debug"
				c.AuditBackend = AuditAMQP
			},
		},
		{
			name:    "bad duration",
			args:    []string{"-session-ttl", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			config.LoadDefaults()

			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			expected := &Config{}
			expected.LoadDefaults()
			tt.mutate(expected)

			assert.Empty(t, cmp.Diff(expected, config))
		})
	}
}
