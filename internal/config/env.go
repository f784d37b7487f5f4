package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "MEDKEEPER_"

type lookupFunc func(key string) (string, bool)

func lookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// loadDotEnv exports variables from a .env file into the process
// environment. Variables already set win over the file. A missing file is
// not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseEnv overlays MEDKEEPER_* variables onto config.
//
// Durations accept time.ParseDuration syntax ("30m"). Numeric settings must
// parse as base-10 integers.
func parseEnv(config *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	var firstErr error
	fail := func(name string, err error) {
		if firstErr == nil {
			firstErr = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
	}

	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				fail(name, err)
				return
			}
			*dst = d
		}
	}
	u32 := func(name string, dst *uint32) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				fail(name, err)
				return
			}
			*dst = uint32(n)
		}
	}

	str("PATIENT_STORE", &config.PatientStore)
	str("PATIENT_STORE_PATH", &config.PatientStorePath)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("RECORD_STORE", &config.RecordStore)
	str("RECORD_STORE_PATH", &config.RecordStorePath)
	str("BLOB_STORE", &config.BlobStore)
	str("BLOB_DIR", &config.BlobDir)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("IDENTITY_PEPPER", &config.IdentityPepper)
	str("SECRET_KEY", &config.SecretKey)
	dur("SESSION_TTL", &config.SessionTTL)
	u32("ARGON2_MEMORY", &config.Argon2Memory)
	u32("ARGON2_ITERATIONS", &config.Argon2Iterations)
	if v, ok := lookup(EnvPrefix + "ARGON2_PARALLELISM"); ok {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			fail("ARGON2_PARALLELISM", err)
		} else {
			config.Argon2Parallelism = uint8(n)
		}
	}
	str("CIPHER", &config.Cipher)
	str("LOCKOUT_BACKEND", &config.LockoutBackend)
	if v, ok := lookup(EnvPrefix + "LOCKOUT_MAX_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			fail("LOCKOUT_MAX_ATTEMPTS", err)
		} else {
			config.LockoutMaxAttempts = n
		}
	}
	dur("LOCKOUT_WINDOW", &config.LockoutWindow)
	dur("LOCKOUT_DURATION", &config.LockoutDuration)
	str("REDIS_ADDR", &config.RedisAddr)
	str("AUDIT_BACKEND", &config.AuditBackend)
	str("AMQP_URL", &config.AMQPURL)
	str("AMQP_QUEUE", &config.AMQPQueue)
	str("LOG_LEVEL", &config.LogLevel)
	str("LOG_FORMAT", &config.LogFormat)

	return firstErr
}
