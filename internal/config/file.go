package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/medkeeper/internal/timex"
)

// FileConfig is the on-disk shape of a config file, shared by the JSON and
// TOML decoders. Interval fields use timex.Duration so both "30m" and integer
// nanoseconds are accepted.
//
// Only fields present with a non-zero value override what is already in
// Config.
type FileConfig struct {
	PatientStore     string `json:"patient_store" toml:"patient_store"`
	PatientStorePath string `json:"patient_store_path" toml:"patient_store_path"`
	DatabaseDSN      string `json:"database_dsn" toml:"database_dsn"`

	RecordStore     string `json:"record_store" toml:"record_store"`
	RecordStorePath string `json:"record_store_path" toml:"record_store_path"`

	BlobStore string `json:"blob_store" toml:"blob_store"`
	BlobDir   string `json:"blob_dir" toml:"blob_dir"`

	S3RootUser     string `json:"s3_root_user" toml:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password" toml:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket" toml:"s3_bucket"`
	S3Region       string `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" toml:"s3_base_endpoint"`

	IdentityPepper string         `json:"identity_pepper" toml:"identity_pepper"`
	SecretKey      string         `json:"secret_key" toml:"secret_key"`
	SessionTTL     timex.Duration `json:"session_ttl" toml:"session_ttl"`

	Argon2Memory      uint32 `json:"argon2_memory" toml:"argon2_memory"`
	Argon2Iterations  uint32 `json:"argon2_iterations" toml:"argon2_iterations"`
	Argon2Parallelism uint8  `json:"argon2_parallelism" toml:"argon2_parallelism"`

	Cipher string `json:"cipher" toml:"cipher"`

	LockoutBackend     string         `json:"lockout_backend" toml:"lockout_backend"`
	LockoutMaxAttempts int            `json:"lockout_max_attempts" toml:"lockout_max_attempts"`
	LockoutWindow      timex.Duration `json:"lockout_window" toml:"lockout_window"`
	LockoutDuration    timex.Duration `json:"lockout_duration" toml:"lockout_duration"`
	RedisAddr          string         `json:"redis_addr" toml:"redis_addr"`

	AuditBackend string `json:"audit_backend" toml:"audit_backend"`
	AMQPURL      string `json:"amqp_url" toml:"amqp_url"`
	AMQPQueue    string `json:"amqp_queue" toml:"amqp_queue"`

	LogLevel  string `json:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" toml:"log_format"`
}

// parseFile loads path (if non-empty) and overlays it onto config. The
// decoder is picked by extension: ".toml" uses BurntSushi/toml, anything
// else is treated as JSON.
func parseFile(config *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), fc); err != nil {
			return fmt.Errorf("decode toml %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, fc); err != nil {
			return fmt.Errorf("decode json %s: %w", path, err)
		}
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(config *Config) {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	setStr(&config.PatientStore, fc.PatientStore)
	setStr(&config.PatientStorePath, fc.PatientStorePath)
	setStr(&config.DatabaseDSN, fc.DatabaseDSN)
	setStr(&config.RecordStore, fc.RecordStore)
	setStr(&config.RecordStorePath, fc.RecordStorePath)
	setStr(&config.BlobStore, fc.BlobStore)
	setStr(&config.BlobDir, fc.BlobDir)
	setStr(&config.S3RootUser, fc.S3RootUser)
	setStr(&config.S3RootPassword, fc.S3RootPassword)
	setStr(&config.S3Bucket, fc.S3Bucket)
	setStr(&config.S3Region, fc.S3Region)
	setStr(&config.S3BaseEndpoint, fc.S3BaseEndpoint)
	setStr(&config.IdentityPepper, fc.IdentityPepper)
	setStr(&config.SecretKey, fc.SecretKey)
	setStr(&config.Cipher, fc.Cipher)
	setStr(&config.LockoutBackend, fc.LockoutBackend)
	setStr(&config.RedisAddr, fc.RedisAddr)
	setStr(&config.AuditBackend, fc.AuditBackend)
	setStr(&config.AMQPURL, fc.AMQPURL)
	setStr(&config.AMQPQueue, fc.AMQPQueue)
	setStr(&config.LogLevel, fc.LogLevel)
	setStr(&config.LogFormat, fc.LogFormat)

	if fc.SessionTTL.Duration != 0 {
		config.SessionTTL = fc.SessionTTL.Duration
	}
	if fc.LockoutWindow.Duration != 0 {
		config.LockoutWindow = fc.LockoutWindow.Duration
	}
	if fc.LockoutDuration.Duration != 0 {
		config.LockoutDuration = fc.LockoutDuration.Duration
	}
	if fc.Argon2Memory != 0 {
		config.Argon2Memory = fc.Argon2Memory
	}
	if fc.Argon2Iterations != 0 {
		config.Argon2Iterations = fc.Argon2Iterations
	}
	if fc.Argon2Parallelism != 0 {
		config.Argon2Parallelism = fc.Argon2Parallelism
	}
	if fc.LockoutMaxAttempts != 0 {
		config.LockoutMaxAttempts = fc.LockoutMaxAttempts
	}
}
