package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/medkeeper/internal/flagx"
)

// flagNames lists the flags parseFlags understands. Short names follow the
// server conventions (-d DSN, -s secret, -u/-p/-b/-g/-e for S3).
var flagNames = []string{
	"patient-store", "patient-store-path", "d",
	"record-store", "record-store-path",
	"blob-store", "blob-dir",
	"u", "p", "b", "g", "e",
	"pepper", "s", "session-ttl",
	"cipher",
	"lockout", "lockout-max-attempts", "lockout-window", "lockout-duration", "redis-addr",
	"audit", "amqp-url", "amqp-queue",
	"log-level", "log-format",
}

// parseFlags populates Config fields from command-line flags.
//
// args are filtered with flagx.FilterArgs first, so flags meant for other
// components (e.g. -c) do not make parsing fail. Durations use Go syntax.
func parseFlags(config *Config, args []string) error {
	allowed := make([]string, 0, len(flagNames)*2)
	for _, n := range flagNames {
		allowed = append(allowed, "-"+n, "--"+n)
	}
	filtered := flagx.FilterArgs(args, allowed)

	fs := flag.NewFlagSet("medkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.PatientStore, "patient-store", config.PatientStore, "patient store: memory|json|sqlite|postgres")
	fs.StringVar(&config.PatientStorePath, "patient-store-path", config.PatientStorePath, "patient store file (json/sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "PostgreSQL DSN")

	fs.StringVar(&config.RecordStore, "record-store", config.RecordStore, "record store: memory|sqlite")
	fs.StringVar(&config.RecordStorePath, "record-store-path", config.RecordStorePath, "record store sqlite file")

	fs.StringVar(&config.BlobStore, "blob-store", config.BlobStore, "blob store: filesystem|memory|s3")
	fs.StringVar(&config.BlobDir, "blob-dir", config.BlobDir, "directory for encrypted blobs")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.IdentityPepper, "pepper", config.IdentityPepper, "HMAC pepper for SSN digests")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "session token secret key")
	fs.DurationVar(&config.SessionTTL, "session-ttl", config.SessionTTL, "session lifetime")

	fs.StringVar(&config.Cipher, "cipher", config.Cipher, "record cipher")

	fs.StringVar(&config.LockoutBackend, "lockout", config.LockoutBackend, "lockout backend: memory|redis|none")
	fs.IntVar(&config.LockoutMaxAttempts, "lockout-max-attempts", config.LockoutMaxAttempts, "failed logins before lockout")
	fs.DurationVar(&config.LockoutWindow, "lockout-window", config.LockoutWindow, "window for counting failures")
	fs.DurationVar(&config.LockoutDuration, "lockout-duration", config.LockoutDuration, "how long a locked identity stays locked")
	fs.StringVar(&config.RedisAddr, "redis-addr", config.RedisAddr, "Redis address")

	fs.StringVar(&config.AuditBackend, "audit", config.AuditBackend, "audit backend: log|amqp")
	fs.StringVar(&config.AMQPURL, "amqp-url", config.AMQPURL, "AMQP broker URL")
	fs.StringVar(&config.AMQPQueue, "amqp-queue", config.AMQPQueue, "AMQP audit queue")

	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format: text|json")

	return fs.Parse(filtered)
}
