// Package app builds a ready-to-use medical.System from configuration and
// owns every resource opened along the way.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/medkeeper/internal/audit"
	"github.com/dmitrijs2005/medkeeper/internal/blobstore"
	"github.com/dmitrijs2005/medkeeper/internal/config"
	"github.com/dmitrijs2005/medkeeper/internal/cryptox"
	"github.com/dmitrijs2005/medkeeper/internal/lockout"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/medical"
	"github.com/dmitrijs2005/medkeeper/internal/repositories/repomanager"
	"github.com/dmitrijs2005/medkeeper/internal/services"
	"github.com/dmitrijs2005/medkeeper/internal/session"
)

// Seams for tests.
var (
	dialRedis = lockout.DialRedis
	dialAMQP  = func(url, queue string) (audit.Publisher, error) { return audit.DialAMQP(url, queue) }
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	closers []io.Closer

	Auth   *services.AuthService
	Vault  *services.VaultService
	Gate   *session.Gate
	System *medical.System
}

// NewApp wires every component selected by c. Log output goes to logOut.
// Anything opened before a failure is closed again.
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (_ *App, err error) {
	logger, err := logging.New(c.LogLevel, c.LogFormat, logOut)
	if err != nil {
		return nil, err
	}

	if err := c.CheckDurability(); err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	app.repos, err = repomanager.NewRepositoryManager(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	blobs, err := blobstore.New(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	limiter, err := app.newLimiter(ctx)
	if err != nil {
		return nil, fmt.Errorf("lockout init error: %w", err)
	}

	events, err := app.newPublisher()
	if err != nil {
		return nil, fmt.Errorf("audit init error: %w", err)
	}

	cipher, err := cryptox.NewCipher(c.Cipher)
	if err != nil {
		return nil, err
	}

	app.Auth, err = services.NewAuthService(app.repos.Patients(), limiter, []byte(c.IdentityPepper), c.Argon2Params(), logger)
	if err != nil {
		return nil, err
	}
	app.Vault = services.NewVaultService(app.repos.Records(), blobs, cipher, logger)

	app.Gate, err = session.NewGate([]byte(c.SecretKey), c.SessionTTL, logger)
	if err != nil {
		return nil, err
	}

	app.System = medical.NewSystem(app.Auth, app.Vault, app.Gate, events, logger)

	logger.Info(ctx, "medkeeper ready",
		"patient_store", c.PatientStore,
		"record_store", c.RecordStore,
		"blob_store", c.BlobStore,
		"cipher", c.Cipher,
		"lockout", c.LockoutBackend,
		"audit", c.AuditBackend,
	)
	return app, nil
}

func (app *App) Logger() logging.Logger { return app.logger }

func (app *App) newLimiter(ctx context.Context) (lockout.Limiter, error) {
	p := lockout.Policy{
		MaxAttempts: app.config.LockoutMaxAttempts,
		Window:      app.config.LockoutWindow,
		Duration:    app.config.LockoutDuration,
	}

	switch app.config.LockoutBackend {
	case config.LockoutNone:
		return lockout.Nop{}, nil
	case config.StoreMemory:
		return lockout.NewMemory(p), nil
	case config.LockoutRedis:
		rdb, err := dialRedis(ctx, app.config.RedisAddr)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, rdb)
		return lockout.NewRedis(rdb, p), nil
	}
	return nil, fmt.Errorf("unknown lockout backend: %s", app.config.LockoutBackend)
}

func (app *App) newPublisher() (audit.Publisher, error) {
	switch app.config.AuditBackend {
	case config.AuditLog:
		return audit.NewLogPublisher(app.logger), nil
	case config.AuditAMQP:
		p, err := dialAMQP(app.config.AMQPURL, app.config.AMQPQueue)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, p)
		return p, nil
	}
	return nil, fmt.Errorf("unknown audit backend: %s", app.config.AuditBackend)
}

// Close releases stores and connections in reverse order of creation.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i].Close())
	}
	app.closers = nil
	if app.repos != nil {
		errs = append(errs, app.repos.Close())
		app.repos = nil
	}
	return errors.Join(errs...)
}

// WithSignals returns a context cancelled on SIGINT, SIGTERM or SIGQUIT.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
}
