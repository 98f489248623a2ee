// Package app wires configuration, infrastructure and the HTTP API into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/saikilaru/TAMcust/config"
	"github.com/saikilaru/TAMcust/internal/services/tenant"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/health"
	"github.com/saikilaru/TAMcust/pkg/i18n"
	"github.com/saikilaru/TAMcust/pkg/middleware"
	"github.com/saikilaru/TAMcust/pkg/notify"
	"github.com/saikilaru/TAMcust/pkg/redis"
	"github.com/saikilaru/TAMcust/pkg/security"
	"github.com/saikilaru/TAMcust/pkg/startup"
	"github.com/saikilaru/TAMcust/pkg/tracing"
	"github.com/saikilaru/TAMcust/pkg/tracing/exporters"
)

const (
	depDatabase      = "database"
	depRedis         = "redis"
	depNotifications = "notifications"
	depHTTP          = "http"
)

type App struct {
	cfg     *config.Config
	logger  ectologger.Logger
	catalog *i18n.Catalog
	checker *health.Checker
	startup *startup.Startup

	db         database.DB
	redis      *redis.Client
	kafka      *notify.KafkaNotifier
	dispatcher *notify.Dispatcher
	server     *http.Server
	serveErr   chan error
}

func New(cfg *config.Config, logger ectologger.Logger) (*App, error) {
	catalog, err := i18n.Load(cfg.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		catalog:  catalog,
		checker:  health.NewChecker(cfg.Version),
		startup:  startup.New(logger, cfg.StartupMaxAttempts),
		serveErr: make(chan error, 1),
	}

	a.startup.Add(startup.Func{DepName: depDatabase, StartFunc: a.startDatabase, StopFunc: a.stopDatabase})
	httpParents := []string{depDatabase, depNotifications}
	if cfg.SignInRateLimit > 0 {
		a.startup.Add(startup.Func{DepName: depRedis, StartFunc: a.startRedis, StopFunc: a.stopRedis})
		httpParents = append(httpParents, depRedis)
	}
	a.startup.Add(startup.Func{DepName: depNotifications, StartFunc: a.startNotifications, StopFunc: a.stopNotifications})
	a.startup.Add(startup.Func{DepName: depHTTP, Parents: httpParents, StartFunc: a.startHTTP, StopFunc: a.stopHTTP})

	return a, nil
}

// Run starts every dependency and serves until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     a.cfg.OTLPEnabled,
		ServiceName: a.cfg.AppName,
		Environment: a.cfg.Environment,
		Version:     a.cfg.Version,
		SampleRatio: a.cfg.OTLPSampleRatio,
		OTLP: exporters.OTLPConfig{
			Endpoint: a.cfg.OTLPEndpoint,
			Protocol: a.cfg.OTLPProtocol,
			Insecure: a.cfg.OTLPInsecure,
		},
	}, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("tracing disabled")
	}

	if err := a.startup.Start(ctx); err != nil {
		_ = a.startup.Stop(context.Background())
		return err
	}
	a.checker.SetReady(true)
	a.logger.WithField("port", a.cfg.Port).Infof("%s is ready", a.cfg.AppName)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-a.serveErr:
		a.logger.WithError(runErr).Error("http server stopped unexpectedly")
	}

	a.checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := a.startup.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("failed to flush traces")
		}
	}
	return runErr
}

func (a *App) connectionConfig() database.ConnectionConfig {
	return database.ConnectionConfig{
		Driver:          a.cfg.DatabaseDriver,
		Host:            a.cfg.DatabaseHost,
		Port:            a.cfg.DatabasePort,
		UserName:        a.cfg.DatabaseUserName,
		Password:        a.cfg.DatabasePassword,
		Name:            a.cfg.DatabaseName,
		SSLMode:         a.cfg.DatabaseSSLMode,
		MaxOpenConns:    a.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    a.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: a.cfg.DatabaseConnMaxLifetime,
	}
}

func (a *App) startDatabase(ctx context.Context) error {
	db, err := database.Connect(ctx, a.connectionConfig(), a.logger)
	if err != nil {
		return err
	}
	if a.cfg.DatabaseMigrateOnStart {
		if err := migrationService(a.cfg, a.logger, 0, 0).MigratePostgres(a.cfg.DatabaseName, db.SQL()); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	a.db = db
	a.checker.Register(depDatabase, health.PingFunc(db.PingContext))
	return nil
}

func (a *App) stopDatabase(context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) startRedis(ctx context.Context) error {
	client, err := redis.NewClient(ctx, redis.Config{
		Host:     a.cfg.RedisHost,
		Port:     a.cfg.RedisPort,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	}, a.logger)
	if err != nil {
		return err
	}
	a.redis = client
	a.checker.Register(depRedis, client)
	return nil
}

func (a *App) stopRedis(context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

func (a *App) startNotifications(context.Context) error {
	var notifier notify.Notifier = notify.Noop{}
	if a.cfg.NotificationsEnabled {
		brokers := notify.ParseBrokers(a.cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when notifications are enabled")
		}
		a.kafka = notify.NewKafkaNotifier(notify.KafkaConfig{Brokers: brokers, Topic: a.cfg.KafkaNotificationTopic}, a.logger)
		notifier = a.kafka
	}
	a.dispatcher = notify.NewDispatcher(notifier, a.logger, a.cfg.NotificationTimeout)
	return nil
}

func (a *App) stopNotifications(context.Context) error {
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	if a.kafka == nil {
		return nil
	}
	return a.kafka.Close()
}

func (a *App) startHTTP(ctx context.Context) error {
	routerCfg := RouterConfig{
		ServiceName:  a.cfg.AppName,
		AllowOrigins: a.cfg.AllowOrigins,
		AllowMethods: a.cfg.AllowMethods,
		SignIn: middleware.RateLimitConfig{
			Limit:  int64(a.cfg.SignInRateLimit),
			Window: a.cfg.SignInRateWindow,
		},
	}
	if a.redis != nil {
		routerCfg.Limiter = redis.NewRateLimiter(a.redis, a.cfg.AppName)
	}
	if a.cfg.AuthOIDCIssuerURL != "" {
		verifier, err := middleware.NewOIDCVerifier(ctx, a.cfg.AuthOIDCIssuerURL, a.cfg.AuthOIDCClientID)
		if err != nil {
			return err
		}
		routerCfg.Verifier = verifier
	}

	services := NewServices(NewPostgresRepositories(a.db, a.logger), a.db, ServiceConfig{
		TenantMode: tenant.Mode(a.cfg.TenantMode),
		Hasher:     security.NewPasswordHasher(a.cfg.AuthBcryptCost),
		Tokens:     security.NewTokenManager(a.cfg.AuthJWTSecret, a.cfg.AuthJWTExpiresIn),
	}, a.catalog, a.dispatcher, a.logger)

	e := NewRouter(routerCfg, services, a.catalog, a.checker, a.logger)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", a.cfg.Port, err)
	}

	a.server = &http.Server{
		Handler:           e,
		ReadTimeout:       time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	go func() {
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serveErr <- err
		}
	}()

	a.logger.WithField("addr", listener.Addr().String()).Info("http server listening")
	return nil
}

func (a *App) stopHTTP(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Migrate applies the migration folder and exits. version 0 migrates to the latest version.
func Migrate(ctx context.Context, cfg *config.Config, logger ectologger.Logger, version uint, force int) error {
	a := &App{cfg: cfg, logger: logger}
	db, err := database.Connect(ctx, a.connectionConfig(), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return migrationService(cfg, logger, version, force).MigratePostgres(cfg.DatabaseName, db.SQL())
}

func migrationService(cfg *config.Config, logger ectologger.Logger, version uint, force int) *database.MigrationService {
	if version == 0 && cfg.DatabaseMigrationVersion > 0 {
		version = uint(cfg.DatabaseMigrationVersion)
	}
	if force == 0 {
		force = cfg.DatabaseMigrationForce
	}
	return database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             version,
		Force:               force,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
}
