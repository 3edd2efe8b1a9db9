package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/api"
	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/config"
	"github.com/hackgods/clinic-booking/internal/db"
	"github.com/hackgods/clinic-booking/internal/logging"
	"github.com/hackgods/clinic-booking/internal/mail"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/notification"
	"github.com/hackgods/clinic-booking/internal/patient"
	"github.com/hackgods/clinic-booking/internal/realtime"
	redisclient "github.com/hackgods/clinic-booking/internal/redis"
	"github.com/hackgods/clinic-booking/internal/sequence"
	"github.com/hackgods/clinic-booking/internal/summary"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info", "dev")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.LogLevel, cfg.Env)
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(rootCtx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api-server stopped")
	}
	logger.Info().Msg("api-server shut down")
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pgPool, err := db.ConnectPostgresWithOptions(pgCtx, cfg.PostgresDSN, db.PoolOptions{
		MaxConns: cfg.PGMaxConns,
		MinConns: cfg.PGMinConns,
	})
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	switch {
	case err == nil:
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing redis")
			}
		}()
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
	case cfg.SequenceBackend == config.SequenceRedis:
		return err
	default:
		logger.Warn().Err(err).Msg("redis unavailable; notification dedup disabled")
		rdb = nil
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	var counter sequence.Counter = sequence.NewPgCounter(pgPool)
	if cfg.SequenceBackend == config.SequenceRedis {
		counter = redisclient.NewDailyCounter(rdb, 0)
	}
	ids := sequence.NewGenerator(counter)

	sender, err := newMailSender(ctx, cfg, logger)
	if err != nil {
		return err
	}
	mailer := mail.NewBookingMailer(sender, mail.BookingMailerConfig{
		AdminEmail: cfg.AdminEmail,
		Timeout:    cfg.EmailTimeout,
	}, m, logger.With().Str("component", "mail").Logger())

	bookings := appointment.NewService(appointment.NewPgRepository(pgPool), ids,
		appointment.WithMailer(mailer),
		appointment.WithMetrics(m),
		appointment.WithLogger(logger.With().Str("component", "booking").Logger()),
		appointment.WithStrictTransitions(cfg.StrictStatusTransitions),
	)

	gemini, err := summary.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		return err
	}
	defer func() { _ = gemini.Close() }()
	patients := patient.NewService(patient.NewPgRepository(pgPool), gemini, logger)

	presigner, err := newPresigner(ctx, cfg)
	if err != nil {
		return err
	}

	registry := realtime.NewRegistry(m, logger.With().Str("component", "realtime").Logger())
	notifyOpts := []notification.Option{
		notification.WithMetrics(m),
		notification.WithLogger(logger.With().Str("component", "notifier").Logger()),
	}
	if rdb != nil && cfg.NotifierDedupTTL > 0 {
		notifyOpts = append(notifyOpts, notification.WithClaimer(redisclient.NewClaimer(rdb, cfg.NotifierDedupTTL)))
	}
	notifier := notification.NewNotifier(
		notification.NewPgFeed(pgPool, logger),
		notification.NewPgStore(pgPool),
		registry,
		notifyOpts...,
	)

	verifier := auth.NewVerifier(cfg.JWTSecret, logger)
	var sessions api.SessionService
	if verifier.Enabled() {
		sessions = auth.NewSessions(auth.NewPgUserStore(pgPool), verifier,
			cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
			logger.With().Str("component", "auth").Logger())
	} else {
		logger.Warn().Msg("JWT_SECRET not set; staff routes are open and login is disabled")
	}

	var redisPing api.Pinger
	if rdb != nil {
		redisPing = redisPinger{rdb}
	}

	router := api.NewRouter(api.RouterConfig{
		Bookings:       bookings,
		Patients:       patients,
		Notifications:  notifier,
		Uploads:        presigner,
		Sessions:       sessions,
		Realtime:       realtime.NewHandler(registry, cfg.CORSOrigins, logger),
		Health:         api.NewHealthHandler(pgPool, redisPing, cfg.Env, version),
		Auth:           verifier.Middleware,
		SecureCookies:  cfg.SecureCookies,
		Metrics:        m,
		MetricsHandler: promhttp.Handler(),
		CORSOrigins:    cfg.CORSOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	notifierDone := make(chan struct{})
	go func() {
		defer close(notifierDone)
		if err := notifier.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("notifier stopped")
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Websocket connections are hijacked and not tracked by Shutdown.
	registry.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	if err := mailer.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pending emails abandoned")
	}
	select {
	case <-notifierDone:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("notifier did not stop in time")
	}
	return nil
}

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }
