package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/technosupport/cctv-console/internal/api"
	"github.com/technosupport/cctv-console/internal/camapi"
	"github.com/technosupport/cctv-console/internal/cameras"
	"github.com/technosupport/cctv-console/internal/config"
	"github.com/technosupport/cctv-console/internal/events"
	"github.com/technosupport/cctv-console/internal/health"
	"github.com/technosupport/cctv-console/internal/logging"
	"github.com/technosupport/cctv-console/internal/middleware"
	"github.com/technosupport/cctv-console/internal/ratelimit"
	"github.com/technosupport/cctv-console/internal/views"
)

const serviceName = "cctv-console"

func main() {
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	log := logging.New(cfg.Logging, serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Only the log level is applied live; other settings need a restart.
	err = config.Watch(ctx, cfgPath, log, func(c config.Config) {
		lvl := logging.SetLevel(c.Logging.Level)
		log.Info().Str("level", lvl.String()).Msg("log level updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("config watcher disabled")
	}

	// 1. Camera backend
	baseURL, err := cfg.APIBaseURL()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot resolve camera backend URL")
	}
	client := camapi.NewClient(camapi.Config{BaseURL: baseURL, Timeout: cfg.API.Timeout}, log)
	store := cameras.NewStore(client, log)
	readiness := health.NewService(health.DefaultProbeTimeout)
	readiness.Register("camera_backend", health.ProbeFunc(client.Ping))
	log.Info().Str("base_url", baseURL).Str("mode", cfg.Environment.Mode).Msg("camera backend configured")

	// 2. Events (optional)
	// pubCtx is cancelled once the HTTP server has shut down.
	var pub *events.Publisher
	pubCtx, stopPub := context.WithCancel(context.Background())
	defer stopPub()
	if cfg.Events.NatsURL != "" {
		nc, err := events.Connect(cfg.Events.NatsURL, serviceName)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, camera events disabled")
		} else {
			defer closeNATS(nc, log)
			pub = events.NewPublisher(nc, cfg.Events.Subject, cfg.Events.PublishRetryMax, log)
			defer pub.Attach(store)()
			go pub.Run(pubCtx)
			readiness.Register("nats", health.ProbeFunc(func(context.Context) error {
				if !nc.IsConnected() {
					return fmt.Errorf("nats: status %s", nc.Status())
				}
				return nil
			}))
			log.Info().Str("subject", cfg.Events.Subject).Msg("publishing camera events")
		}
	}

	// 3. Rate limiting (optional)
	var actionLimiter func(http.Handler) http.Handler
	if cfg.RateLimit.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable at startup, action limiter will fail open")
		}
		rl := middleware.NewRateLimitMiddleware(ratelimit.NewLimiter(rdb, cfg.RateLimit.Salt), cfg.RateLimit.Actions, log)
		actionLimiter = rl.ActionLimiter
		readiness.Register("redis", health.ProbeFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}

	// 4. Routing
	handler := newHandler(cfg, store, readiness, actionLimiter, log)

	// 5. Start Server
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.Server.BasePath).Msg("cctv-console listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// 6. Graceful Shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}

	if pub != nil {
		stopPub()
		select {
		case <-pub.Done():
		case <-shutdownCtx.Done():
			log.Warn().Msg("camera event queue not drained before shutdown deadline")
		}
	}
	log.Info().Msg("server stopped gracefully")
}

// closeNATS flushes buffered publishes before closing the connection.
func closeNATS(nc *nats.Conn, log zerolog.Logger) {
	if err := nc.FlushTimeout(5 * time.Second); err != nil {
		log.Warn().Err(err).Msg("NATS flush failed")
	}
	nc.Close()
}

func newHandler(cfg config.Config, store *cameras.Store, readiness *health.Service, actionLimiter func(http.Handler) http.Handler, log zerolog.Logger) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Console:        api.NewConsoleHandler(store, log),
		Views:          views.New(cfg.Server.BasePath),
		ActionLimiter:  actionLimiter,
		Readiness:      readiness.Handler(),
		RequestTimeout: cfg.Server.RequestTimeout,
		Log:            log,
	})
}
