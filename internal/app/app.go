package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/doce-emergencia/storefront/internal/domain/auth"
	"github.com/doce-emergencia/storefront/internal/domain/cart"
	"github.com/doce-emergencia/storefront/internal/domain/checkout"
	"github.com/doce-emergencia/storefront/internal/domain/loyalty"
	"github.com/doce-emergencia/storefront/internal/domain/order"
	"github.com/doce-emergencia/storefront/internal/domain/poll"
	"github.com/doce-emergencia/storefront/internal/domain/product"
	"github.com/doce-emergencia/storefront/internal/handler"
	"github.com/doce-emergencia/storefront/internal/notify"
	"github.com/doce-emergencia/storefront/internal/storage/postgres"
	"github.com/doce-emergencia/storefront/internal/storage/redis"
	"github.com/doce-emergencia/storefront/pkg/health"
	"github.com/doce-emergencia/storefront/pkg/httpmiddleware"
)

const serviceName = "doce-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))
	meter := m.MeterProvider().Meter(serviceName)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	checks := health.New()
	checks.Register(health.Liveness, "goroutines", health.ProbeOptions{}, health.GoroutineCountCheck(10000))
	checks.Register(health.Readiness, "postgres", health.ProbeOptions{Timeout: 5 * time.Second}, health.PingCheck("postgres", pool))

	carts, closeCarts, err := newCartStore(ctx, lg, cfg, checks)
	if err != nil {
		return err
	}
	defer closeCarts()

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	authRepo := postgres.NewAuthRepository(pool)
	pollRepo := postgres.NewPollRepository(pool)

	// Domain services.
	catalog := product.NewCatalog(productRepo, cfg.ImageBaseURL)
	cartService := cart.NewService(carts, productRepo)
	formatter := checkout.NewFormatter(cfg.WhatsAppPhone)

	var notifier order.Notifier
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.Timeout)
		if err != nil {
			return errors.Wrap(err, "create telegram notifier")
		}
		notifier = tg
	}
	orderService, err := order.NewService(cartService, formatter, orderRepo, notifier, meter)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	loyaltyService, err := loyalty.NewService(
		postgres.NewBackend(pool),
		postgres.NewProfileRepository(pool),
		postgres.NewCouponRepository(pool),
		postgres.NewRewardRepository(pool),
		meter,
	)
	if err != nil {
		return errors.Wrap(err, "create loyalty service")
	}

	authService, err := auth.NewService(authRepo, []byte(cfg.JWT.Secret), cfg.JWT.TTL)
	if err != nil {
		return errors.Wrap(err, "create auth service")
	}

	// HTTP.
	globalLimit := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Name:   "global",
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})
	sensitiveLimit := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Name:   "sensitive",
		Max:    cfg.RateLimit.SensitiveMax,
		Window: cfg.RateLimit.SensitiveWindow,
	})

	h := handler.New(handler.Config{SensitiveLimit: sensitiveLimit}, handler.Services{
		Catalog:   catalog,
		Carts:     cartService,
		Orders:    orderService,
		Accounts:  authService,
		Loyalty:   loyaltyService,
		Polls:     poll.NewService(pollRepo),
		Formatter: formatter,
	})

	router := chi.NewRouter()
	checks.Mount(router)
	h.Mount(router)
	routeFinder := httpmiddleware.ChiRouteFinder(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.CartIDHeader},
				ExposeHeaders:    []string{handler.CartIDHeader, httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           cfg.CORS.MaxAge,
			}),
			globalLimit.Middleware(),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	checks.Start(ctx, 10*time.Second)
	checks.SetReady(true)
	defer checks.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return globalLimit.Run(gctx) })
	g.Go(func() error { return sensitiveLimit.Run(gctx) })
	g.Go(func() error { return sweepSessions(gctx, lg, authRepo, cfg.Graceful.SessionSweep) })
	g.Go(func() error {
		// Graceful shutdown: stop advertising readiness, drain, then stop.
		<-gctx.Done()
		checks.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}

// newCartStore picks the Redis cart store when a URL is configured and the
// in-memory one otherwise.
func newCartStore(ctx context.Context, lg *zap.Logger, cfg *Config, checks *health.Checker) (cart.Store, func(), error) {
	if cfg.RedisURL == "" {
		lg.Info("Keeping carts in memory")
		return cart.NewMemoryStore(cfg.CartTTL), func() {}, nil
	}
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect redis")
	}
	checks.Register(health.Readiness, "redis", health.ProbeOptions{Timeout: 2 * time.Second}, health.PingCheck("redis", redisPinger{client}))
	closeFn := func() {
		if err := client.Close(); err != nil {
			lg.Warn("Close redis", zap.Error(err))
		}
	}
	return redis.NewCartStore(client, cfg.CartTTL), closeFn, nil
}

type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// sessionSweeper is the part of the auth repository that prunes sessions.
type sessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// sweepSessions deletes expired session rows every interval until ctx is
// done. Failures are logged and retried on the next tick.
func sweepSessions(ctx context.Context, lg *zap.Logger, s sessionSweeper, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := s.DeleteExpiredSessions(ctx)
			if err != nil {
				lg.Warn("Sweep sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Debug("Swept sessions", zap.Int64("deleted", n))
			}
		}
	}
}

var _ sessionSweeper = (*postgres.AuthRepository)(nil)
