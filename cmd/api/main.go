package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/karanja-dev/duka-pos/internal/auth"
	"github.com/karanja-dev/duka-pos/internal/cart"
	"github.com/karanja-dev/duka-pos/internal/catalog"
	"github.com/karanja-dev/duka-pos/internal/common"
	"github.com/karanja-dev/duka-pos/internal/config"
	"github.com/karanja-dev/duka-pos/internal/customer"
	"github.com/karanja-dev/duka-pos/internal/db"
	"github.com/karanja-dev/duka-pos/internal/expense"
	"github.com/karanja-dev/duka-pos/internal/health"
	"github.com/karanja-dev/duka-pos/internal/obs"
	"github.com/karanja-dev/duka-pos/internal/report"
	"github.com/karanja-dev/duka-pos/internal/sales"
	"github.com/karanja-dev/duka-pos/internal/security"
	"github.com/karanja-dev/duka-pos/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "duka")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName: "duka-pos-api",
			Endpoint:    envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Environment: cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, "duka-pos-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	authRepo := auth.NewRepo(pool)
	authService, err := auth.NewService(auth.Config{
		Queries:         authRepo,
		Secret:          cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{
		Service:           authService,
		AccessCookieName:  "duka_access",
		RefreshCookieName: "duka_refresh",
		CookieDomain:      cfg.CookieDomain,
		CookieSecure:      cfg.CookieSecure,
		CookieSameSite:    cfg.CookieSameSite,
	}
	authMiddleware := auth.Middleware{Service: authService, AccessCookie: "duka_access"}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries:           catalog.NewRepo(pool),
		Cache:             catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		LowStockThreshold: cfg.LowStockThreshold,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalogService)

	cartService := &cart.Service{
		R:         redisClient,
		Items:     catalogService,
		TTL:       cfg.CartTTL,
		RecentMax: cfg.RecentItemsMax,
		TaxRate:   cfg.TaxRate(),
	}
	cartHandler := cart.NewHandler(cartService)

	salesRepo := sales.NewRepo(pool)
	salesService := &sales.Service{
		Store:    salesRepo,
		Carts:    cartService,
		Items:    catalogService,
		Jobs:     asynqClient,
		TaxRate:  cfg.TaxRate(),
		PageSize: cfg.PageDefaultLimit,
		Logger:   logger,
	}
	salesHandler := sales.NewHandler(salesService, cfg.PageDefaultLimit)

	expenseService, err := expense.NewService(expense.NewRepo(pool))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise expense service")
	}
	expenseHandler := expense.NewHandler(expenseService)

	customerService, err := customer.NewService(customer.NewRepo(pool), salesRepo)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise customer service")
	}
	customerHandler := customer.NewHandler(customerService)

	userService, err := user.NewService(user.NewRepo(pool), authRepo)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise user service")
	}
	userHandler := user.NewHandler(userService)

	reportService := &report.Service{
		Q:                 report.NewRepo(pool),
		R:                 redisClient,
		TTL:               cfg.ReportCacheTTL,
		LowStockThreshold: cfg.LowStockThreshold,
	}
	reportHandler := &report.Handler{Svc: reportService}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	loginLimiter := newLoginLimiter(redisClient, cfg.LoginRateLimit, logger)

	httpMetrics := obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", "")), nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.CookieSecure}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{Checker: health.Probe{Pool: pool, Redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.With(loginLimiter).Post("/login", authHandler.Login)
			a.Post("/refresh", authHandler.Refresh)
			a.Post("/logout", authHandler.Logout)
			a.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Group(func(p chi.Router) {
			p.Use(authMiddleware.RequireAuth)
			p.Use(security.CSRF{}.Middleware)

			p.Route("/inventory", func(i chi.Router) {
				i.Get("/", catalogHandler.ListItems)
				i.Get("/stats", catalogHandler.Stats)
				i.Get("/{id}", catalogHandler.GetItem)
				i.Group(func(w chi.Router) {
					w.Use(auth.RequireFeature(auth.FeatureInventory))
					w.Post("/", catalogHandler.CreateItem)
					w.Put("/{id}", catalogHandler.UpdateItem)
					w.Delete("/{id}", catalogHandler.DeleteItem)
				})
			})

			p.Route("/categories", func(c chi.Router) {
				c.Get("/", catalogHandler.ListCategories)
				c.Group(func(w chi.Router) {
					w.Use(auth.RequireFeature(auth.FeatureInventory))
					w.Post("/", catalogHandler.CreateCategory)
					w.Put("/{id}", catalogHandler.UpdateCategory)
					w.Delete("/{id}", catalogHandler.DeleteCategory)
				})
			})

			p.Route("/carts", func(c chi.Router) {
				c.Use(auth.RequireFeature(auth.FeaturePOS))
				c.Post("/", cartHandler.Create)
				c.Get("/{id}", cartHandler.Get)
				c.Get("/{id}/quote", cartHandler.Quote)
				c.Post("/{id}/items", cartHandler.AddItem)
				c.Patch("/{id}/items/{itemId}", cartHandler.UpdateQuantity)
				c.Delete("/{id}/items/{itemId}", cartHandler.RemoveItem)
				c.Delete("/{id}/items", cartHandler.Clear)
				c.Delete("/{id}", cartHandler.Delete)
			})

			p.Route("/sales", func(s chi.Router) {
				s.Use(auth.RequireFeature(auth.FeaturePOS))
				s.With(idem.Middleware).Post("/", salesHandler.Checkout)
				s.Get("/", salesHandler.List)
				s.Get("/{id}", salesHandler.Get)
			})

			p.With(auth.RequireFeature(auth.FeatureReports)).
				Get("/reports/summary", reportHandler.Summary)

			p.Route("/expenses", func(e chi.Router) {
				e.Use(auth.RequireFeature(auth.FeatureExpense))
				e.Get("/", expenseHandler.List)
				e.Get("/categories", expenseHandler.ListCategories)
				e.Post("/", expenseHandler.Create)
				e.Get("/{id}", expenseHandler.Get)
				e.Put("/{id}", expenseHandler.Update)
				e.With(auth.RequireFeature(auth.FeatureExpenseDelete)).
					Delete("/{id}", expenseHandler.Delete)
			})

			p.Route("/customers", func(c chi.Router) {
				c.Use(auth.RequireFeature(auth.FeatureCustomers))
				c.Get("/", customerHandler.List)
				c.Post("/", customerHandler.Create)
				c.Get("/{id}", customerHandler.Get)
				c.Put("/{id}", customerHandler.Update)
				c.Delete("/{id}", customerHandler.Delete)
				c.Get("/{id}/purchases", customerHandler.Purchases)
				c.Get("/{id}/stats", customerHandler.Stats)
			})

			p.Route("/users", func(u chi.Router) {
				u.Use(auth.RequireFeature(auth.FeatureUsers))
				u.Get("/", userHandler.List)
				u.Get("/roles", userHandler.ListRoles)
				u.Post("/", userHandler.Create)
				u.Get("/{id}", userHandler.Get)
				u.Put("/{id}", userHandler.Update)
				u.Delete("/{id}", userHandler.Delete)
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		health.SetReady(false)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}

// newLoginLimiter builds the per-IP brute force guard for the login route.
// Rates use the "<count>-<period>" format, e.g. "10-M" for ten per minute.
func newLoginLimiter(rdb *redis.Client, rate string, logger zerolog.Logger) func(http.Handler) http.Handler {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		logger.Warn().Err(err).Str("rate", rate).Msg("invalid login rate, limiter disabled")
		return passthrough
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "limiter:login",
	})
	if err != nil {
		logger.Warn().Err(err).Msg("limiter store unavailable, limiter disabled")
		return passthrough
	}
	mw := limiterstdlib.NewMiddleware(limiter.New(store, parsed))
	return mw.Handler
}

func passthrough(next http.Handler) http.Handler { return next }

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}
