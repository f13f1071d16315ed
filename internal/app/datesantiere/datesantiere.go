// Package datesantiere собирает HTTP API: хранилище, кеш, брокер, сервисы и маршруты.
package datesantiere

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/cache"
	"github.com/magabrotheeeer/datesantiere/internal/config"
	authhandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/auth"
	contacthandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/contact"
	paymentshandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/payments"
	santierehandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/santiere"
	scriptshandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/scripts"
	settingshandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/settings"
	usershandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/users"
	workspacehandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/workspace"
	"github.com/magabrotheeeer/datesantiere/internal/http/middlewarectx"
	"github.com/magabrotheeeer/datesantiere/internal/lib/captcha"
	"github.com/magabrotheeeer/datesantiere/internal/lib/jwt"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/metrics"
	"github.com/magabrotheeeer/datesantiere/internal/migrations"
	"github.com/magabrotheeeer/datesantiere/internal/paymentprovider"
	"github.com/magabrotheeeer/datesantiere/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/datesantiere/internal/services/auth"
	contactservice "github.com/magabrotheeeer/datesantiere/internal/services/contact"
	"github.com/magabrotheeeer/datesantiere/internal/services/entitlement"
	"github.com/magabrotheeeer/datesantiere/internal/services/export"
	"github.com/magabrotheeeer/datesantiere/internal/services/history"
	paymentservice "github.com/magabrotheeeer/datesantiere/internal/services/payment"
	santierservice "github.com/magabrotheeeer/datesantiere/internal/services/santier"
	scriptsservice "github.com/magabrotheeeer/datesantiere/internal/services/scripts"
	settingsservice "github.com/magabrotheeeer/datesantiere/internal/services/settings"
	usersservice "github.com/magabrotheeeer/datesantiere/internal/services/users"
	workspaceservice "github.com/magabrotheeeer/datesantiere/internal/services/workspace"
	"github.com/magabrotheeeer/datesantiere/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API вместе с ресурсами, которые нужно закрыть при остановке.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	redis  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// backingCache возвращает кеш в Redis или, если адрес не задан, кеш в памяти процесса.
func backingCache(ctx context.Context, cfg config.RedisConnection, logger *slog.Logger) (santierservice.Cache, *cache.Cache, error) {
	if cfg.AddressRedis == "" {
		logger.Info("redis address is empty, using in-memory cache")
		return cache.NewMemory(10*time.Minute, 15*time.Minute), nil, nil
	}
	c, err := cache.InitServer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return c, c, nil
}

// New поднимает зависимости API и собирает роутер.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	app := &App{logger: logger, db: db}

	sharedCache, redisCache, err := backingCache(ctx, cfg.RedisConnection, logger)
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}
	app.redis = redisCache

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ, logger)
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	app.conn = conn
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.AllQueues())
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	app.ch = ch
	publisher := rabbitmq.NewPublisher(ch)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	captchaClient := captcha.New(cfg.CaptchaSecretKey, cfg.MinScore, cfg.VerifyURL)
	gateway := paymentprovider.NewClient(paymentprovider.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.SuccessURL,
		CancelURL:     cfg.CancelURL,
	})
	planIDs := map[string]string{
		access.AccountBasic:      cfg.BasicPriceID,
		access.AccountPremium:    cfg.PremiumPriceID,
		access.AccountEnterprise: cfg.EnterprisePriceID,
	}

	recorder := history.New(db, logger, m)
	evaluator := entitlement.New(db, logger, m)
	santierService := santierservice.New(db, db, evaluator, recorder, sharedCache, sharedCache, logger)
	authService := authservice.New(db, jwtMaker, captchaClient, publisher, sharedCache, logger)
	exportService := export.New(db, db, evaluator, logger, m)
	paymentService := paymentservice.New(db, db, db, gateway, planIDs, logger, m)
	usersService := usersservice.New(db, logger)
	contactService := contactservice.New(db, captchaClient, publisher, logger)
	settingsService := settingsservice.New(db, logger)
	scriptsService := scriptsservice.New(cfg.ScriptsDir, db, publisher, logger)
	workspaceService := workspaceservice.New(db, db, db, logger)

	if err = authService.SeedSuperAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword); err != nil {
		app.closeResources()
		return nil, fmt.Errorf("failed to seed super admin: %w", err)
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, RouterDeps{
		Parser:         jwtMaker,
		Users:          db,
		Limiter:        middlewarectx.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		Metrics:        m,
		Gatherer:       reg,
		AllowedOrigins: cfg.AllowedOrigins,
	}, Handlers{
		Auth:      authhandler.New(logger, authService),
		Santiere:  santierehandler.New(logger, santierService, exportService),
		Workspace: workspacehandler.New(logger, workspaceService),
		Payments:  paymentshandler.New(logger, paymentService),
		Users:     usershandler.New(logger, usersService),
		Contact:   contacthandler.New(logger, contactService),
		Settings:  settingshandler.New(logger, settingsService),
		Scripts:   scriptshandler.New(logger, scriptsService),
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер и закрывает ресурсы.
func (a *App) Run(ctx context.Context) error {
	defer a.closeResources()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	})
	return g.Wait()
}

func (a *App) closeResources() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
