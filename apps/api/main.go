package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	companieshandler "github.com/JPGarzonE/business-network-core-API-sub000/domains/companies/be/handler"
	companiesrepo "github.com/JPGarzonE/business-network-core-API-sub000/domains/companies/be/repo"
	companiesservice "github.com/JPGarzonE/business-network-core-API-sub000/domains/companies/be/service"
	membershipshandler "github.com/JPGarzonE/business-network-core-API-sub000/domains/memberships/be/handler"
	membershipsrepo "github.com/JPGarzonE/business-network-core-API-sub000/domains/memberships/be/repo"
	membershipsservice "github.com/JPGarzonE/business-network-core-API-sub000/domains/memberships/be/service"
	relationshipshandler "github.com/JPGarzonE/business-network-core-API-sub000/domains/relationships/be/handler"
	relationshipsrepo "github.com/JPGarzonE/business-network-core-API-sub000/domains/relationships/be/repo"
	relationshipsservice "github.com/JPGarzonE/business-network-core-API-sub000/domains/relationships/be/service"
	usershandler "github.com/JPGarzonE/business-network-core-API-sub000/domains/users/be/handler"
	usersrepo "github.com/JPGarzonE/business-network-core-API-sub000/domains/users/be/repo"
	usersservice "github.com/JPGarzonE/business-network-core-API-sub000/domains/users/be/service"
	platformlogging "github.com/JPGarzonE/business-network-core-API-sub000/platform/go/logging"
	platformmiddleware "github.com/JPGarzonE/business-network-core-API-sub000/platform/go/middleware"
	"github.com/JPGarzonE/business-network-core-API-sub000/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	BootstrapSchema bool          `env:"BOOTSTRAP_SCHEMA" envDefault:"true"`
	MaxConns        int32         `env:"DATABASE_MAX_CONNS" envDefault:"0"`
	MinConns        int32         `env:"DATABASE_MIN_CONNS" envDefault:"0"`
}

func main() {
	ctx := context.Background()

	// Local development convenience; missing .env files are fine.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString: cfg.DatabaseURL,
		MaxConns:   cfg.MaxConns,
		MinConns:   cfg.MinConns,
	})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if cfg.BootstrapSchema {
		if err := persistence.BootstrapSchema(ctx, pool); err != nil {
			logger.Fatal("bootstrap schema", zap.Error(err))
		}
	}

	companyStore, err := persistence.NewCompanyStore(ctx, pool)
	if err != nil {
		logger.Fatal("init company store", zap.Error(err))
	}

	companyRepo := companiesrepo.NewPostgresRepository(companyStore)
	companyService := companiesservice.New(companyRepo)
	companyHTTPHandler := companieshandler.New(companyService, logger)

	userStore, err := persistence.NewUserStore(ctx, pool)
	if err != nil {
		logger.Fatal("init user store", zap.Error(err))
	}

	userRepo := usersrepo.NewPostgresRepository(userStore)
	userService := usersservice.New(userRepo)
	userHTTPHandler := usershandler.New(userService, logger)

	membershipStore, err := persistence.NewMembershipStore(ctx, pool)
	if err != nil {
		logger.Fatal("init membership store", zap.Error(err))
	}

	membershipRepo := membershipsrepo.NewPostgresRepository(membershipStore)
	membershipService := membershipsservice.New(membershipRepo)
	membershipHTTPHandler := membershipshandler.New(membershipService, logger)

	relationshipStore, err := persistence.NewRelationshipStore(ctx, pool)
	if err != nil {
		logger.Fatal("init relationship store", zap.Error(err))
	}

	relationshipRepo := relationshipsrepo.NewPostgresRepository(relationshipStore)
	relationshipService := relationshipsservice.New(relationshipRepo)
	relationshipHTTPHandler := relationshipshandler.New(relationshipService, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	apiRouter := chi.NewRouter()
	apiRouter.Use(platformmiddleware.RequestTrace)

	apiRouter.Mount("/companies", companyHTTPHandler.Routes())
	apiRouter.Mount("/users", userHTTPHandler.Routes())
	apiRouter.Mount("/memberships", membershipHTTPHandler.Routes())
	apiRouter.Mount("/relationships", relationshipHTTPHandler.Routes())

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
