package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nikolayk812/cart-service/internal/config"
	"github.com/nikolayk812/cart-service/internal/db"
	"github.com/nikolayk812/cart-service/internal/events"
	"github.com/nikolayk812/cart-service/internal/httpapi"
	"github.com/nikolayk812/cart-service/internal/logger"
	"github.com/nikolayk812/cart-service/internal/migrations"
	"github.com/nikolayk812/cart-service/internal/oracle"
	"github.com/nikolayk812/cart-service/internal/repository"
	"github.com/nikolayk812/cart-service/internal/service"
	"github.com/nikolayk812/cart-service/internal/shutdown"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(logger.Options{Service: "cart-service", Env: cfg.Env, Level: cfg.LogLevel, AddSource: true})

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("cart-service stopped", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("bye")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.RunMigrations {
		if err := migrations.Run(cfg.DatabaseDSN, log); err != nil {
			return fmt.Errorf("migrations.Run: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db.NewPool: %w", err)
	}
	defer pool.Close()

	conn, err := events.Dial(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("events.Dial: %w", err)
	}
	defer conn.Close()

	publisher, err := events.NewPublisher(conn, log)
	if err != nil {
		return fmt.Errorf("events.NewPublisher: %w", err)
	}
	defer publisher.Close()

	oracleHTTP := &http.Client{Timeout: cfg.OracleTimeout}

	inventory, err := oracle.NewClient("inventory", cfg.InventoryURL, oracleHTTP)
	if err != nil {
		return err
	}

	catalog, err := oracle.NewClient("catalog", cfg.CatalogURL, oracleHTTP)
	if err != nil {
		return err
	}

	svc := service.NewCartService(
		repository.NewCart(pool),
		oracle.NewStock(inventory),
		oracle.NewPrice(catalog),
		publisher,
		cfg.Shipping,
		service.WithLogger(log),
	)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Logger:           log,
			Service:          svc,
			Health:           pool,
			RequestTimeout:   cfg.RequestTimeout,
			CORSAllowOrigins: cfg.CORSAllowOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http starting", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")

		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()

		if err := srv.Shutdown(stopCtx); err != nil {
			log.Warn("graceful stop timeout, forcing stop", slog.Any("err", err))
			return srv.Close()
		}
		return nil
	})

	return g.Wait()
}
