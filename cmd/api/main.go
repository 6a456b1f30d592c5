package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ariefcatur/sepatuku/internal/catalog"
	"github.com/ariefcatur/sepatuku/internal/config"
	"github.com/ariefcatur/sepatuku/internal/httpx"
	kafkax "github.com/ariefcatur/sepatuku/internal/kafka"
	"github.com/ariefcatur/sepatuku/internal/logging"
	"github.com/ariefcatur/sepatuku/internal/metrics"
	"github.com/ariefcatur/sepatuku/internal/orders"
	"github.com/ariefcatur/sepatuku/internal/postgres"
	"github.com/ariefcatur/sepatuku/internal/redisx"
	"github.com/ariefcatur/sepatuku/internal/store"
)

func main() {
	app := &cli.App{
		Name:   "sepatuku-api",
		Usage:  "Sepatuku storefront API",
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API (default)", Action: serve},
			{Name: "migrate", Usage: "apply Postgres schema migrations", Action: migrateCmd},
			{Name: "seed", Usage: "insert the demo catalog into an empty store", Action: seedCmd},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("sepatuku-api")
	}
}

func setup() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// openStore never fails: an unreachable store is replaced by
// store.Unavailable so the API still answers.
func openStore(ctx context.Context, cfg config.Config) store.Store {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL, store.Options{Migrate: cfg.DBMigrate, MaxConns: cfg.DBMaxConns})
	if err != nil {
		log.WithError(err).Error("store unavailable, running degraded")
		return store.Unavailable{}
	}
	return st
}

func serve(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store
	st := openStore(ctx, cfg)
	defer st.Close()
	if cfg.SeedCatalog {
		catalog.Seed(ctx, st)
	}

	// Redis (opsional)
	var (
		cache catalog.Cache
		idem  httpx.Idempotency
	)
	if cfg.RedisAddr != "" {
		rdb, err := redisx.New(ctx, cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, cache and idempotency disabled")
		} else {
			defer rdb.Close()
			cache = redisx.NewCache(rdb, cfg.CatalogCacheTTL)
			idem = redisx.NewIdempotency(rdb)
		}
	}

	engine := orders.NewEngine(st, st)
	engine.QRRenderer = cfg.QRISRendererURL

	// Kafka producers (opsional): satu per topic
	var producers []*kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		created := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
		shortfall := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockShortfall, 256)
		producers = append(producers, created, shortfall)
		for _, p := range producers {
			p.Start(ctx)
		}
		engine.Publisher = &kafkax.Publisher{Created: created, Shortfall: shortfall, Service: cfg.ServiceName}
	}

	m := metrics.NewServerMetrics(prometheus.DefaultRegisterer, "api")
	router := httpx.NewRouter(m, metrics.Handler())
	h := &httpx.Handler{
		Catalog:  catalog.NewService(st, cache),
		Checkout: engine,
		Orders:   st,
		Idem:     idem,
		Metrics:  m,
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr(), Handler: router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr()).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // tutup inbox -> flush & close writer
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	return nil
}

func migrateCmd(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		log.WithField("scheme", u.Scheme).Info("no migrations for this store")
		return nil
	}
	return postgres.Migrate(cfg.DatabaseURL)
}

func seedCmd(c *cli.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabaseURL, store.Options{Migrate: cfg.DBMigrate, MaxConns: 2})
	if err != nil {
		return err
	}
	defer st.Close()

	n := catalog.Seed(ctx, st)
	fmt.Fprintf(c.App.Writer, "inserted %d products\n", n)
	return nil
}
