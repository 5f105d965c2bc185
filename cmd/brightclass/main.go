package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightclass/brightclass/pkg/api"
	"github.com/brightclass/brightclass/pkg/audit"
	"github.com/brightclass/brightclass/pkg/authz"
	"github.com/brightclass/brightclass/pkg/config"
	"github.com/brightclass/brightclass/pkg/identity"
	"github.com/brightclass/brightclass/pkg/middleware"
	"github.com/brightclass/brightclass/pkg/observability"
	"github.com/brightclass/brightclass/pkg/storage"
)

func main() {
	// Local development convenience; ignored when the file is absent.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stdout)
	ctx := context.Background()

	// Database
	db, err := storage.OpenPostgres(ctx, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.WithField("url", storage.RedactURL(cfg.Database.URL)).Info("database connected")

	if err := authz.RunMigrations(ctx, db); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	// Audit sink: durable rows in postgres, optionally mirrored to a file,
	// wrapped so audit failures can never affect decisions.
	dbSink, err := audit.NewDBSink(db)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize audit sink")
	}
	var rawSink audit.Sink = dbSink
	if cfg.Authz.AuditFilePath != "" {
		fileSink, err := audit.NewFileSink(cfg.Authz.AuditFilePath)
		if err != nil {
			log.WithError(err).Fatal("failed to open audit file")
		}
		rawSink = teeSink{dbSink, fileSink}
	}
	auditFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "brightclass_audit_write_failures_total",
		Help: "Audit writes that could not be persisted",
	})
	sink := audit.NewBestEffortSink(rawSink, log).WithFailureCounter(auditFailures)

	// Decision cache: shared redis when configured, per-process otherwise.
	var cache authz.DecisionCache
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		client, err := storage.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer client.Close()
		redisClient = client
		cache = authz.NewRedisCache(client, cfg.Authz.CacheTTL)
		log.Info("using redis decision cache")
	} else {
		cache = authz.NewMemoryCache(cfg.Authz.CacheSize, cfg.Authz.CacheTTL)
		log.Info("using in-memory decision cache")
	}

	// Session verification
	verifier, err := identity.NewOIDCVerifier(ctx, cfg.Auth.IssuerURL, cfg.Auth.ClientID)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize OIDC verifier")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(auditFailures)
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	// Decision engine
	engine := authz.NewService(
		authz.NewPostgresStore(db),
		identity.ContextResolver{},
		cache,
		sink,
		authz.Options{
			AuditReads:  cfg.Authz.AuditReads,
			AdminEmails: cfg.Auth.AdminEmails,
			Metrics:     authz.NewMetrics(registry),
			Logger:      log,
		},
	)

	// Audit retention
	purger := audit.NewPurger(db, cfg.Authz.AuditRetentionDays, log)
	if err := purger.Start(); err != nil {
		log.WithError(err).Fatal("failed to start audit retention")
	}

	// API server
	session := middleware.NewSessionMiddleware(verifier, false, log)
	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      api.NewServer(engine, session, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics server on a separate port for probes.
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	go func() {
		log.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("health server failed")
		}
	}()
	go func() {
		log.WithField("addr", apiServer.Addr).Info("authorization server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	shutdown := observability.NewShutdownManager(log, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		purger.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return sink.Close()
	})

	if err := shutdown.WaitForShutdown(); err != nil {
		log.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
}

// teeSink duplicates audit entries to two sinks. A failure in either is
// reported so the best-effort wrapper can log it.
type teeSink struct {
	primary   audit.Sink
	secondary audit.Sink
}

func (t teeSink) Record(ctx context.Context, entry *audit.Entry) error {
	errPrimary := t.primary.Record(ctx, entry)
	errSecondary := t.secondary.Record(ctx, entry)
	if errPrimary != nil {
		return errPrimary
	}
	return errSecondary
}

func (t teeSink) Close() error {
	errPrimary := t.primary.Close()
	errSecondary := t.secondary.Close()
	if errPrimary != nil {
		return errPrimary
	}
	return errSecondary
}
