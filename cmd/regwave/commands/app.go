package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/regwave/regwave/internal/cache"
	"github.com/regwave/regwave/internal/config"
	"github.com/regwave/regwave/internal/demo"
	"github.com/regwave/regwave/internal/lifecycle"
	"github.com/regwave/regwave/internal/logging"
	"github.com/regwave/regwave/internal/metrics"
	"github.com/regwave/regwave/internal/propagation"
	"github.com/regwave/regwave/internal/publish"
	"github.com/regwave/regwave/internal/risk"
	"github.com/regwave/regwave/internal/simulation"
	"github.com/regwave/regwave/internal/store"
	"github.com/regwave/regwave/internal/tracing"
)

// app wires the full pipeline for one CLI invocation: in-memory store,
// tag cache, propagation factory, risk engines, event dispatcher, and the
// lifecycle manager that starts and stops the long-lived pieces.
type app struct {
	cfg      *config.Config
	tenantID string

	store       *store.Memory
	manager     *store.Manager
	cache       *cache.TagCache
	metrics     *metrics.Metrics
	engines     *propagation.Factory
	aggregator  *risk.Aggregator
	timeline    *risk.Timeline
	simulations *simulation.Runner

	lifecycle     *lifecycle.Manager
	nats          *publish.NATSPublisher
	audit         *store.FileAuditLog
	metricsServer *http.Server
	logger        *logging.Logger
}

// newApp builds and starts the pipeline, then seeds it from --seed or
// with the built-in demo tenant.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		lifecycle: lifecycle.NewManager(),
		logger:    logging.GetLogger("app"),
	}

	registry := prometheus.NewRegistry()
	a.metrics = metrics.NewMetrics(registry)

	a.cache, err = cache.New(cache.Config{
		DefaultTTL:    cfg.Cache.DefaultTTL,
		SweepInterval: cfg.Cache.SweepInterval,
		MaxEntries:    cfg.Cache.MaxEntries,
	})
	if err != nil {
		return nil, err
	}
	metrics.NewCacheCollector(registry, func() metrics.CacheStats {
		s := a.cache.Stats()
		return metrics.CacheStats{Hits: s.Hits, Misses: s.Misses, Evictions: s.Evictions, Size: s.Size}
	})

	a.store = store.NewMemory()
	a.manager = store.NewManager(a.store, a.cache)

	if cfg.AuditLog != "" {
		a.audit, err = store.NewFileAuditLog(cfg.AuditLog)
		if err != nil {
			a.cache.Shutdown()
			return nil, err
		}
		a.manager.AddAuditSink(a.audit)
	}

	a.engines = propagation.NewFactory(a.store, a.cache, a.metrics)
	a.manager.OnEntityChange(a.engines.Resolver().Invalidate)

	var publisher publish.Publisher = publish.NewLogPublisher()
	if cfg.NATS.Enabled {
		a.nats, err = publish.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			a.close()
			return nil, err
		}
		publisher = a.nats
	}
	dispatcher := publish.NewDispatcher(publisher, publish.DefaultQueueSize, a.metrics)

	a.aggregator = risk.NewAggregator(a.store, a.engines, dispatcher, a.metrics)
	a.timeline = risk.NewTimeline(a.store, a.engines)
	a.simulations = simulation.NewRunner(a.store, a.timeline, dispatcher)

	tracer, err := tracing.NewProvider(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		TLSCAPath:   cfg.Tracing.TLSCAPath,
		TLSInsecure: cfg.Tracing.TLSInsecure,
	})
	if err != nil {
		a.logger.Warn("tracing unavailable, continuing without it: %v", err)
	} else {
		if regErr := a.lifecycle.Register(tracer); regErr != nil {
			a.close()
			return nil, regErr
		}
	}
	if err := a.lifecycle.Register(a.cache); err != nil {
		a.close()
		return nil, err
	}
	if err := a.lifecycle.Register(dispatcher, a.cache); err != nil {
		a.close()
		return nil, err
	}

	if err := a.lifecycle.Start(ctx); err != nil {
		a.close()
		return nil, err
	}

	if cfg.MetricsPort > 0 {
		a.metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error("metrics server failed: %v", err)
			}
		}()
		a.logger.Info("metrics listening on :%d", cfg.MetricsPort)
	}

	if err := a.seed(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	return config.Load(configPath)
}

func (a *app) seed(ctx context.Context) error {
	if seedPath == "" {
		a.tenantID = demo.TenantID
		return demo.Seed(ctx, a.manager)
	}

	ds, err := demo.LoadSeedFile(seedPath)
	if err != nil {
		return err
	}
	if err := ds.Apply(ctx, a.manager); err != nil {
		return err
	}
	a.tenantID = ds.Tenant.ID
	a.logger.Info("seeded tenant %s from %s", a.tenantID, seedPath)
	return nil
}

// propagationOptions maps the config defaults into engine options.
func (a *app) propagationOptions() propagation.Options {
	return propagation.Options{
		MaxDepth:        a.cfg.Propagation.MaxDepth,
		ImpactThreshold: a.cfg.Propagation.ImpactThreshold,
		IncludeIndirect: a.cfg.Propagation.IncludeIndirect,
	}
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if a.metricsServer != nil {
		_ = a.metricsServer.Shutdown(ctx)
	}
	if err := a.lifecycle.Stop(ctx); err != nil {
		a.logger.Error("error during shutdown: %v", err)
	}
	if a.nats != nil {
		a.nats.Close()
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.logger.Error("failed to close audit log: %v", err)
		}
	}
}
