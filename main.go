package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/stevemurr/sneakers-server/collection"
	"github.com/stevemurr/sneakers-server/config"
	"github.com/stevemurr/sneakers-server/handler"
	"github.com/stevemurr/sneakers-server/health"
	"github.com/stevemurr/sneakers-server/store"
)

// version is set via -ldflags "-X main.version=...".
var version = "dev"

func setupLogger(cfg config.Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("server exited with error")
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	logger := log.WithField("component", "app")

	s, err := store.New(cfg.StoreBackend, cfg.DBFile)
	if err != nil {
		return err
	}
	if c, ok := s.(io.Closer); ok {
		defer c.Close()
	}

	svc := collection.NewService(s,
		collection.WithAutoCreate(cfg.AutoCreate),
		collection.WithLogger(log.WithField("component", "collection")),
	)
	h := handler.New(svc,
		handler.WithLogger(log.WithField("component", "handler")),
		handler.WithMetrics(handler.NewMetrics(prometheus.DefaultRegisterer)),
		handler.WithMaxBodyBytes(cfg.MaxBodyBytes),
		handler.WithAllowedOrigins(cfg.AllowedOrigins),
	)

	monitor := health.NewMonitor(version, log.WithField("component", "health"))
	monitor.AddStore(s)
	adminSrv := startAdminServer(cfg.MetricsAddr, logger, monitor)
	defer shutdownHTTP(adminSrv, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"addr":     cfg.Addr(),
			"protocol": cfg.Protocol,
			"store":    cfg.StoreBackend,
			"db_file":  cfg.DBFile,
			"version":  version,
		}).Info("sneakers server starting")
		if cfg.Protocol == "https" {
			errCh <- srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
			return
		}
		logger.Infof("server available at http://localhost:%s%s", cfg.Port, handler.Prefix)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownHTTP(srv, logger)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startAdminServer serves /metrics and the health probes on a separate
// listener so they never appear under the store prefix. An empty addr
// disables it.
func startAdminServer(addr string, logger *log.Entry, monitor *health.Monitor) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/health", monitor)
	mux.HandleFunc("/livez", health.Live)
	mux.HandleFunc("/readyz", monitor.Ready)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("metrics available at %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("admin server failed")
		}
	}()
	return srv
}

// shutdownHTTP stops srv, waiting at most five seconds for open requests.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("shutdown with error")
	}
}
