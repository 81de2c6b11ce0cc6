package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type metricsServer struct {
	srv    *http.Server
	logger *zap.Logger
}

func newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

// startMetricsServer serves /metrics and /healthz until shutdown is called.
func startMetricsServer(addr string, logger *zap.Logger) *metricsServer {
	m := &metricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           newRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
	go func() {
		logger.Info("Metrics server listening", zap.String("addr", addr))
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()
	return m
}

func (m *metricsServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		m.logger.Warn("Metrics server shutdown failed", zap.Error(err))
	}
}
