package setup

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	// #nosec G108 -- pprof debugging is intentionally enabled only on localhost
	_ "net/http/pprof"
	"time"

	"github.com/tagwatch/tagwatch/internal/metrics"
	"go.uber.org/zap"
)

// debugServer serves pprof and Prometheus metrics on localhost only.
type debugServer struct {
	srv      *http.Server
	listener net.Listener
}

// startDebugServer initializes and starts the localhost debug HTTP server.
func startDebugServer(port int, collector *metrics.Collector, logger *zap.Logger) (*debugServer, error) {
	debugAddr := fmt.Sprintf("localhost:%d", port)

	mux := http.NewServeMux()
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              debugAddr,
		Handler:           mux,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Only listen on localhost
	listener, err := net.Listen("tcp", debugAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	go func() {
		logger.Info("Starting debug server", zap.String("address", debugAddr))

		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Debug server failed", zap.Error(err))
		}
	}()

	return &debugServer{
		srv:      srv,
		listener: listener,
	}, nil
}
