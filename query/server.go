// Package query implements the read-only HTTP API over the central
// store: current status, compatibility data feed, latency history,
// incidents, config echo, and a shields.io-compatible badge endpoint.
package query

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pulsegrid/sentinel/config"
	"github.com/pulsegrid/sentinel/store"

	zlog "github.com/pulsegrid/sentinel/logger"
)

// Server owns the HTTP server lifecycle for the query layer, mirroring
// the teacher pack's App: a thin wrapper around http.Server adding
// signal-aware graceful shutdown and a readiness flag.
type Server struct {
	handler          http.Handler
	preShutdownDelay time.Duration
	shutdownTimeout  time.Duration
	shuttingDown     atomic.Bool
}

// New builds a Server serving the API routes over store, gated by an
// optional basic-auth credential from cfg.PasswordProtection.
func New(st *store.Store, cfg *config.Config) *Server {
	mux := http.NewServeMux()
	api := &api{store: st, cfg: cfg}
	api.registerRoutes(mux)

	var handler http.Handler = mux
	handler = withCORS(handler)
	if cfg.PasswordProtection != "" {
		handler = withBasicAuth(cfg.PasswordProtection)(handler)
	}
	handler = withRequestID(handler)

	return &Server{
		handler:          handler,
		preShutdownDelay: 1 * time.Second,
		shutdownTimeout:  15 * time.Second,
	}
}

// healthzHandler reports 200 while serving and 503 once shutdown begins.
func (s *Server) healthzHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if s.shuttingDown.Load() {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
}

// ServeHTTP makes Server itself usable as an http.Handler, routing
// /healthz separately from the API mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/healthz" {
		s.healthzHandler().ServeHTTP(w, r)
		return
	}
	s.handler.ServeHTTP(w, r)
}

// Listen starts an HTTP server at addr, blocking until SIGINT/SIGTERM
// triggers a graceful drain.
func (s *Server) Listen(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}
	return s.serveWithSignals(srv, func() error { return srv.ListenAndServe() })
}

func (s *Server) serveWithSignals(srv *http.Server, serveFn func() error) error {
	parent, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.serveContext(parent, srv, serveFn)
}

func (s *Server) serveContext(ctx context.Context, srv *http.Server, serveFn func() error) error {
	log := zlog.GetLogger()
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv.BaseContext = func(net.Listener) context.Context { return baseCtx }

	log.Info().Str("addr", srv.Addr).Int("pid", os.Getpid()).Str("go_version", runtime.Version()).Msg("query server starting")

	errCh := make(chan error, 1)
	go func() {
		if err := serveFn(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Err(err).Msg("query server start failed")
		}
		return err

	case <-ctx.Done():
		start := time.Now()
		s.shuttingDown.Store(true)
		log.Info().Msg("query server shutdown initiated")

		if s.preShutdownDelay > 0 {
			time.Sleep(s.preShutdownDelay)
		}

		drainCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(drainCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("graceful shutdown incomplete")
			_ = srv.Close()
			cancelBase()
		} else {
			cancelBase()
		}

		if err := <-errCh; err != nil {
			log.Err(err).Msg("query server exit error after shutdown")
			return err
		}

		log.Info().Dur("duration", time.Since(start)).Msg("query server stopped gracefully")
		return nil
	}
}
