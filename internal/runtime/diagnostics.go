package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drblury/corert/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
)

const diagnosticsShutdownTimeout = 5 * time.Second

// diagnostics serves /debug/state and /metrics. The mux exists for every
// runtime; the listener only when DiagnosticsPort is set.
type diagnostics struct {
	mux    *http.ServeMux
	server *http.Server
	addr   string
}

func (r *Runtime) newDiagnostics(gatherer prometheus.Gatherer) *diagnostics {
	d := &diagnostics{mux: http.NewServeMux()}
	d.mux.Handle("/debug/state", http.HandlerFunc(r.handleGetState))
	if gatherer != nil {
		d.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return d
}

// DiagnosticsHandler returns the handler behind the diagnostics endpoint, for
// mounting on a caller-owned server.
func (r *Runtime) DiagnosticsHandler() http.Handler {
	return r.diag.mux
}

// DiagnosticsAddr returns the address the diagnostics server listens on, or
// "" when it is not running.
func (r *Runtime) DiagnosticsAddr() string {
	return r.diag.addr
}

// RegisterHTTPHandler mounts an extra handler on the diagnostics mux.
func (r *Runtime) RegisterHTTPHandler(pattern string, handler http.Handler) {
	r.diag.mux.Handle(pattern, handler)
}

func (r *Runtime) startDiagnostics() error {
	port := r.cfg.DiagnosticsPort
	if port == 0 {
		return nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("diagnostics: listen on port %d: %w", port, err)
	}
	r.diag.server = &http.Server{Handler: r.diag.mux, ReadHeaderTimeout: 5 * time.Second}
	r.diag.addr = ln.Addr().String()

	log := r.log()
	log.Info("Starting HTTP server", loggingpkg.LogFields{"address": r.diag.addr})
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Diagnostics HTTP server stopped", err, loggingpkg.LogFields{"address": ln.Addr().String()})
		}
	}(r.diag.server)
	return nil
}

func (r *Runtime) stopDiagnostics() {
	if r.diag == nil || r.diag.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), diagnosticsShutdownTimeout)
	defer cancel()
	if err := r.diag.server.Shutdown(ctx); err != nil {
		r.log().Error("Failed to stop diagnostics HTTP server", err, nil)
	}
	r.diag.server = nil
	r.diag.addr = ""
}

func (r *Runtime) handleGetState(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if len(r.cfg.DiagnosticsCORSAllowedOrigins) > 0 {
		if allowed := r.allowedCORSOrigin(req.Header.Get("Origin")); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
	}

	switch req.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet, http.MethodHead:
	default:
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := jsoncodec.Encode(w, r.State()); err != nil {
		r.log().Error("Failed to encode runtime state", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// allowedCORSOrigin returns the Access-Control-Allow-Origin value for the
// request origin, or "" when it is not allowed.
func (r *Runtime) allowedCORSOrigin(requestOrigin string) string {
	for _, allowed := range r.cfg.DiagnosticsCORSAllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}
