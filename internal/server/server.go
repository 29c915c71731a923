package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jpalmerr/sitepulse/internal/hub"
	"github.com/jpalmerr/sitepulse/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// sseEvent is the event name every snapshot is sent under.
	sseEvent = "update"

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "SitePulse"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Broadcaster is the subset of the broadcast hub the server needs.
type Broadcaster interface {
	Subscribe() (*hub.Observer, error)
	Unsubscribe(o *hub.Observer)
	Latest() *store.Snapshot
}

// StatsFunc returns the counters served at /api/stats.
type StatsFunc func() any

// Server handles HTTP requests for the dashboard and API.
//
// Routes:
//   - GET /: embedded dashboard HTML
//   - GET /api/status: latest snapshot as JSON
//   - GET /api/sse: Server-Sent Events stream, one "update" event per snapshot
//   - GET /api/health: liveness probe
//   - GET /api/stats: scheduler and hub counters
//
// /api/status and /api/sse carry the snapshot wire format unwrapped, so a
// client parses polled and pushed state the same way. /api/stats wraps its
// payload as {"data": ...}, and every error response is {"error": "..."}.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	hub        Broadcaster
	port       int
	httpServer *http.Server
	router     chi.Router
	assets     fs.FS
	title      string
	stats      StatsFunc
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server] and registers all routes.
//
// Parameters:
//   - b: broadcast hub that supplies snapshots
//   - port: TCP port to listen on (0 picks a free port)
//   - assets: embedded filesystem containing dashboard assets (may be nil)
//   - title: dashboard title (defaults to "SitePulse" if empty)
//   - stats: source for /api/stats (may be nil)
//   - logger: logger for server events (slog.Default() if nil)
//
// The server does not listen until [Server.Start] is called.
func NewServer(b Broadcaster, port int, assets fs.FS, title string, stats StatsFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		hub:    b,
		port:   port,
		router: chi.NewRouter(),
		assets: assets,
		title:  title,
		stats:  stats,
		logger: logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)
	r.Use(s.requestLogger)

	r.Get("/", s.handleDashboard)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/sse", s.handleSSE)
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/stats", s.handleStats)
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server keeps running until ctx is cancelled, at which
// point it shuts down gracefully with a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) (net.Addr, error) {
	// create listener first to verify port availability synchronously
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return nil, fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx, so cancelling it also ends
		// long-running handlers like SSE
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

// --- Response helpers ---

type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, envelope{Error: msg})
}

// --- Handlers ---

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.assets == nil {
		http.NotFound(w, r)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// title is HTML-escaped to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleStatus returns the latest snapshot in its wire format.
//
// The body is byte-for-byte the data of an SSE "update" event for the same
// snapshot and is not wrapped in an envelope. Errors still use the
// {"error": "..."} envelope.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.hub.Latest()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no snapshot available")
		return
	}

	data, err := snap.JSON()
	if err != nil {
		s.logger.Error("failed to encode snapshot", "seq", snap.Seq(), "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write status response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, http.StatusNotFound, "stats not available")
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Data: s.stats()})
}

// handleSSE streams snapshots via Server-Sent Events.
//
// Each connection is one hub observer. The first event is the snapshot
// current at connect time. The handler uses write deadlines so a slow or
// vanished client ends its own handler instead of leaking it; the hub
// itself never waits on this goroutine.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// some ResponseWriter implementations do not support deadlines
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sseEvent, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	observer, err := s.hub.Subscribe()
	if err != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.hub.Unsubscribe(observer)

	log := s.logger.With("observer_id", observer.ID().String())
	log.Info("observer connected", "remote_addr", r.RemoteAddr)
	defer log.Info("observer disconnected")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case snap, ok := <-observer.C():
			if !ok {
				return
			}
			data, err := snap.JSON()
			if err != nil {
				log.Error("failed to encode snapshot", "seq", snap.Seq(), "error", err)
				continue
			}
			if err := writeAndFlush(data); err != nil {
				log.Debug("sse write failed", "error", err)
				return
			}

		case <-r.Context().Done():
			// request context derives from the server context via BaseContext,
			// so this fires on both client disconnect and server shutdown
			return
		}
	}
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// Flush keeps the wrapped writer usable for SSE.
func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
