// routes.go — HTTP routing, agent WebSocket upgrade, and operational
// endpoints.
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/browserlink/browserlink/internal/agent"
	"github.com/browserlink/browserlink/internal/util"
)

// upgrader accepts any origin: the server binds to loopback and the agent
// connects from an extension background page with a null origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Routes builds the full HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mcp", s.handleMCP)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /cleanup-connections", s.handleCleanup)
	return withLoggingHandler(s.logger, mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	sess := agent.NewSession(conn, agent.SessionConfig{
		PingInterval:     s.cfg.PingInterval,
		PingTimeout:      s.cfg.PingTimeout,
		FailureThreshold: s.cfg.PingFailureThreshold,
		WriteTimeout:     s.cfg.WriteTimeout,
	}, s.logger, s.resolver, s.cache, func(evicted *agent.Session) {
		s.registry.Remove(evicted.ID)
	})
	s.registry.Add(sess)
	sess.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(s.logger, w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.registry.ActiveCount(),
		"timestamp":   time.Now().UnixMilli(),
		"port":        s.port(),
		"sessions":    s.registry.Snapshot(),
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	cleaned := s.registry.SweepStale(s.cfg.StaleSessionAfter)
	s.SweepCursors()
	util.WriteJSON(s.logger, w, http.StatusOK, map[string]any{
		"cleaned":           cleaned,
		"activeConnections": s.registry.ActiveCount(),
	})
}

// statusRecorder captures the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLoggingHandler(logger logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The WebSocket upgrade hijacks the connection; wrapping the
		// ResponseWriter would break the Hijacker assertion.
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("handled request")
	})
}
