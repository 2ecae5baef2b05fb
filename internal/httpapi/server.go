package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/domain"
	apimw "github.com/hamed0406/healthwatch/internal/httpapi/middleware"
	"github.com/hamed0406/healthwatch/internal/repo"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Monitor is the part of the health monitor the API exposes.
type Monitor interface {
	CheckHealth()
	HandleOnline()
	HandleOffline()
	State() domain.State
	Target() string
}

type Server struct {
	Logger  *zap.Logger
	Monitor Monitor
	History repo.CheckStore
	Metrics http.Handler
}

// NewServer serves metrics from the default registry when metrics is nil.
func NewServer(l *zap.Logger, m Monitor, history repo.CheckStore, metrics http.Handler) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	return &Server{Logger: l, Monitor: m, History: history, Metrics: metrics}
}

// Router builds the HTTP surface. All origins are allowed when allowedOrigins is empty.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, publicRPM, publicBurst int) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", s.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(publicRPM, publicBurst))
			r.Use(apimw.RequireAny(keys))
			r.Get("/status", s.handleStatus)
			r.Post("/status/check", s.handleCheck)
			r.Get("/status/history", s.handleHistory)
		})
		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAdmin(keys))
			r.Post("/admin/connectivity", s.handleConnectivity)
		})
	})

	return r
}

type statusResponse struct {
	domain.State
	Target string `json:"target"`
	Advice string `json:"advice,omitempty"`
}

func (s *Server) status() statusResponse {
	st := s.Monitor.State()
	resp := statusResponse{State: st, Target: s.Monitor.Target()}
	if st.IsDown && st.LastError != nil {
		resp.Advice = st.LastError.Kind.UserMessage()
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

// handleCheck requests a check; while one is running the request is a no-op.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	s.Monitor.CheckHealth()
	s.Logger.Info("manual_check_requested", zap.String("remote", r.RemoteAddr))
	writeJSON(w, http.StatusAccepted, s.status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	if s.History == nil {
		writeJSON(w, http.StatusOK, []domain.CheckRecord{})
		return
	}
	recs, err := s.History.Recent(r.Context(), limit)
	if err != nil {
		s.Logger.Warn("history_error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	if recs == nil {
		recs = []domain.CheckRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

type connectivityPayload struct {
	Online *bool `json:"online"`
}

// handleConnectivity lets an operator report a network change the watcher cannot see.
func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	var p connectivityPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Online == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": `body must be {"online":true|false}`})
		return
	}
	if *p.Online {
		s.Monitor.HandleOnline()
	} else {
		s.Monitor.HandleOffline()
	}
	s.Logger.Info("connectivity_override", zap.Bool("online", *p.Online))
	writeJSON(w, http.StatusAccepted, s.status())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
