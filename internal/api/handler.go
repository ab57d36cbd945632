package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arvales/slotvault/internal/config"
	"github.com/arvales/slotvault/internal/service"
	"github.com/arvales/slotvault/internal/session"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slotvault_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "slotvault_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	credits  *service.CreditsService
	sessions *session.Manager
	network  config.Network
	contract string
	log      *zap.Logger
}

func NewHandler(credits *service.CreditsService, sessions *session.Manager, network config.Network, contractID string, log *zap.Logger) *Handler {
	return &Handler{
		credits:  credits,
		sessions: sessions,
		network:  network,
		contract: contractID,
		log:      log,
	}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthHandler).Methods("GET")
	r.HandleFunc("/", h.IndexHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/session", h.SignInHandler).Methods("POST")
	apiV1.HandleFunc("/session", h.SessionStatusHandler).Methods("GET")
	apiV1.HandleFunc("/session", h.SignOutHandler).Methods("DELETE")

	authed := apiV1.NewRoute().Subrouter()
	authed.Use(h.requireSession)
	authed.HandleFunc("/credits", h.GetCreditsHandler).Methods("GET")
	authed.HandleFunc("/deposits", h.CreateDepositHandler).Methods("POST")
	authed.HandleFunc("/deposits", h.GetDepositsHandler).Methods("GET")
	authed.HandleFunc("/plays", h.CreatePlayHandler).Methods("POST")
	authed.HandleFunc("/notifications", h.GetNotificationHandler).Methods("GET")
	return r
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// requireSession gates every credits/deposit/play route: a signed-out request
// is rejected up front, before any contract fetch is attempted.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signer, ok := h.sessions.Lookup(bearerToken(r))
		if !ok {
			h.respondJSON(w, http.StatusUnauthorized, map[string]string{
				"error":       "sign in to continue",
				"sign_in_url": h.network.WalletURL,
			}, r.Method, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithSigner(r.Context(), signer)))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	return strings.TrimPrefix(auth, "Bearer ")
}

// Helpers
func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
