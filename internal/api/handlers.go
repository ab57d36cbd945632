package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arvales/slotvault/internal/models"
	"github.com/arvales/slotvault/internal/near"
	"github.com/arvales/slotvault/internal/service"
	"github.com/arvales/slotvault/internal/session"
)

func (h *Handler) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/session")
		return
	}

	token, err := h.sessions.SignIn(r.Context(), req.AccountID, req.SecretKey)
	if err != nil {
		h.log.Warn("sign-in rejected", zap.String("account", req.AccountID), zap.Error(err))
		h.respondError(w, http.StatusUnauthorized, "Sign-in failed: "+err.Error(), "POST", "/session")
		return
	}

	h.respondJSON(w, http.StatusCreated, models.SessionResponse{
		Token:     token,
		AccountID: req.AccountID,
	}, "POST", "/session")
}

func (h *Handler) SessionStatusHandler(w http.ResponseWriter, r *http.Request) {
	if signer, ok := h.sessions.Lookup(bearerToken(r)); ok {
		h.respondJSON(w, http.StatusOK, map[string]interface{}{
			"signed_in":  true,
			"account_id": signer.AccountID,
		}, "GET", "/session")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"signed_in":   false,
		"sign_in_url": h.network.WalletURL,
	}, "GET", "/session")
}

func (h *Handler) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	h.sessions.SignOut(bearerToken(r))
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", "/session")
}

func (h *Handler) GetCreditsHandler(w http.ResponseWriter, r *http.Request) {
	signer, _ := session.FromContext(r.Context())

	credits, err := h.credits.GetCredits(r.Context(), signer.AccountID)
	if err != nil {
		h.respondError(w, http.StatusBadGateway, "Credits are unavailable right now", "GET", "/credits")
		return
	}
	h.respondJSON(w, http.StatusOK, credits, "GET", "/credits")
}

func (h *Handler) CreateDepositHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/deposits"))
	defer timer.ObserveDuration()

	signer, _ := session.FromContext(r.Context())

	var req models.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/deposits")
		return
	}

	amountYocto, err := service.ParseAmount(req.Amount)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, "Positive NEAR amount required", "POST", "/deposits")
		return
	}

	resp, err := h.credits.Deposit(r.Context(), signer, amountYocto)
	if err != nil {
		h.respondDepositError(w, err, "POST", "/deposits")
		return
	}
	h.respondJSON(w, http.StatusCreated, resp, "POST", "/deposits")
}

func (h *Handler) GetDepositsHandler(w http.ResponseWriter, r *http.Request) {
	signer, _ := session.FromContext(r.Context())

	receipts, err := h.credits.Receipts(r.Context(), signer.AccountID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Receipt history unavailable", "GET", "/deposits")
		return
	}
	h.respondJSON(w, http.StatusOK, receipts, "GET", "/deposits")
}

func (h *Handler) CreatePlayHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/plays"))
	defer timer.ObserveDuration()

	signer, _ := session.FromContext(r.Context())

	resp, err := h.credits.Play(r.Context(), signer)
	if err != nil {
		if near.IsNoCredits(err) {
			h.respondError(w, http.StatusUnprocessableEntity, "No credits left: deposit first", "POST", "/plays")
			return
		}
		h.respondDepositError(w, err, "POST", "/plays")
		return
	}
	h.respondJSON(w, http.StatusOK, resp, "POST", "/plays")
}

func (h *Handler) GetNotificationHandler(w http.ResponseWriter, r *http.Request) {
	signer, _ := session.FromContext(r.Context())

	note, ok := h.credits.Notifications.Active(signer.AccountID)
	if !ok {
		h.respondJSON(w, http.StatusNoContent, nil, "GET", "/notifications")
		return
	}
	h.respondJSON(w, http.StatusOK, note, "GET", "/notifications")
}

// respondDepositError maps change-call failures onto status codes. The
// message keeps the original dApp's generic retry hint.
func (h *Handler) respondDepositError(w http.ResponseWriter, err error, method, endpoint string) {
	var execErr *near.ExecutionError
	switch {
	case errors.Is(err, service.ErrSubmissionInFlight):
		h.respondError(w, http.StatusConflict, "A submission is already in flight", method, endpoint)
	case errors.As(err, &execErr):
		h.respondError(w, http.StatusUnprocessableEntity, "The contract rejected the call: "+execErr.Message, method, endpoint)
	default:
		h.respondError(w, http.StatusBadGateway, "Something went wrong! Maybe you need to sign out and back in?", method, endpoint)
	}
}
