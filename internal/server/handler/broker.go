package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// BrokerSession is the simulated terminal session.
type BrokerSession interface {
	Login(ctx context.Context, creds domain.Credentials) error
	Logout(ctx context.Context) bool
	Status() domain.SessionSnapshot
}

// BrokerHandler serves the MT5 login flow.
type BrokerHandler struct {
	session BrokerSession
	logger  *slog.Logger
}

// NewBrokerHandler creates a BrokerHandler.
func NewBrokerHandler(session BrokerSession, logger *slog.Logger) *BrokerHandler {
	return &BrokerHandler{session: session, logger: logHandler(logger, "broker")}
}

type loginResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Login runs the handshake and blocks until it completes. The handshake is
// detached from the request, so a client that disconnects mid-delay still
// leaves the session logged in or rejected.
// POST /api/mt5/login
func (h *BrokerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, loginResponse{Status: "error", Message: "invalid request body"})
		return
	}

	err := h.session.Login(context.WithoutCancel(r.Context()), creds)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, loginResponse{Status: "success", Message: "Logged in successfully"})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, loginResponse{Status: "error", Message: err.Error()})
	case errors.Is(err, domain.ErrAuthFailed):
		writeJSON(w, http.StatusUnauthorized, loginResponse{Status: "error", Message: err.Error()})
	default:
		h.logger.WarnContext(r.Context(), "handler: login failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, loginResponse{Status: "error", Message: "login failed"})
	}
}

// Status returns the session snapshot.
// GET /api/mt5/status
func (h *BrokerHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Status())
}

// Logout drops the session.
// POST /api/mt5/logout
func (h *BrokerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"disconnected": h.session.Logout(r.Context())})
}
