package handler

import (
	"context"
	"net/http"
)

// BotController is the simulation run toggle.
type BotController interface {
	Toggle(ctx context.Context) bool
	Running() bool
}

// BotHandler serves the start/stop switch.
type BotHandler struct {
	bot BotController
}

// NewBotHandler creates a BotHandler.
func NewBotHandler(bot BotController) *BotHandler {
	return &BotHandler{bot: bot}
}

// Toggle flips the simulation on or off.
// POST /api/bot/toggle
func (h *BotHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	// The SYSTEM log line must not be lost if the client hangs up mid-request.
	running := h.bot.Toggle(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusOK, map[string]bool{"running": running})
}

// Status reports whether the simulation is running.
// GET /api/bot/status
func (h *BotHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"running": h.bot.Running()})
}
