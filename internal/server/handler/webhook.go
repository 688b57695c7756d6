// Package handler provides the HTTP handlers of the service.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/dispatch"
	"github.com/forgebot/forgebot/internal/events"
)

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(cfg *config.Config, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle validates, parses and dispatches one GitHub webhook delivery.
// Unsupported events are acknowledged with 200 so GitHub does not
// retry them.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, []byte(h.cfg.GitHub.WebhookSecret))
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	webhook, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	event, err := events.ParseWebhook(webhook)
	if err != nil {
		if errors.Is(err, events.ErrUnsupported) {
			h.logger.Debug("ignoring webhook", "type", github.WebHookType(r), "reason", err.Error())
			_, _ = fmt.Fprint(w, "Event not handled")
			return
		}
		h.logger.Warn("malformed webhook payload", "type", github.WebHookType(r), "error", err)
		http.Error(w, "Malformed payload", http.StatusBadRequest)
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), event)
	if err != nil {
		h.logger.Error("dispatch failed", "event_kind", event.Kind(), "error", err)
		http.Error(w, "Dispatch failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode dispatch result", "error", err)
	}
}
