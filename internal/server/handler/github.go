package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v73/github"

	"github.com/reelforge/hookrelay/internal/core"
	"github.com/reelforge/hookrelay/internal/ingest"
	"github.com/reelforge/hookrelay/internal/ledger"
	"github.com/reelforge/hookrelay/internal/signature"
)

// maxBodyBytes caps webhook bodies at 1 MB. The events we act on are a few
// KB of JSON; anything larger is not a payload this engine handles.
const maxBodyBytes = 1 << 20

// GitHubHandler processes incoming webhooks from GitHub.
type GitHubHandler struct {
	secret     string
	verify     bool
	deliveries *ledger.Ledger
	router     *ingest.Router
	logger     *slog.Logger
}

// NewGitHubHandler creates the handler for the GitHub webhook endpoint.
// verify should only be false under the explicit test configuration flag.
func NewGitHubHandler(secret string, verify bool, deliveries *ledger.Ledger, router *ingest.Router, logger *slog.Logger) *GitHubHandler {
	return &GitHubHandler{
		secret:     secret,
		verify:     verify,
		deliveries: deliveries,
		router:     router,
		logger:     logger,
	}
}

// Handle authenticates, deduplicates, parses, and routes one GitHub delivery.
func (h *GitHubHandler) Handle(w http.ResponseWriter, r *http.Request) {
	reqID := correlationID(r)

	// Cheap pre-filter before any signature work.
	if !strings.HasPrefix(r.UserAgent(), "GitHub-Hookshot/") {
		h.logger.Warn("rejecting request with non-GitHub user agent",
			"user_agent", r.UserAgent(), "request_id", reqID)
		writeJSON(w, http.StatusBadRequest, Envelope{Status: "error", Message: "unexpected user agent", RequestID: reqID})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("failed to read webhook body", "error", err, "request_id", reqID)
		writeJSON(w, http.StatusBadRequest, Envelope{Status: "error", Message: "unreadable body", RequestID: reqID})
		return
	}

	if h.verify && !signature.Verify(body, r.Header.Get(github.SHA256SignatureHeader), h.secret, signature.SHA256) {
		h.logger.Warn("webhook signature verification failed", "request_id", reqID)
		writeJSON(w, http.StatusUnauthorized, Envelope{Status: "error", Message: "invalid signature", RequestID: reqID})
		return
	}

	eventType := github.WebHookType(r)
	deliveryID := github.DeliveryID(r)

	if !h.deliveries.RecordIfNew(r.Context(), deliveryID, eventType, "", body) {
		h.logger.Info("duplicate delivery ignored", "delivery_id", deliveryID, "request_id", reqID)
		writeJSON(w, http.StatusOK, Envelope{Status: "ignored", Message: "duplicate delivery", RequestID: reqID})
		return
	}

	event, err := github.ParseWebHook(eventType, body)
	if err != nil {
		// Deliberately 200: a payload that does not parse now never will.
		h.logger.Error("could not parse webhook payload",
			"event_type", eventType, "delivery_id", deliveryID, "error", err, "request_id", reqID)
		writeJSON(w, http.StatusOK, Envelope{Status: "error", Message: "malformed payload", RequestID: reqID})
		return
	}

	outcome := h.router.RouteGitHub(r.Context(), eventType, event)
	if outcome.Kind == core.OutcomeErrorLogged {
		h.logger.Warn("event handled with logged error",
			"event_type", eventType, "delivery_id", deliveryID, "detail", outcome.Detail, "request_id", reqID)
	}
	writeJSON(w, http.StatusOK, envelopeFor(outcome, reqID))
}
