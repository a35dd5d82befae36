package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/reelforge/hookrelay/internal/core"
	"github.com/reelforge/hookrelay/internal/ingest"
	"github.com/reelforge/hookrelay/internal/ledger"
	"github.com/reelforge/hookrelay/internal/signature"
)

// Render provider headers. The provider signs the raw body with HMAC-SHA512
// and retries aggressively on non-2xx responses.
const (
	RenderSignatureHeader = "X-Render-Signature"
	RenderDeliveryHeader  = "X-Render-Delivery"
)

// renderPayload is the provider's callback body. The event type travels in
// the body, not a header.
type renderPayload struct {
	RenderID          string   `json:"renderId"`
	Type              string   `json:"type"`
	OverallProgress   *float64 `json:"overallProgress,omitempty"`
	RenderedFrames    int      `json:"renderedFrames"`
	EncodedFrames     int      `json:"encodedFrames"`
	OutputURL         string   `json:"outputUrl"`
	OutputSizeInBytes int64    `json:"outputSizeInBytes"`
	Errors            []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Warnings []core.RenderWarning `json:"warnings"`
}

// RenderHandler processes callbacks from the remote rendering service.
type RenderHandler struct {
	secret     string
	verify     bool
	deliveries *ledger.Ledger
	router     *ingest.Router
	logger     *slog.Logger
}

// NewRenderHandler creates the handler for the render webhook endpoint.
func NewRenderHandler(secret string, verify bool, deliveries *ledger.Ledger, router *ingest.Router, logger *slog.Logger) *RenderHandler {
	return &RenderHandler{
		secret:     secret,
		verify:     verify,
		deliveries: deliveries,
		router:     router,
		logger:     logger,
	}
}

// Handle authenticates, deduplicates, and applies one render callback.
func (h *RenderHandler) Handle(w http.ResponseWriter, r *http.Request) {
	reqID := correlationID(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("failed to read render callback body", "error", err, "request_id", reqID)
		writeJSON(w, http.StatusBadRequest, Envelope{Status: "error", Message: "unreadable body", RequestID: reqID})
		return
	}

	if h.verify && !signature.Verify(body, r.Header.Get(RenderSignatureHeader), h.secret, signature.SHA512) {
		h.logger.Warn("render callback signature verification failed", "request_id", reqID)
		writeJSON(w, http.StatusUnauthorized, Envelope{Status: "error", Message: "invalid signature", RequestID: reqID})
		return
	}

	var payload renderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Error("could not parse render callback",
			"error", err, "request_id", reqID)
		writeJSON(w, http.StatusOK, Envelope{Status: "error", Message: "malformed payload", RequestID: reqID})
		return
	}

	deliveryID := r.Header.Get(RenderDeliveryHeader)
	if !h.deliveries.RecordIfNew(r.Context(), deliveryID, payload.Type, "", body) {
		h.logger.Info("duplicate render callback ignored", "delivery_id", deliveryID, "request_id", reqID)
		writeJSON(w, http.StatusOK, Envelope{Status: "ignored", Message: "duplicate delivery", RequestID: reqID})
		return
	}

	ev, ok := normalize(payload)
	if !ok {
		h.logger.Info("ignoring unknown render event type",
			"type", payload.Type, "render_id", payload.RenderID, "request_id", reqID)
		writeJSON(w, http.StatusOK, Envelope{Status: "ignored", Message: "unknown event type", RequestID: reqID})
		return
	}

	outcome := h.router.RouteRender(r.Context(), payload.RenderID, ev)
	writeJSON(w, http.StatusOK, envelopeFor(outcome, reqID))
}

// normalize converts the wire payload into the engine's event form. Progress
// arrives as a 0..1 float and is clamped to a 0..100 percentage.
func normalize(p renderPayload) (core.RenderEvent, bool) {
	ev := core.RenderEvent{
		Progress:       -1,
		RenderedFrames: p.RenderedFrames,
		EncodedFrames:  p.EncodedFrames,
		OutputURL:      p.OutputURL,
		SizeBytes:      p.OutputSizeInBytes,
		Warnings:       p.Warnings,
	}

	if p.OverallProgress != nil {
		ev.Progress = int(math.Round(*p.OverallProgress * 100))
		if ev.Progress < 0 {
			ev.Progress = 0
		}
		if ev.Progress > 100 {
			ev.Progress = 100
		}
	}
	if len(p.Errors) > 0 {
		ev.Error = p.Errors[0].Message
	}

	switch p.Type {
	case "progress":
		ev.Kind = core.RenderProgress
	case "success":
		ev.Kind = core.RenderSuccess
	case "error":
		ev.Kind = core.RenderError
	case "timeout":
		ev.Kind = core.RenderTimeout
	default:
		return core.RenderEvent{}, false
	}
	return ev, true
}
