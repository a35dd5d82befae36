// Package handler provides the HTTP handlers for the webhook endpoints.
//
// Response policy: only authentication failures return non-200. Everything
// after authentication, including malformed payloads and internal errors,
// returns 200 with a shaped JSON envelope so the sender never enters a retry
// storm for an event that will not improve on redelivery.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/reelforge/hookrelay/internal/core"
)

// Envelope is the JSON body of every webhook response.
type Envelope struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(env)
}

// correlationID returns the chi request id, minting one when the middleware
// is not in front of the handler (tests, direct mounting).
func correlationID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

// envelopeFor maps a routing outcome onto the wire shape.
func envelopeFor(o core.Outcome, requestID string) Envelope {
	env := Envelope{Message: o.Detail, RequestID: requestID}
	switch o.Kind {
	case core.OutcomeOK:
		env.Status = "ok"
	case core.OutcomeIgnored:
		env.Status = "ignored"
	default:
		env.Status = "error"
	}
	return env
}

// Health answers liveness probes on the webhook paths.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Envelope{Status: "ok"})
}
