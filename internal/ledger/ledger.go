// Package ledger is the dedup gate for webhook deliveries: an append-only,
// uniquely-keyed record of every delivery identifier this engine has seen.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/reelforge/hookrelay/internal/core"
)

// DeliveryStore is the slice of the durable store the ledger needs. The
// insert must be a single atomic insert-if-absent so that concurrent
// redelivery of the same id yields exactly one true.
type DeliveryStore interface {
	InsertDelivery(ctx context.Context, d core.Delivery) (bool, error)
}

// Ledger deduplicates deliveries against durable storage.
type Ledger struct {
	store  DeliveryStore
	logger *slog.Logger
}

// New creates a Ledger over the given store.
func New(store DeliveryStore, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// RecordIfNew records the delivery and reports whether it was first seen.
//
// Some providers omit the delivery identifier; in that case the key falls
// back to a content hash of the raw body, which still catches byte-identical
// redeliveries. An empty body with no identifier bypasses the ledger
// entirely and is treated as new.
//
// A storage failure is logged and the event is treated as new: availability
// wins over strict dedup, so an unavailable ledger never drops events.
func (l *Ledger) RecordIfNew(ctx context.Context, deliveryID, eventType, repository string, body []byte) bool {
	if deliveryID == "" {
		if len(body) == 0 {
			return true
		}
		sum := sha256.Sum256(body)
		deliveryID = "sha256:" + hex.EncodeToString(sum[:])
	}

	isNew, err := l.store.InsertDelivery(ctx, core.Delivery{
		DeliveryID: deliveryID,
		EventType:  eventType,
		Repository: repository,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		l.logger.Error("delivery ledger write failed, treating event as new",
			"delivery_id", deliveryID, "error", err)
		return true
	}
	return isNew
}
