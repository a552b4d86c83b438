// Package notify carries processing outcome notifications to the user-facing
// dispatcher. It defines the Notifier interface (port), an SNS publisher and
// the per-status message templates.
package notify

import (
	"context"

	"github.com/framesnap/framesnap/internal/ledger"
)

// Message is the notification payload for one processing outcome.
type Message struct {
	OwnerID        string        `json:"owner_id"`
	VideoID        string        `json:"video_id"`
	Status         ledger.Status `json:"status"`
	OutputLocation string        `json:"output_location,omitempty"`
	ErrorDetail    string        `json:"error_detail,omitempty"`
}

// Notifier delivers a processing outcome toward the user.
type Notifier interface {
	// Notify dispatches the message. Delivery is best-effort from the
	// worker's point of view; a failure must not abort the pipeline.
	Notify(ctx context.Context, msg Message) error
}

// NopNotifier discards all messages. Used when no topic is configured.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, Message) error { return nil }
