// Package mailer turns processing outcome notifications into emails: it
// resolves the owner's address from the user directory, renders the outcome
// template and sends it.
package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/framesnap/framesnap/internal/notify"
	"github.com/framesnap/framesnap/internal/queue"
)

// ErrNoEmail is returned when the owner exists but has no email address.
// Redelivery cannot fix it, so the consumer acknowledges such messages.
var ErrNoEmail = errors.New("mailer: owner has no email address")

// Directory resolves an owner ID to an email address. A missing address is
// reported as an error wrapping ErrNoEmail.
type Directory interface {
	EmailFor(ctx context.Context, ownerID string) (string, error)
}

// Sender delivers a rendered email.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// Dispatcher consumes outcome notifications and emails the video owner.
type Dispatcher struct {
	directory Directory
	sender    Sender
	logger    *slog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(directory Directory, sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		directory: directory,
		sender:    sender,
		logger:    logger,
	}
}

// Dispatch emails the outcome to the owner of the video.
func (d *Dispatcher) Dispatch(ctx context.Context, msg notify.Message) error {
	email, err := d.directory.EmailFor(ctx, msg.OwnerID)
	if err != nil {
		return fmt.Errorf("resolve email for owner %s: %w", msg.OwnerID, err)
	}

	subject, body := notify.Render(msg)
	if err := d.sender.SendEmail(ctx, email, subject, body); err != nil {
		return fmt.Errorf("send email to %s: %w", email, err)
	}

	d.logger.Info("outcome email sent",
		slog.String("owner_id", msg.OwnerID),
		slog.String("video_id", msg.VideoID),
		slog.String("status", string(msg.Status)),
	)
	return nil
}

// HandleQueueMessage adapts Dispatch to the queue.Handler contract. Bodies
// arrive wrapped in an SNS envelope; raw JSON is accepted too so the queue
// can also be fed directly. Undecodable bodies are acknowledged since
// redelivery cannot fix them.
func (d *Dispatcher) HandleQueueMessage(ctx context.Context, body []byte) error {
	inner, err := queue.UnwrapSNSEnvelope(body)
	if err != nil {
		inner = body
	}

	var msg notify.Message
	if err := json.Unmarshal(inner, &msg); err != nil {
		d.logger.Warn("discarding undecodable notification",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if msg.OwnerID == "" || msg.VideoID == "" {
		d.logger.Warn("discarding notification without owner or video id")
		return nil
	}

	if err := d.Dispatch(ctx, msg); err != nil {
		if errors.Is(err, ErrNoEmail) {
			d.logger.Warn("discarding notification for owner without email",
				slog.String("owner_id", msg.OwnerID),
			)
			return nil
		}
		return err
	}
	return nil
}
