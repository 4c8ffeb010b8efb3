package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/service/ledger"
	client "github.com/mamadbah2/agritrace/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// MessagingService pushes free-form text to a WhatsApp recipient.
type MessagingService interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// WhatsAppNotifier tells a configured recipient when batches are registered
// or change stage.
type WhatsAppNotifier struct {
	client    client.Client
	recipient string
	traceURL  func(batchID string) string
	logger    *zap.Logger
}

var (
	_ ledger.Listener  = (*WhatsAppNotifier)(nil)
	_ MessagingService = (*WhatsAppNotifier)(nil)
)

// NewWhatsAppNotifier wires a notifier. traceURL may be nil, in which case
// messages carry no link.
func NewWhatsAppNotifier(c client.Client, recipient string, traceURL func(string) string, logger *zap.Logger) *WhatsAppNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppNotifier{
		client:    c,
		recipient: strings.TrimSpace(recipient),
		traceURL:  traceURL,
		logger:    logger,
	}
}

// BatchCreated announces a newly registered batch.
func (n *WhatsAppNotifier) BatchCreated(ctx context.Context, batch models.Batch) error {
	msg := fmt.Sprintf("New batch %s registered: %dkg of %s from %s.",
		batch.BatchID, batch.Quantity, batch.ProduceType, batch.Location)
	return n.send(ctx, n.recipient, n.withLink(msg, batch.BatchID))
}

// EventAppended announces stage changes. Events that leave the status
// unchanged are not forwarded.
func (n *WhatsAppNotifier) EventAppended(ctx context.Context, batch models.Batch, event models.Event, previous models.Status) error {
	if batch.Status == previous {
		return nil
	}
	msg := fmt.Sprintf("Batch %s (%s) moved from %s to %s: %s by %s.",
		batch.BatchID, batch.ProduceType, previous, batch.Status, event.Action, event.Actor)
	return n.send(ctx, n.recipient, n.withLink(msg, batch.BatchID))
}

// SendOutbound lets internal jobs push notifications, such as the daily digest.
func (n *WhatsAppNotifier) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return n.sendWithPreview(ctx, req.To, req.Message, req.PreviewURL)
}

func (n *WhatsAppNotifier) withLink(msg, batchID string) string {
	if n.traceURL == nil {
		return msg
	}
	return msg + "\nTrace: " + n.traceURL(batchID)
}

func (n *WhatsAppNotifier) send(ctx context.Context, to, body string) error {
	return n.sendWithPreview(ctx, to, body, false)
}

func (n *WhatsAppNotifier) sendWithPreview(ctx context.Context, to, body string, preview bool) error {
	if strings.TrimSpace(to) == "" {
		n.logger.Debug("no recipient configured, skipping notification")
		return nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := n.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         to,
		Body:       body,
		PreviewURL: preview,
	})
	if err != nil {
		return fmt.Errorf("notify %s: %w", to, err)
	}

	n.logger.Debug("notification sent", zap.String("to", to))
	return nil
}
