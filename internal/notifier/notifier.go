package notifier

//go:generate go run go.uber.org/mock/mockgen -source=./notifier.go -destination=./mocks/notifier_mock.go -package=mocks

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"unibook/config"
	"unibook/infras/kafka"
	"unibook/shared/timezone"
)

const (
	TopicBookingRequests = "booking.requests"

	EventRequestSubmitted = "request.submitted"
	EventRequestAccepted  = "request.accepted"
	EventRequestRejected  = "request.rejected"
	EventRequestCancelled = "request.cancelled"
)

// RequestEvent is published after a booking-request state change has been
// committed. Consumers (mail, push, in-app inbox) live outside this service.
type RequestEvent struct {
	Event          string    `json:"event"`
	RequestID      string    `json:"request_id"`
	SlotInstanceID string    `json:"slot_instance_id"`
	RequesterID    string    `json:"requester_id"`
	OwnerID        string    `json:"owner_id"`
	BookingID      string    `json:"booking_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Notifier dispatches booking events fire-and-forget. Publish failures are
// logged and swallowed; a lost notification must never roll back or fail the
// booking operation that produced it.
type Notifier interface {
	RequestSubmitted(ctx context.Context, event RequestEvent)
	RequestAccepted(ctx context.Context, event RequestEvent)
	RequestRejected(ctx context.Context, event RequestEvent)
	RequestCancelled(ctx context.Context, event RequestEvent)
}

type notifierImpl struct {
	client kafka.Client
	cfg    *config.Config
}

func New(client kafka.Client, cfg *config.Config) Notifier {
	return &notifierImpl{
		client: client,
		cfg:    cfg,
	}
}

func (n *notifierImpl) RequestSubmitted(ctx context.Context, event RequestEvent) {
	n.publish(ctx, EventRequestSubmitted, event)
}

func (n *notifierImpl) RequestAccepted(ctx context.Context, event RequestEvent) {
	n.publish(ctx, EventRequestAccepted, event)
}

func (n *notifierImpl) RequestRejected(ctx context.Context, event RequestEvent) {
	n.publish(ctx, EventRequestRejected, event)
}

func (n *notifierImpl) RequestCancelled(ctx context.Context, event RequestEvent) {
	n.publish(ctx, EventRequestCancelled, event)
}

func (n *notifierImpl) publish(ctx context.Context, eventName string, event RequestEvent) {
	if !n.cfg.Kafka.Enable {
		return
	}

	event.Event = eventName
	if event.OccurredAt.IsZero() {
		event.OccurredAt = timezone.Now()
	}

	message := kafka.Message{
		Key:   event.RequestID,
		Value: event,
	}

	if err := n.client.SendMessages(ctx, TopicBookingRequests, message); err != nil {
		log.Error().
			Err(err).
			Str("event", eventName).
			Str("requestID", event.RequestID).
			Msg("failed to publish booking event")
	}
}
