package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
)

// topicPublisher is the slice of the Pub/Sub publisher we use; kept narrow so
// tests can stub delivery.
type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Publisher pushes notification events onto the lessor notification topic.
// Delivery is fire-and-forget: outcomes are awaited on a background goroutine
// and only logged.
type Publisher struct {
	topic   topicPublisher
	logg    *logger.Logger
	timeout time.Duration
}

type eventPayload struct {
	NotificationID string  `json:"notificationId"`
	UserID         string  `json:"userId"`
	RentalID       *string `json:"rentalId,omitempty"`
	Type           string  `json:"type"`
	Title          string  `json:"title"`
	Message        string  `json:"message"`
	OccurredAt     string  `json:"occurredAt"`
}

func NewPublisher(topic topicPublisher, logg *logger.Logger) (*Publisher, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Publisher{topic: topic, logg: logg, timeout: 30 * time.Second}, nil
}

// Publish enqueues the event. A nil topic means Pub/Sub is disabled and the
// in-app row is the only delivery channel.
func (p *Publisher) Publish(ctx context.Context, notification models.Notification) {
	if p == nil || p.topic == nil {
		return
	}

	payload := eventPayload{
		NotificationID: notification.ID.String(),
		UserID:         notification.UserID.String(),
		Type:           string(notification.Type),
		Title:          notification.Title,
		Message:        notification.Message,
		OccurredAt:     notification.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if notification.RentalID != nil {
		rentalID := notification.RentalID.String()
		payload.RentalID = &rentalID
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logg.Warn(ctx, "encoding notification event failed")
		return
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"lessor_id": notification.UserID.String(),
			"type":      string(notification.Type),
		},
	})

	go func() {
		waitCtx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if _, err := result.Get(waitCtx); err != nil {
			p.logg.Warn(p.logg.WithField(waitCtx, "type", string(notification.Type)), "publishing notification event failed")
		}
	}()
}
