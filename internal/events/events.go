package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cybercards/apiserver/config"
	"github.com/cybercards/apiserver/types"
)

// Topics published over the lifetime of a submission. Downstream
// consumers (notification senders, audit trails) subscribe to these.
const (
	TopicSubmissionCreated  = "submission.created"
	TopicSubmissionReviewed = "submission.reviewed"
)

// SubmissionEvent is the payload published on submission lifecycle topics.
type SubmissionEvent struct {
	SubmissionID string       `json:"submissionId"`
	UserID       string       `json:"userId"`
	Username     string       `json:"username"`
	CardType     string       `json:"cardType"`
	Status       types.Status `json:"status"`
	OccurredAt   time.Time    `json:"occurredAt"`
}

// Publisher delivers submission events to a broker. Implementations must
// be safe for concurrent use by request handlers.
type Publisher interface {
	Publish(ctx context.Context, topic string, event SubmissionEvent) error
	Close() error
}

// New selects a publisher backend from config. An empty or "none"
// backend yields a no-op publisher.
func New(ctx context.Context, cfg config.EventsConfig) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return NoopPublisher{}, nil
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubPublisher(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown events backend: %q", cfg.Backend)
	}
}

// NoopPublisher drops every event. Used when no broker is configured,
// matching the reference server which only logged at these points.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, topic string, event SubmissionEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

func encodeEvent(topic string, event SubmissionEvent) ([]byte, map[string]string, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, nil, errors.New("event topic is required")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, nil, err
	}
	attrs := map[string]string{
		"submission_id": event.SubmissionID,
		"status":        string(event.Status),
	}
	return data, attrs, nil
}
