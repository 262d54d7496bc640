package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"

	"github.com/attaleem/api/internal/services"
)

// PubSubOrderEventPublisher publishes order domain events to a Pub/Sub topic.
type PubSubOrderEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubOrderEventPublisher constructs a Pub/Sub backed order event publisher.
func NewPubSubOrderEventPublisher(topic *pubsub.Topic) (*PubSubOrderEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub order event publisher: topic is required")
	}
	return &PubSubOrderEventPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishOrderEvent enqueues one order event message on the configured topic.
// The event type and order id ride along as attributes so subscribers can
// filter without decoding payloads.
func (p *PubSubOrderEventPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub order event publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	attrs := make(map[string]string)
	// Pub/Sub is at-least-once; the message id lets subscribers dedupe.
	attrs["messageId"] = uuid.NewString()
	setAttr(attrs, "eventType", event.Type)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "orderNumber", event.OrderNumber)
	setAttr(attrs, "status", string(event.CurrentStatus))
	setAttr(attrs, "paymentStatus", string(event.PaymentStatus))

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// PubSubMailPublisher hands transactional mail to the outbox topic consumed
// by the external sender.
type PubSubMailPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubMailPublisher constructs a Pub/Sub backed mail publisher.
func NewPubSubMailPublisher(topic *pubsub.Topic) (*PubSubMailPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub mail publisher: topic is required")
	}
	return &PubSubMailPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishMail enqueues one mail message and returns the Pub/Sub message id.
func (p *PubSubMailPublisher) PublishMail(ctx context.Context, msg services.MailMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub mail publisher: not initialised")
	}

	data, err := p.marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal mail message: %w", err)
	}

	attrs := make(map[string]string)
	attrs["messageId"] = uuid.NewString()
	setAttr(attrs, "template", msg.Template)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish mail message: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
