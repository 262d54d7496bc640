package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	domain "github.com/attaleem/api/internal/domain"
	"github.com/attaleem/api/internal/services"
)

func newTestTopic(t *testing.T, name string) (*pubsub.Topic, *pstest.Server, func()) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}

	topic, err := client.CreateTopic(ctx, name)
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	cleanup := func() {
		_ = client.Close()
		_ = srv.Close()
	}
	return topic, srv, cleanup
}

func TestPubSubOrderEventPublisherPublishesMessage(t *testing.T) {
	topic, srv, cleanup := newTestTopic(t, "order-events")
	defer cleanup()

	publisher, err := NewPubSubOrderEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubOrderEventPublisher: %v", err)
	}

	event := services.OrderEvent{
		Type:          "order.paid",
		OrderID:       "ord_1",
		OrderNumber:   "AT-2025-000001",
		CurrentStatus: domain.OrderStatusProcessing,
		PaymentStatus: domain.PaymentPaid,
		OccurredAt:    time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC),
	}

	if err := publisher.PublishOrderEvent(context.Background(), event); err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.OrderEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != "ord_1" || payload.Type != "order.paid" {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["eventType"]; attr != "order.paid" {
		t.Fatalf("expected eventType attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["paymentStatus"]; attr != "paid" {
		t.Fatalf("expected paymentStatus attribute, got %q", attr)
	}
	if messages[0].Attributes["messageId"] == "" {
		t.Fatalf("expected messageId attribute for dedupe")
	}
}

func TestPubSubMailPublisherPublishesMessage(t *testing.T) {
	topic, srv, cleanup := newTestTopic(t, "mail-outbox")
	defer cleanup()

	publisher, err := NewPubSubMailPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubMailPublisher: %v", err)
	}

	msg := services.MailMessage{
		To:       "buyer@example.com",
		Subject:  "Order confirmed",
		Template: "order-confirmation",
		Data:     map[string]any{"orderNumber": "AT-2025-000001"},
	}

	id, err := publisher.PublishMail(context.Background(), msg)
	if err != nil {
		t.Fatalf("PublishMail: %v", err)
	}
	if id == "" {
		t.Fatalf("expected message id")
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.MailMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.To != msg.To || payload.Template != msg.Template {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["template"]; attr != "order-confirmation" {
		t.Fatalf("expected template attribute, got %q", attr)
	}
}
