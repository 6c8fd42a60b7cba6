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

	"github.com/storefront/seo-api/internal/services"
)

func newTestTopic(t *testing.T, ctx context.Context) (*pstest.Server, *pubsub.Topic) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "seo-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	t.Cleanup(topic.Stop)
	return srv, topic
}

func TestPubSubSEOEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv, topic := newTestTopic(t, ctx)

	publisher, err := NewPubSubSEOEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubSEOEventPublisher: %v", err)
	}

	score := 85
	event := services.SEOEvent{
		Type:       services.SEOEventAudited,
		RecordID:   "seo_01",
		PageURL:    "/product/red-shirt",
		PageType:   "product",
		ActorID:    "staff_1",
		Score:      &score,
		OccurredAt: time.Date(2026, 5, 6, 9, 0, 0, 0, time.UTC),
	}
	if err := publisher.PublishSEOEvent(ctx, event); err != nil {
		t.Fatalf("PublishSEOEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.SEOEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.RecordID != event.RecordID || payload.Score == nil || *payload.Score != 85 {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if !payload.OccurredAt.Equal(event.OccurredAt) {
		t.Fatalf("expected occurredAt %s, got %s", event.OccurredAt, payload.OccurredAt)
	}

	attrs := messages[0].Attributes
	if attrs["type"] != "seo.audit.completed" || attrs["pageUrl"] != "/product/red-shirt" || attrs["recordId"] != "seo_01" {
		t.Fatalf("unexpected attributes %#v", attrs)
	}
}

func TestPubSubSEOEventPublisherOmitsEmptyAttributes(t *testing.T) {
	ctx := context.Background()
	srv, topic := newTestTopic(t, ctx)

	publisher, err := NewPubSubSEOEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubSEOEventPublisher: %v", err)
	}
	summary := services.BulkSEOSummary{Total: 3, Succeeded: 2, Failed: 1}
	if err := publisher.PublishSEOEvent(ctx, services.SEOEvent{Type: services.SEOEventBulkCompleted, Summary: &summary}); err != nil {
		t.Fatalf("PublishSEOEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if _, ok := messages[0].Attributes["pageUrl"]; ok {
		t.Fatalf("empty pageUrl attribute should be dropped: %#v", messages[0].Attributes)
	}
	var payload services.SEOEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Summary == nil || *payload.Summary != summary {
		t.Fatalf("unexpected summary %#v", payload.Summary)
	}
}

func TestPubSubSEOEventPublisherValidation(t *testing.T) {
	if _, err := NewPubSubSEOEventPublisher(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}
	var publisher *PubSubSEOEventPublisher
	if err := publisher.PublishSEOEvent(context.Background(), services.SEOEvent{Type: services.SEOEventDeleted}); err == nil {
		t.Fatal("expected error for uninitialised publisher")
	}
}
