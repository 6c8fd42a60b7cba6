package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/storefront/seo-api/internal/platform/textutil"
	"github.com/storefront/seo-api/internal/services"
)

// PubSubSEOEventPublisher publishes SEO metadata lifecycle events to a Pub/Sub topic.
type PubSubSEOEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ services.SEOEventPublisher = (*PubSubSEOEventPublisher)(nil)

// NewPubSubSEOEventPublisher constructs a Pub/Sub backed SEO event publisher.
func NewPubSubSEOEventPublisher(topic *pubsub.Topic) (*PubSubSEOEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub seo publisher: topic is required")
	}
	return &PubSubSEOEventPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishSEOEvent sends the JSON encoded event and waits for the server acknowledgement. Routing
// attributes let subscribers filter on event type without decoding the payload.
func (p *PubSubSEOEventPublisher) PublishSEOEvent(ctx context.Context, event services.SEOEvent) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub seo publisher: not initialised")
	}
	if event.Type == "" {
		return errors.New("pubsub seo publisher: event type is required")
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal seo event: %w", err)
	}

	attrs := textutil.CompactStringMap(map[string]string{
		"type":     string(event.Type),
		"recordId": event.RecordID,
		"pageUrl":  event.PageURL,
		"pageType": event.PageType,
	})

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish seo event %s: %w", event.Type, err)
	}
	return nil
}

// Stop flushes pending messages and releases the topic's goroutines.
func (p *PubSubSEOEventPublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}
