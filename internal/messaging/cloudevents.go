// Package messaging implements the message channel that carries processing
// requests to the thumbnail worker.
package messaging

import (
	"context"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/Lllllllleong/mediaflow/internal/models"
)

const eventSource = "mediaflow/blob-enqueue"

// CloudEventPublisher sends each request as a binary-mode HTTP CloudEvent.
// The subject tag becomes the event type and the object name its subject.
type CloudEventPublisher struct {
	client cloudevents.Client
	target string
}

func NewCloudEventPublisher(target string) (*CloudEventPublisher, error) {
	if target == "" {
		return nil, fmt.Errorf("CLOUDEVENTS_TARGET must be set")
	}
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("failed to create CloudEvents client: %w", err)
	}
	return &CloudEventPublisher{client: client, target: target}, nil
}

func (p *CloudEventPublisher) Publish(ctx context.Context, subject string, msg models.ProcessRequest) error {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(eventSource)
	event.SetType(subject)
	event.SetSubject(msg.Blob.Name)
	if err := event.SetData(cloudevents.ApplicationJSON, msg); err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}

	result := p.client.Send(cloudevents.ContextWithTarget(ctx, p.target), event)
	if !cloudevents.IsACK(result) {
		return fmt.Errorf("failed to deliver event %s: %w", event.ID(), result)
	}
	return nil
}
