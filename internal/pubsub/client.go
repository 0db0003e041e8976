package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// New creates a publisher for projectID. An empty projectID yields a client
// that drops every message.
func New(ctx context.Context, projectID string) (PubSubClient, error) {
	if projectID == "" {
		log.Info("No GCP project configured, events will not be published")
		return noopClient{}, nil
	}
	pubSubC, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	return &client{client: pubSubC}, nil
}

func (c *client) SendMessage(ctx context.Context, topic EventType, data any) error {
	message, err := encode(topic, data)
	if err != nil {
		log.Error("MessagePack marshal error", "error", err)
		return err
	}
	result := c.client.Topic(string(topic)).Publish(ctx, message)
	serverID, err := result.Get(ctx)
	if err != nil {
		log.Error("Failed to publish message", "error", err, "topic", topic)
		return err
	}
	log.Debug("Published message", "topic", topic, "serverID", serverID)
	return nil
}

func (c *client) Close() error {
	return c.client.Close()
}

func (noopClient) SendMessage(_ context.Context, topic EventType, data any) error {
	if _, err := encode(topic, data); err != nil {
		return err
	}
	log.Debug("Dropping event, publishing disabled", "topic", topic)
	return nil
}

func (noopClient) Close() error { return nil }

// encode packs data with MessagePack and tags the message with its event type.
func encode(topic EventType, data any) (*pubsub.Message, error) {
	payload, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", topic, err)
	}
	return &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"event": string(topic)},
	}, nil
}
