package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"anime-api/internal/model"
)

const PostCreatedEventType = "post.created"

// PostCreatedEvent is the body of a post.created message.
type PostCreatedEvent struct {
	Type       string     `json:"type"`
	Post       model.Post `json:"post"`
	OccurredAt time.Time  `json:"occurred_at"`
}

type PostEventPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewPostEventPublisher(conn *amqp.Connection, queueName string) *PostEventPublisher {
	return &PostEventPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *PostEventPublisher) PublishPostCreated(ctx context.Context, post model.Post) error {
	payload, err := EncodePostCreated(post, time.Now().UTC())
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         PostCreatedEventType,
			MessageId:    post.ID,
			Timestamp:    time.Now().UTC(),
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish post created failed: %w", err)
	}
	return nil
}

func EncodePostCreated(post model.Post, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(PostCreatedEvent{
		Type:       PostCreatedEventType,
		Post:       post,
		OccurredAt: at,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal post created event failed: %w", err)
	}
	return payload, nil
}

func DecodePostCreated(body []byte) (PostCreatedEvent, error) {
	var event PostCreatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return PostCreatedEvent{}, fmt.Errorf("decode post created event failed: %w", err)
	}
	if event.Type != PostCreatedEventType || event.Post.ID == "" {
		return PostCreatedEvent{}, fmt.Errorf("unexpected event %q for post %q", event.Type, event.Post.ID)
	}
	return event, nil
}
