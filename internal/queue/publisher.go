package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publishChannel interface {
	queueDeclarer
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher mantiene un canal abierto para publicar DigestJob.
type Publisher struct {
	conn    *amqp.Connection
	channel publishChannel
	now     func() time.Time
}

func NewPublisher(url string) (*Publisher, error) {
	if url == "" {
		return nil, errors.New("amqp url is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	p, err := newPublisher(ch)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch publishChannel) (*Publisher, error) {
	if err := declareDigestQueues(ch); err != nil {
		return nil, err
	}
	return &Publisher{channel: ch, now: time.Now}, nil
}

// PublishDigest encola el job como mensaje persistente en la cola por defecto.
func (p *Publisher) PublishDigest(ctx context.Context, job DigestJob) error {
	if job.Email == "" {
		return errors.New("digest job requires an email")
	}
	if job.RequestedAt.IsZero() {
		job.RequestedAt = p.now().UTC()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal digest job: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    job.RequestedAt,
		Body:         body,
	}
	if err := p.channel.PublishWithContext(ctx, "", DigestQueueName, false, false, pub); err != nil {
		return fmt.Errorf("publish digest job: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
