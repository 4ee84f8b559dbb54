// Package queue publica y consume pedidos de digest sobre RabbitMQ.
package queue

import (
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DigestQueueName es la cola durable de pedidos de digest.
	DigestQueueName = "digest.requested"
	// DigestDeadLetterQueueName recibe los jobs rechazados o que fallaron tras el reintento.
	DigestDeadLetterQueueName = "digest.requested.dead"
)

// ErrRejectJob marca un fallo permanente; el job va a la cola de muertos sin reintento.
var ErrRejectJob = errors.New("digest job rejected")

// DigestJob pide el envio del digest a una cuenta.
type DigestJob struct {
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requested_at"`
}

type queueDeclarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
}

func digestQueueArgs() amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": DigestDeadLetterQueueName,
	}
}

// declareDigestQueues declara la cola de muertos y la cola principal que la referencia.
func declareDigestQueues(ch queueDeclarer) error {
	if _, err := ch.QueueDeclare(DigestDeadLetterQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("dead letter queue declare: %w", err)
	}
	if _, err := ch.QueueDeclare(DigestQueueName, true, false, false, false, digestQueueArgs()); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}
