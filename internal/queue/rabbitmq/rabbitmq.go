package rabbitmq

import (
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	Exchange = "cloth.exchange"

	RequestQueue  = "cloth.processing.queue"
	ResultQueue   = "cloth.result.queue"
	ProgressQueue = "cloth.progress.queue"

	RequestKey  = "cloth.processing"
	ResultKey   = "cloth.result"
	ProgressKey = "cloth.progress"

	// Model warm-up on first use can block a worker for minutes, so the
	// heartbeat interval is kept generous.
	heartbeat = 10 * time.Minute
)

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewClient connects to RabbitMQ and declares the cloth processing
// topology: one direct exchange with three durable queues bound by
// distinct routing keys. Consumer prefetch is 1 so a worker never pulls
// a new job before acknowledging the current one.
func NewClient(url string) (*Client, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: heartbeat})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	log.Printf("RabbitMQ client initialized: exchange=%s queues=[%s %s %s]",
		Exchange, RequestQueue, ResultQueue, ProgressQueue)

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		Exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	bindings := []struct {
		queue      string
		routingKey string
	}{
		{RequestQueue, RequestKey},
		{ResultQueue, ResultKey},
		{ProgressQueue, ProgressKey},
	}

	for _, b := range bindings {
		_, err := ch.QueueDeclare(
			b.queue, // name
			true,    // durable
			false,   // delete when unused
			false,   // exclusive
			false,   // no-wait
			nil,     // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", b.queue, err)
		}

		if err := ch.QueueBind(b.queue, b.routingKey, Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", b.queue, err)
		}
	}

	return nil
}

// Publish sends a persistent JSON message through the exchange.
func (c *Client) Publish(routingKey string, body []byte) error {
	err := c.channel.Publish(
		Exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", routingKey, err)
	}

	return nil
}

// Consume starts delivering messages from the given queue. Messages are
// acknowledged by the caller, never automatically.
func (c *Client) Consume(queue string) (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(
		queue, // queue
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming from %s: %w", queue, err)
	}
	return msgs, nil
}

// NotifyClose registers a listener for connection-level faults.
func (c *Client) NotifyClose() chan *amqp.Error {
	return c.conn.NotifyClose(make(chan *amqp.Error, 1))
}

// Close closes the channel and connection.
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			log.Printf("Error closing channel: %v", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			log.Printf("Error closing connection: %v", err)
		}
	}
	return nil
}
