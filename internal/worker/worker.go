package worker

import (
	"context"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/DevTigeer/ClosetConnectProject/internal/config"
	"github.com/DevTigeer/ClosetConnectProject/internal/queue/rabbitmq"
)

// Worker owns one bus connection and processes jobs one at a time
// (prefetch=1): a new job is never pulled before the current one is
// acknowledged.
type Worker struct {
	cfg  *config.Config
	proc Processor
}

func New(cfg *config.Config, proc Processor) *Worker {
	return &Worker{cfg: cfg, proc: proc}
}

// Run consumes the request queue until ctx is cancelled, reconnecting
// with a fixed delay on connection-level faults. Unacknowledged
// in-flight jobs are redelivered by the broker after a reconnect.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		client, err := rabbitmq.NewClient(w.cfg.RabbitMQURL)
		if err != nil {
			log.Printf("Failed to connect to RabbitMQ: %v", err)
			if !w.wait(ctx) {
				return ctx.Err()
			}
			continue
		}

		w.consume(ctx, client)
		client.Close()

		if err := ctx.Err(); err != nil {
			return err
		}
		log.Printf("Connection lost, reconnecting in %v...", w.cfg.ReconnectWait)
		if !w.wait(ctx) {
			return ctx.Err()
		}
	}
}

func (w *Worker) consume(ctx context.Context, client *rabbitmq.Client) {
	msgs, err := client.Consume(rabbitmq.RequestQueue)
	if err != nil {
		log.Printf("Failed to start consuming: %v", err)
		return
	}
	closed := client.NotifyClose()
	handler := NewHandler(w.proc, client, w.cfg.MaxMessageAge, w.cfg.MaxRetries)

	log.Printf("Listening on queue %s", rabbitmq.RequestQueue)

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-closed:
			if err != nil {
				log.Printf("Connection closed by broker: %v", err)
			}
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			handler.Handle(ctx, amqpDelivery{msg})
		}
	}
}

func (w *Worker) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(w.cfg.ReconnectWait):
		return true
	}
}

// amqpDelivery adapts an amqp091 delivery to the handler's Delivery.
type amqpDelivery struct {
	msg amqp.Delivery
}

func (d amqpDelivery) Body() []byte { return d.msg.Body }
func (d amqpDelivery) Ack() error   { return d.msg.Ack(false) }
