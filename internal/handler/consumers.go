package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/DevTigeer/ClosetConnectProject/internal/models"
	"github.com/DevTigeer/ClosetConnectProject/internal/queue/rabbitmq"
)

// ConsumeResults drains the result queue and records each job's
// terminal state. Malformed messages are logged and dropped; a result
// for an unknown cloth is acknowledged anyway since redelivery cannot
// fix it.
func (h *Handler) ConsumeResults(ctx context.Context) error {
	msgs, err := h.rabbitClient.Consume(rabbitmq.ResultQueue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.handleResult(ctx, msg)
		}
	}
}

func (h *Handler) handleResult(ctx context.Context, msg amqp.Delivery) {
	defer ackDelivery(msg)

	var result models.PipelineResult
	if err := json.Unmarshal(msg.Body, &result); err != nil {
		log.Printf("Failed to parse result message: %v", err)
		return
	}

	status := models.ClothStatusCompleted
	if !result.Success {
		status = models.ClothStatusFailed
	}
	log.Printf("[ResultConsumer] clothId=%s success=%v category=%s", result.ClothID, result.Success, result.SuggestedCategory)

	updateCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		UPDATE cloths
		SET status = $1, suggested_category = $2, segmentation_label = $3,
		    error_message = $4, updated_at = NOW()
		WHERE id = $5
	`
	_, err := h.pgPool.Exec(updateCtx, query,
		status, string(result.SuggestedCategory), result.SegmentationLabel, result.ErrorMessage, result.ClothID)
	if err != nil {
		log.Printf("[ResultConsumer] Failed to update cloth %s: %v", result.ClothID, err)
		return
	}

	// Drop the cached response and the progress snapshot.
	if err := h.redisClient.Delete(updateCtx, fmt.Sprintf("cloth:%s", result.ClothID)); err != nil {
		log.Printf("[ResultConsumer] Failed to invalidate cache for %s: %v", result.ClothID, err)
	}
	if err := h.redisClient.Delete(updateCtx, fmt.Sprintf("cloth:progress:%s", result.ClothID)); err != nil {
		log.Printf("[ResultConsumer] Failed to drop progress snapshot for %s: %v", result.ClothID, err)
	}
}

// ConsumeProgress keeps the latest progress event per cloth in Redis
// for the GET endpoint to serve. Events are informational; any failure
// here is logged and the message dropped.
func (h *Handler) ConsumeProgress(ctx context.Context) error {
	msgs, err := h.rabbitClient.Consume(rabbitmq.ProgressQueue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.handleProgress(ctx, msg)
		}
	}
}

func (h *Handler) handleProgress(ctx context.Context, msg amqp.Delivery) {
	defer ackDelivery(msg)

	var event models.ProgressEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("Failed to parse progress message: %v", err)
		return
	}

	setCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("cloth:progress:%s", event.ClothID)
	if err := h.redisClient.Set(setCtx, key, string(msg.Body), 10*time.Minute); err != nil {
		log.Printf("[ProgressConsumer] Failed to store progress for %s: %v", event.ClothID, err)
	}

	// First progress event moves the cloth out of pending.
	query := `UPDATE cloths SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	if _, err := h.pgPool.Exec(setCtx, query, models.ClothStatusProcessing, event.ClothID, models.ClothStatusPending); err != nil {
		log.Printf("[ProgressConsumer] Failed to mark cloth %s processing: %v", event.ClothID, err)
	}
}

func ackDelivery(msg amqp.Delivery) {
	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to ack message: %v", err)
	}
}
