// Package worker consumes cloth processing jobs from the request queue,
// drives the pipeline and publishes results and progress back to the
// bus with bounded application-level retries.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/DevTigeer/ClosetConnectProject/internal/models"
	"github.com/DevTigeer/ClosetConnectProject/internal/pipeline"
	"github.com/DevTigeer/ClosetConnectProject/internal/queue/rabbitmq"
)

// Publisher publishes a persistent message by routing key.
type Publisher interface {
	Publish(routingKey string, body []byte) error
}

// Delivery is the part of an AMQP delivery the handler needs.
type Delivery interface {
	Body() []byte
	Ack() error
}

// Processor runs the pipeline for one job and always returns a
// publishable result.
type Processor interface {
	Process(ctx context.Context, job models.Job, progress pipeline.ProgressFunc) models.PipelineResult
}

// Handler is the per-message state machine. Exactly one result is
// published for every terminally-handled job; handling errors go
// through a retry-via-republish policy carried in the message body so
// the retry count survives process restarts and stays observable.
type Handler struct {
	proc       Processor
	pub        Publisher
	maxAge     time.Duration
	maxRetries int
	now        func() time.Time
}

func NewHandler(proc Processor, pub Publisher, maxAge time.Duration, maxRetries int) *Handler {
	return &Handler{
		proc:       proc,
		pub:        pub,
		maxAge:     maxAge,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// retryInfo is a lenient probe of the envelope fields the retry policy
// needs, decoded separately so they survive a failed full parse.
type retryInfo struct {
	ClothID    string `json:"clothId"`
	UserID     int64  `json:"userId"`
	RetryCount int    `json:"retryCount"`
	Timestamp  int64  `json:"timestamp"`
}

// Handle processes one delivery to completion. It never panics the
// consumer loop: all failure modes end in an acknowledged message.
func (h *Handler) Handle(ctx context.Context, d Delivery) {
	body := d.Body()

	var probe retryInfo
	_ = json.Unmarshal(body, &probe)

	// A crash inside processing goes through the same retry policy as
	// any other handling error instead of killing the consumer loop.
	defer func() {
		if r := recover(); r != nil {
			h.handleError(d, probe, body, fmt.Errorf("panic during processing: %v", r))
		}
	}()

	var job models.Job
	if err := json.Unmarshal(body, &job); err != nil {
		h.handleError(d, probe, body, fmt.Errorf("failed to parse job payload: %w", err))
		return
	}
	if job.ImageType == "" {
		job.ImageType = models.ImageTypeFullBody
	}

	log.Printf("Received job: clothId=%s userId=%d imageType=%s retryCount=%d",
		job.ClothID, job.UserID, job.ImageType, job.RetryCount)

	// Staleness is measured from first submission, not from retry
	// time; jobs past the bound are not worth processing.
	if job.Timestamp > 0 {
		age := h.now().Sub(time.UnixMilli(job.Timestamp))
		if age > h.maxAge {
			log.Printf("Job %s is stale (%.0fs old, bound %.0fs), discarding", job.ClothID, age.Seconds(), h.maxAge.Seconds())
			result := pipeline.FailureResult(job.ClothID,
				fmt.Sprintf("message too old (%.0fs); please upload the image again", age.Seconds()))
			if err := h.publishResult(result); err != nil {
				log.Printf("Failed to publish stale-job result: %v", err)
			}
			h.ack(d)
			return
		}
	}

	// Pipeline failures are caught inside Process and come back as a
	// failure result, so the job acknowledges normally either way.
	result := h.proc.Process(ctx, job, func(step string, pct int) {
		h.publishProgress(job, step, pct)
	})

	if err := h.publishResult(result); err != nil {
		h.handleError(d, probe, body, err)
		return
	}
	h.ack(d)
	log.Printf("Job %s processed and acknowledged (success=%v)", job.ClothID, result.Success)
}

// handleError applies the retry policy to an error that escaped normal
// processing: below the budget the original message is acknowledged
// and an identical copy with retryCount+1 (and the original timestamp)
// is republished; at the budget a failure result is published and the
// job is dropped.
func (h *Handler) handleError(d Delivery, probe retryInfo, body []byte, cause error) {
	log.Printf("Error handling message (clothId=%s retryCount=%d): %v", probe.ClothID, probe.RetryCount, cause)

	if probe.RetryCount >= h.maxRetries {
		log.Printf("Max retries (%d) exceeded for clothId=%s, dropping job", h.maxRetries, probe.ClothID)
		if probe.ClothID != "" {
			result := pipeline.FailureResult(probe.ClothID,
				fmt.Sprintf("processing failed after %d retries: %v", h.maxRetries, cause))
			if err := h.publishResult(result); err != nil {
				log.Printf("Failed to publish permanent-failure result: %v", err)
			}
		}
		h.ack(d)
		return
	}

	h.ack(d)

	if probe.ClothID == "" {
		log.Printf("Cannot retry message without clothId, dropping")
		return
	}

	retryBody, err := bumpRetryCount(body, probe.RetryCount+1)
	if err != nil {
		log.Printf("Failed to build retry message for clothId=%s: %v", probe.ClothID, err)
		return
	}
	if err := h.pub.Publish(rabbitmq.RequestKey, retryBody); err != nil {
		log.Printf("Failed to republish retry for clothId=%s: %v", probe.ClothID, err)
		return
	}
	log.Printf("Re-queued clothId=%s with retryCount=%d", probe.ClothID, probe.RetryCount+1)
}

// bumpRetryCount rewrites only the retryCount field, leaving every
// other field byte-identical (in particular the original timestamp and
// image payload).
func bumpRetryCount(body []byte, count int) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse message for retry: %w", err)
	}
	raw, err := json.Marshal(count)
	if err != nil {
		return nil, err
	}
	fields["retryCount"] = raw
	return json.Marshal(fields)
}

func (h *Handler) publishResult(result models.PipelineResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := h.pub.Publish(rabbitmq.ResultKey, body); err != nil {
		return fmt.Errorf("failed to publish result for clothId=%s: %w", result.ClothID, err)
	}
	return nil
}

// publishProgress is fire-and-forget: a lost progress event only costs
// UI freshness.
func (h *Handler) publishProgress(job models.Job, step string, pct int) {
	event := models.ProgressEvent{
		ClothID:            job.ClothID,
		UserID:             job.UserID,
		Status:             "PROCESSING",
		CurrentStep:        step,
		ProgressPercentage: pct,
		Timestamp:          h.now().UnixMilli(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal progress event: %v", err)
		return
	}
	if err := h.pub.Publish(rabbitmq.ProgressKey, body); err != nil {
		log.Printf("Failed to publish progress for clothId=%s: %v", job.ClothID, err)
	}
}

func (h *Handler) ack(d Delivery) {
	if err := d.Ack(); err != nil {
		log.Printf("Failed to ack message: %v", err)
	}
}
