package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// disposition is what to tell Pub/Sub about a delivered trigger.
type disposition int

const (
	ack disposition = iota
	nack
)

// PubSubConfig configures a PubSubHandler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Jobs             *JobRunner
	Logger           zerolog.Logger

	// MaxAge drops triggers published longer ago than this. A backlog of
	// sweep triggers left from an outage collapses into the newest one
	// instead of running back to back. Zero keeps everything.
	MaxAge time.Duration

	Now func() time.Time
}

// PubSubHandler runs jobs named by messages on a Cloud Pub/Sub
// subscription, typically fed by Cloud Scheduler.
type PubSubHandler struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	jobs         *JobRunner
	maxAge       time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

// NewPubSubHandler connects to Pub/Sub. Jobs are processed one at a time;
// a sweep already fans out across boats.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.NumGoroutines = 1
	subscriber.ReceiveSettings.MaxExtension = 15 * time.Minute

	h := newPubSubHandler(cfg)
	h.client = client
	h.subscriber = subscriber
	return h, nil
}

func newPubSubHandler(cfg PubSubConfig) *PubSubHandler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &PubSubHandler{
		subscription: cfg.SubscriptionName,
		jobs:         cfg.Jobs,
		maxAge:       cfg.MaxAge,
		now:          now,
		logger:       cfg.Logger.With().Str("component", "pubsub").Logger(),
	}
}

// Start receives until ctx is cancelled or the subscription fails.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().Str("subscription", h.subscription).Msg("receiving job triggers")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if h.process(ctx, msg.ID, msg.PublishTime, msg.Attributes, msg.Data) == ack {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// process runs one trigger. The job type comes from the JSON body or,
// for Cloud Scheduler jobs configured with attributes only, the job_type
// attribute. Only a failed job is nacked; anything that can never succeed
// is acked so it is not redelivered forever.
func (h *PubSubHandler) process(ctx context.Context, id string, published time.Time, attrs map[string]string, data []byte) disposition {
	log := h.logger.With().Str("message_id", id).Logger()

	if h.maxAge > 0 && !published.IsZero() {
		if age := h.now().Sub(published); age > h.maxAge {
			log.Warn().Dur("age", age).Msg("dropping stale job trigger")
			return ack
		}
	}

	var msg JobMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Error().Err(err).Msg("malformed job trigger")
			return ack
		}
	}
	if msg.JobType == "" {
		msg.JobType = attrs["job_type"]
	}
	log = log.With().Str("job_type", msg.JobType).Logger()

	start := h.now()
	err := h.jobs.Handle(ctx, msg)
	switch {
	case errors.Is(err, ErrUnknownJob):
		log.Warn().Msg("unknown job type")
		return ack
	case err != nil:
		log.Error().Err(err).Msg("job failed")
		return nack
	}

	log.Info().Dur("duration", h.now().Sub(start)).Msg("job completed")
	return ack
}
