package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler consumes ingestion trigger messages. The scheduler
// publishing into the topic decides cadence; the handler only dispatches.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	runner           *Runner
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Runner           *Runner
	Logger           zerolog.Logger
}

// IngestMessage is the trigger message payload. Source is a source name
// or "all"; empty defaults to "all".
type IngestMessage struct {
	Source string `json:"source"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Ingestion runs are long; one at a time, with generous extension.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 60 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		runner:           cfg.Runner,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing trigger messages. Blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	var trigger IngestMessage
	if err := json.Unmarshal(msg.Data, &trigger); err != nil {
		logger.Error().Err(err).Msg("failed to parse trigger message")
		// A malformed message never becomes parseable; ack it away.
		msg.Ack()
		return
	}
	if trigger.Source == "" {
		trigger.Source = SourceAll
	}

	result := h.runner.Run(ctx, trigger.Source)
	if result.StatusCode != 200 {
		logger.Error().
			Str("source", trigger.Source).
			Str("message", result.Message).
			Msg("triggered run failed")
		// Config failures are not transient; redelivery would fail the
		// same way. Ack and rely on the run log for visibility.
		msg.Ack()
		return
	}

	logger.Info().
		Str("source", trigger.Source).
		Str("run_id", result.RunID).
		Dur("duration", time.Since(startTime)).
		Msg("triggered run completed")
	msg.Ack()
}
