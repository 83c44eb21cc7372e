package ingestion

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"SynthLedger/internal/engine"
)

const outboundStream = "SYNTH_LEDGER_EVENTS"

// OutboundPublisher drains the engine's publish channel onto NATS. Subjects
// follow synth.ledger.events.{event_type}, with the collateral asset appended
// when the operation has one. Publishing is best-effort: the durable record
// is the Postgres event log, so a failed publish logs and moves on.
type OutboundPublisher struct {
	js    jetstream.JetStream
	input <-chan engine.Output
	log   zerolog.Logger
}

// publishedEvent is the wire form of a committed operation.
type publishedEvent struct {
	Sequence       int64           `json:"sequence"`
	EventType      string          `json:"event_type"`
	IdempotencyKey string          `json:"idempotency_key"`
	Asset          string          `json:"asset,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Payload        json.RawMessage `json:"payload"`
	StateHash      string          `json:"state_hash"`
	PrevHash       string          `json:"prev_hash"`
}

func NewOutboundPublisher(js jetstream.JetStream, input <-chan engine.Output, log zerolog.Logger) *OutboundPublisher {
	return &OutboundPublisher{js: js, input: input, log: log}
}

// Run drains the channel until ctx is cancelled or the channel closes.
func (p *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out, ok := <-p.input:
			if !ok {
				return nil
			}
			if err := p.publish(ctx, out); err != nil {
				p.log.Warn().Err(err).
					Int64("sequence", out.Envelope.Sequence).
					Msg("outbound publish failed")
			}
		}
	}
}

func (p *OutboundPublisher) publish(ctx context.Context, out engine.Output) error {
	env := out.Envelope
	data, err := json.Marshal(publishedEvent{
		Sequence:       env.Sequence,
		EventType:      env.EventType.String(),
		IdempotencyKey: env.IdempotencyKey,
		Asset:          env.Asset,
		Timestamp:      env.Timestamp,
		Payload:        env.Payload,
		StateHash:      hex.EncodeToString(env.StateHash[:]),
		PrevHash:       hex.EncodeToString(env.PrevHash[:]),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("synth.ledger.events.%s", env.EventType.String())
	if env.Asset != "" {
		subject = fmt.Sprintf("%s.%s", subject, env.Asset)
	}

	_, err = p.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStream creates the outbound events stream if absent.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      outboundStream,
		Subjects:  []string{"synth.ledger.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	return nil
}
