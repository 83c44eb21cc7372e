package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"SynthLedger/internal/oracle"
)

const (
	priceStream   = "SYNTH_PRICES"
	priceSubject  = "synth.prices.>"
	priceConsumer = "ledger-prices"
)

// PriceSubscriber consumes feed observations off JetStream and applies them
// to the per-asset cached feeds. Messages for assets outside the collateral
// set are acked and dropped; malformed messages are acked too, since
// redelivery cannot fix them.
type PriceSubscriber struct {
	js       jetstream.JetStream
	feeds    map[string]*oracle.CachedFeed
	consumer jetstream.ConsumeContext
	log      zerolog.Logger
}

func NewPriceSubscriber(js jetstream.JetStream, feeds map[string]*oracle.CachedFeed, log zerolog.Logger) *PriceSubscriber {
	return &PriceSubscriber{js: js, feeds: feeds, log: log}
}

// Subscribe creates the durable consumer and starts delivery.
func (s *PriceSubscriber) Subscribe(ctx context.Context) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, priceStream, jetstream.ConsumerConfig{
		Durable:       priceConsumer,
		FilterSubject: priceSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", priceConsumer, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		s.handle(msg)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", priceConsumer, err)
	}
	s.consumer = cc
	s.log.Info().Str("subject", priceSubject).Msg("subscribed to price updates")
	return nil
}

func (s *PriceSubscriber) handle(msg jetstream.Msg) {
	update, price, err := ParsePriceUpdate(msg.Data())
	if err != nil {
		s.log.Warn().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed price update")
		msg.Ack()
		return
	}

	feed, ok := s.feeds[update.CollateralAsset]
	if !ok {
		msg.Ack()
		return
	}

	feed.Observe(price, update.Decimals, time.UnixMicro(update.UpdatedAtMicros))
	msg.Ack()
}

// Stop halts delivery.
func (s *PriceSubscriber) Stop() {
	if s.consumer != nil {
		s.consumer.Stop()
	}
}

// EnsurePriceStream creates the inbound price stream if absent.
func EnsurePriceStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      priceStream,
		Subjects:  []string{priceSubject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create price stream: %w", err)
	}
	return nil
}
