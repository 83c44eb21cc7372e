// Package engine implements the synthetic-asset accounting engine: collateral
// custody, liability issuance, health-factor solvency enforcement, and
// liquidation. Every public operation is serialized by a mutex and is
// all-or-nothing: internal journal batches are applied before any external
// collaborator call, and any downstream failure reverts them before the
// mutex is released.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"SynthLedger/internal/event"
	"SynthLedger/internal/fixedpoint"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/observability"
	"SynthLedger/internal/oracle"
	"SynthLedger/internal/registry"
	"SynthLedger/internal/token"
)

// Output is the unit handed to the persistence, projection, and publish
// pipelines for each committed operation.
type Output struct {
	Envelope *event.Envelope
	Batches  []*ledger.Batch
}

// Engine is the single-writer accounting core.
type Engine struct {
	mu sync.Mutex

	registry  *registry.CollateralRegistry
	pricing   *oracle.Adapter
	dsc       token.LiabilityToken
	vault     token.CollateralVault
	tracker   *ledger.BalanceTracker
	journals  *ledger.JournalGenerator
	validator *ledger.InvariantValidator
	hasher    *StateHasher
	sequence  int64
	now       func() time.Time

	// persistChan blocks when full; projectionChan and publishChan drop.
	// Any of the three may be nil (tests, tools).
	persistChan    chan<- Output
	projectionChan chan<- Output
	publishChan    chan<- Output

	metrics *observability.Metrics
	log     zerolog.Logger
}

// Config carries the collaborators an Engine is wired with.
type Config struct {
	Registry *registry.CollateralRegistry
	Pricing  *oracle.Adapter
	Token    token.LiabilityToken
	Vault    token.CollateralVault

	PersistChan    chan<- Output
	ProjectionChan chan<- Output
	PublishChan    chan<- Output

	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, errors.New("engine: registry is required")
	}
	if cfg.Pricing == nil {
		return nil, errors.New("engine: pricing adapter is required")
	}
	if cfg.Token == nil || cfg.Vault == nil {
		return nil, errors.New("engine: token and vault collaborators are required")
	}

	tracker := ledger.NewBalanceTracker()
	return &Engine{
		registry:       cfg.Registry,
		pricing:        cfg.Pricing,
		dsc:            cfg.Token,
		vault:          cfg.Vault,
		tracker:        tracker,
		journals:       ledger.NewJournalGenerator(tracker),
		validator:      ledger.NewInvariantValidator(tracker),
		hasher:         NewStateHasher(),
		sequence:       0,
		now:            time.Now,
		persistChan:    cfg.PersistChan,
		projectionChan: cfg.ProjectionChan,
		publishChan:    cfg.PublishChan,
		metrics:        cfg.Metrics,
		log:            cfg.Logger,
	}, nil
}

// Sequence returns the next sequence the engine will assign.
func (e *Engine) Sequence() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequence
}

// SetClock overrides the engine's wall clock. Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// commit finalizes an operation under the lock: envelope, hash chain link,
// sequence advance, pipeline handoff, metrics. The batches must already be
// applied and every external interaction complete.
func (e *Engine) commit(op string, evt event.Event, batches []*ledger.Batch, ts time.Time) *event.Envelope {
	payload, err := json.Marshal(evt)
	if err != nil {
		// Payloads are plain structs of strings and UUIDs; this cannot fail
		// with well-formed events.
		panic("engine: event payload marshal: " + err.Error())
	}

	digest := computeStateDigest(e.tracker, batches)
	prevHash := e.hasher.PrevHash()
	stateHash := e.hasher.ComputeHash(e.sequence, digest)

	envelope := &event.Envelope{
		Sequence:       e.sequence,
		IdempotencyKey: evt.IdempotencyKey(),
		EventType:      evt.EventType(),
		Asset:          evt.Asset(),
		Timestamp:      ts,
		Payload:        payload,
		StateHash:      stateHash,
		PrevHash:       prevHash,
	}
	e.sequence++

	output := Output{Envelope: envelope, Batches: batches}

	if e.persistChan != nil {
		select {
		case e.persistChan <- output:
		default:
			// Full: block until the writer drains. No committed operation
			// is ever dropped from the durable log.
			if e.metrics != nil {
				e.metrics.PersistBackpressure.Inc()
			}
			e.persistChan <- output
		}
	}

	if e.projectionChan != nil {
		select {
		case e.projectionChan <- output:
		default:
			if e.metrics != nil {
				e.metrics.ProjectionDrops.Inc()
			}
		}
	}

	if e.publishChan != nil {
		select {
		case e.publishChan <- output:
		default:
			if e.metrics != nil {
				e.metrics.PublishDrops.Inc()
			}
		}
	}

	if e.metrics != nil {
		e.metrics.OpsApplied.WithLabelValues(op).Inc()
		e.metrics.Sequence.Set(float64(e.sequence))
	}

	e.log.Info().
		Str("op", op).
		Int64("sequence", envelope.Sequence).
		Str("idempotency_key", envelope.IdempotencyKey).
		Msg("operation committed")

	return envelope
}

func (e *Engine) reject(op, reason string, err error) error {
	if e.metrics != nil {
		e.metrics.OpsRejected.WithLabelValues(op, reason).Inc()
	}
	e.log.Warn().Str("op", op).Str("reason", reason).Err(err).Msg("operation rejected")
	return err
}

func (e *Engine) observeDuration(op string, start time.Time) {
	if e.metrics != nil {
		e.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// collateralValueLocked sums the USD value of every accepted asset the user
// holds, in registry order. Zero balances are skipped so a position that
// never touched an asset is not coupled to that asset's feed health.
func (e *Engine) collateralValueLocked(ctx context.Context, user uuid.UUID) (*big.Int, error) {
	total := new(big.Int)
	for _, asset := range e.registry.Assets() {
		held := e.tracker.CollateralBalance(user, asset)
		if held.Sign() == 0 {
			continue
		}
		value, err := e.pricing.UsdValue(ctx, asset, held)
		if err != nil {
			e.notePriceError(asset, err)
			return nil, err
		}
		if e.metrics != nil {
			e.metrics.OracleReads.WithLabelValues(asset).Inc()
		}
		total.Add(total, value)
	}
	return total, nil
}

// healthFactorLocked computes the user's current health factor. A debt-free
// position is Infinity without touching any feed.
func (e *Engine) healthFactorLocked(ctx context.Context, user uuid.UUID) (*big.Int, error) {
	debt := e.tracker.DebtBalance(user)
	if debt.Sign() == 0 {
		return new(big.Int).Set(fixedpoint.Infinity), nil
	}
	value, err := e.collateralValueLocked(ctx, user)
	if err != nil {
		return nil, err
	}
	return fixedpoint.HealthFactor(debt, value), nil
}

// requireHealthyLocked fails with BrokenHealthFactorError when the user's
// factor is below the minimum.
func (e *Engine) requireHealthyLocked(ctx context.Context, user uuid.UUID) error {
	factor, err := e.healthFactorLocked(ctx, user)
	if err != nil {
		return err
	}
	if factor.Cmp(fixedpoint.MinHealthFactor) < 0 {
		if e.metrics != nil {
			e.metrics.HealthChecks.WithLabelValues("broken").Inc()
		}
		return BrokenHealthFactorError{Factor: factor}
	}
	if e.metrics != nil {
		e.metrics.HealthChecks.WithLabelValues("ok").Inc()
	}
	return nil
}

func (e *Engine) notePriceError(asset string, err error) {
	if e.metrics == nil {
		return
	}
	reason := "unavailable"
	if errors.Is(err, oracle.ErrStalePrice) {
		reason = "stale"
	}
	e.metrics.OracleRejections.WithLabelValues(asset, reason).Inc()
}

func (e *Engine) requireAccepted(asset string) error {
	if !e.registry.IsAccepted(asset) {
		return registry.ErrUnknownAsset{Asset: asset}
	}
	return nil
}
