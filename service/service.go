// Package service exposes the transport-agnostic operations of the DKP
// system: auction resolution, corrections and cancellations, charges, ledger
// mutations, tiebreaks, and roster ingestion. Every operation runs as a
// single store transaction.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/guildtools/dkpledger/auction"
	"github.com/guildtools/dkpledger/ledger"
	"github.com/guildtools/dkpledger/registry"
	"github.com/guildtools/dkpledger/store"
)

// Config carries the tunable policy knobs.
type Config struct {
	// FingerprintPolicy decides how resubmitted fingerprints are handled.
	FingerprintPolicy FingerprintPolicy
	// CancelGrace is how long after creation an auction may be cancelled.
	CancelGrace time.Duration
}

const defaultCancelGrace = 2 * time.Hour

// Service implements the operations. The random source is injectable so tie
// breaks are reproducible under test.
type Service struct {
	store  store.Store
	logger *zap.Logger
	rand   auction.RandSource
	cfg    Config
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRandSource injects the random source used for tie-break shuffles.
func WithRandSource(rs auction.RandSource) Option {
	return func(s *Service) { s.rand = rs }
}

// WithClock injects the time source, for tests exercising the grace window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a Service. A nil logger disables logging; zero config fields get
// defaults (reject resubmissions, 2 hour cancel grace).
func New(st store.Store, logger *zap.Logger, cfg Config, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FingerprintPolicy == "" {
		cfg.FingerprintPolicy = FingerprintReject
	}
	if cfg.CancelGrace == 0 {
		cfg.CancelGrace = defaultCancelGrace
	}
	s := &Service{
		store:  st,
		logger: logger,
		rand:   auction.DefaultRandSource(),
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// txDirectory adapts a store transaction to the resolver's lookup surface.
type txDirectory struct {
	tx store.Tx
}

func (d txDirectory) Member(name string) (*registry.Member, bool) {
	m, err := d.tx.Member(name)
	if err != nil {
		return nil, false
	}
	return m, true
}

func (d txDirectory) AltOwner(name string) (*registry.Member, bool) {
	m, err := d.tx.AltOwner(name)
	if err != nil {
		return nil, false
	}
	return m, true
}

// ChargeDKP debits a member for an item outside an auction. A name resolving
// through an alt link, carrying the alt suffix, or an explicit IsAlt flag
// debits the alt pool.
func (s *Service) ChargeDKP(ctx context.Context, req ChargeRequest) (string, error) {
	if req.Value < 0 {
		return "", &ValidationError{Reason: "charge value must not be negative"}
	}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		res, ok := registry.Resolve(txDirectory{tx}, req.Character)
		if !ok {
			return &NotFoundError{What: "character " + req.Character}
		}
		return tx.AppendPurchase(ledger.Purchase{
			ID:     ledger.NewEventID(),
			Member: res.Member.Name,
			Item:   req.Item,
			Value:  req.Value,
			Time:   req.Time,
			IsAlt:  req.IsAlt || res.Alt,
			Notes:  req.Notes,
		})
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("dkp charged",
		zap.String("character", req.Character),
		zap.String("item", req.Item),
		zap.Int("value", req.Value))
	return "DKP charge successful", nil
}

// isNotFound unwraps store lookups to the service taxonomy.
func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
