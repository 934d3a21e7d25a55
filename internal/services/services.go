package services

import (
	"context"
	"log"
	"time"

	"github.com/ruralpay/ledger/internal/audit"
	"github.com/ruralpay/ledger/internal/config"
	"github.com/ruralpay/ledger/internal/events"
	"github.com/ruralpay/ledger/internal/store"
)

// Options wires the ledger engine. Store is required; everything else has a default.
type Options struct {
	Store     store.Store
	Publisher events.Publisher
	Audit     *audit.Logger
	Config    config.LedgerConfig
	Clock     func() time.Time
	Cards     CardResolver
}

// Services is the ledger engine
type Services struct {
	Ledger      *LedgerService
	Accounts    *AccountService
	Adjustments *AdjustmentService
	Holds       *HoldService
	Limits      *LimitService
	Activity    *ActivityService
	Network     *NetworkMessageService
}

// core is shared by every ledger-mutating service
type core struct {
	store     store.Store
	ledger    *LedgerService
	publisher events.Publisher
	audit     *audit.Logger
	cfg       config.LedgerConfig
	clock     func() time.Time
}

func (c *core) now() time.Time {
	return c.clock().UTC()
}

func (c *core) inTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return runInTx(ctx, c.store, c.cfg.MaxRetries, fn)
}

// publish sends committed events; a broker failure never undoes ledger state
func (c *core) publish(ctx context.Context, evts ...events.Event) {
	if err := c.publisher.Publish(ctx, evts...); err != nil {
		log.Printf("[LEDGER] Failed to publish %d events: %v", len(evts), err)
	}
}

func New(opts Options) *Services {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewLogger()
	}
	if opts.Config == (config.LedgerConfig{}) {
		opts.Config = config.DefaultLedgerConfig()
	}
	if opts.Cards == nil {
		opts.Cards = NewStoreCardResolver(opts.Store)
	}

	c := &core{
		store:     opts.Store,
		ledger:    NewLedgerService(opts.Clock),
		publisher: opts.Publisher,
		audit:     opts.Audit,
		cfg:       opts.Config,
		clock:     opts.Clock,
	}

	s := &Services{Ledger: c.ledger}
	s.Activity = &ActivityService{core: c}
	s.Limits = &LimitService{core: c}
	s.Accounts = &AccountService{core: c, limits: s.Limits}
	s.Holds = &HoldService{core: c, accounts: s.Accounts, activity: s.Activity}
	s.Adjustments = &AdjustmentService{
		core:     c,
		accounts: s.Accounts,
		holds:    s.Holds,
		limits:   s.Limits,
		activity: s.Activity,
	}
	s.Network = &NetworkMessageService{
		core:        c,
		cards:       opts.Cards,
		accounts:    s.Accounts,
		adjustments: s.Adjustments,
		holds:       s.Holds,
		limits:      s.Limits,
		activity:    s.Activity,
		validator:   NewValidationHelper(),
	}
	return s
}
