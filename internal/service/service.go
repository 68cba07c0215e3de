package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vendor-rewards-api/internal/cache"
	"vendor-rewards-api/internal/database"
	"vendor-rewards-api/internal/events"
	"vendor-rewards-api/internal/features"
	"vendor-rewards-api/internal/ledger"
	"vendor-rewards-api/internal/metrics"
	"vendor-rewards-api/internal/validation"
)

// DefaultCacheTTL is used when Options.CacheTTL is not set.
const DefaultCacheTTL = time.Minute

// RecentVendorCount is how many vendors the home page shows.
const RecentVendorCount = 10

// Flash messages shown to the user after a purchase or redemption.
const (
	MsgPurchaseMade     = "Purchase made"
	MsgPurchaseFailed   = "Purchase could not be made!"
	MsgDealRedeemed     = "Deal redeemed"
	MsgNotEnoughPoints  = "Not enough points to redeem this deal"
	MsgRedemptionFailed = "Deal could not be redeemed!"
	MsgGenericFailure   = "Something went wrong on our side. Please try again."
)

// FlashError carries the message shown to the user alongside the error
// that caused it. Handlers pick the status code from Err.
type FlashError struct {
	Message string
	Err     error
}

func (e *FlashError) Error() string {
	return e.Message
}

func (e *FlashError) Unwrap() error {
	return e.Err
}

func flash(err error, format string, args ...any) *FlashError {
	return &FlashError{Message: strings.TrimSpace(fmt.Sprintf(format, args...)), Err: err}
}

// Options configures optional collaborators of a Service. Zero values get
// working defaults.
type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Flags    *features.Manager
	Events   *events.Manager
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Clock    func() time.Time
}

// Service provides business logic for the vendor rewards API.
type Service struct {
	db       *database.DB
	ledger   *ledger.Ledger
	cache    cache.Cache
	cacheTTL time.Duration
	flags    *features.Manager
	events   *events.Manager
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService creates a new service instance with default collaborators.
func NewService(db *database.DB) *Service {
	return NewServiceWithOptions(db, Options{})
}

// NewServiceWithOptions creates a service with the given collaborators.
func NewServiceWithOptions(db *database.DB, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NewInMemoryCache()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Flags == nil {
		opts.Flags = features.NewManager()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Events == nil {
		flags := opts.Flags
		opts.Events = events.NewManager(opts.Logger, func() bool {
			return flags.IsEnabled(features.FeatureEventHooksEnabled)
		})
	}

	flags := opts.Flags
	ledgerOpts := []ledger.Option{
		ledger.WithStrictModes(func() bool {
			return flags.IsEnabled(features.FeatureStrictRedemptionMode)
		}),
	}
	if opts.Clock != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithClock(opts.Clock))
	}

	return &Service{
		db:       db,
		ledger:   ledger.New(db, ledgerOpts...),
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		flags:    opts.Flags,
		events:   opts.Events,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// Flags exposes the feature flags the service consults.
func (s *Service) Flags() *features.Manager {
	return s.flags
}

// Events exposes the event manager so callers can subscribe.
func (s *Service) Events() *events.Manager {
	return s.events
}

// detail strips the sentinel text from a wrapped error, leaving the
// context added on the way up.
func detail(err, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	if msg == "" || msg == sentinel.Error() {
		return ""
	}
	return msg
}

// outcome maps a ledger error onto a metrics outcome label.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ledger.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ledger.ErrInsufficientPoints):
		return metrics.OutcomeInsufficient
	case errors.Is(err, ledger.ErrUnsupportedMode),
		errors.Is(err, ledger.ErrEmptyPurchase),
		isValidation(err):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeFailure
	}
}

func isValidation(err error) bool {
	var vErr *validation.ValidationError
	return errors.As(err, &vErr)
}

// Message returns the text shown to the user for an error returned by the
// service. Failures the user cannot act on get a generic message.
func Message(err error) string {
	var fe *FlashError
	if errors.As(err, &fe) {
		return fe.Message
	}

	switch {
	case isValidation(err):
		return sentence(err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		if d := detail(err, ledger.ErrNotFound); d != "" {
			return sentence(d)
		}
		return "Record not found."
	case errors.Is(err, database.ErrConflict):
		if d := detail(err, database.ErrConflict); d != "" {
			return sentence(d + " already exists")
		}
		return "Record already exists."
	}
	return MsgGenericFailure
}

// Ping reports whether the database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
