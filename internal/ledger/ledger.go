// Package ledger implements points accrual and redemption against per
// (user, vendor) reward balances.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"vendor-rewards-api/internal/models"
	"vendor-rewards-api/internal/tracing"
)

// AccrualResult is the outcome of a successful purchase.
type AccrualResult struct {
	Balance    models.RewardBalance
	TotalPrice int64
	Earned     int64
	Created    bool // balance opened by this purchase
}

// RedemptionResult is the outcome of a redemption that did not fail.
// Applied is false when the mode is not one the ledger acts on.
type RedemptionResult struct {
	Balance models.RewardBalance
	Spent   int64
	Applied bool
}

// Ledger runs accrual and redemption inside units of work from a Store.
type Ledger struct {
	store       Store
	now         func() time.Time
	strictModes func() bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock used to timestamp balance history.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithStrictModes makes Redeem reject unknown modes with ErrUnsupportedMode
// whenever enabled reports true. Without it unknown modes are a no-op.
func WithStrictModes(enabled func() bool) Option {
	return func(l *Ledger) {
		l.strictModes = enabled
	}
}

// New creates a ledger over the given store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		now:         time.Now,
		strictModes: func() bool { return false },
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.strictModes == nil {
		l.strictModes = func() bool { return false }
	}
	return l
}

// Accrue prices the selected menu items, converts the total into points at
// the vendor's rate and adds them to the user's balance with that vendor,
// creating the balance on first purchase.
func (l *Ledger) Accrue(ctx context.Context, vendorID, userID int64, itemIDs []int64) (AccrualResult, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "ledger.Accrue", trace.WithAttributes(
		tracing.AttrVendorID.Int64(vendorID),
		tracing.AttrUserID.Int64(userID),
		tracing.AttrItems.Int(len(itemIDs)),
	))
	defer span.End()

	if len(itemIDs) == 0 {
		return AccrualResult{}, tracing.Fail(span, ErrEmptyPurchase)
	}

	var result AccrualResult
	err := l.store.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		vendor, err := uow.GetVendor(ctx, vendorID)
		if err != nil {
			return err
		}
		if _, err := uow.GetUser(ctx, userID); err != nil {
			return err
		}

		var total int64
		for _, id := range itemIDs {
			item, err := uow.GetMenuItem(ctx, id)
			if err != nil {
				return err
			}
			if item.VendorID != vendorID {
				return fmt.Errorf("menu item %d is not on vendor %d's menu: %w", id, vendorID, ErrNotFound)
			}
			total += item.Price
		}

		// One multiplication per purchase, never per item.
		earned := total * vendor.PurchaseToPoints

		lookup, err := uow.GetOrCreateBalance(ctx, userID, vendorID)
		if err != nil {
			return err
		}
		balance := lookup.Balance
		balance.Points += earned

		if err := uow.SaveBalance(ctx, balance); err != nil {
			return err
		}
		if err := uow.AppendEntry(ctx, models.RewardEntry{
			UserID:    userID,
			VendorID:  vendorID,
			Kind:      models.EntryAccrual,
			Delta:     earned,
			CreatedAt: l.now().UTC(),
		}); err != nil {
			return err
		}

		result = AccrualResult{
			Balance:    balance,
			TotalPrice: total,
			Earned:     earned,
			Created:    lookup.Created,
		}
		return nil
	})
	if err != nil {
		return AccrualResult{}, tracing.Fail(span, classify(err))
	}

	span.SetAttributes(
		tracing.AttrEarned.Int64(result.Earned),
		tracing.AttrCreated.Bool(result.Created),
	)
	return result, nil
}

// Redeem spends deal.PointsRequired from the user's balance with the vendor.
// A user who never purchased from the vendor has no balance and gets
// ErrNotFound; a balance that cannot cover the deal gets
// ErrInsufficientPoints and is left untouched.
func (l *Ledger) Redeem(ctx context.Context, vendorID, userID, dealID int64, mode string) (RedemptionResult, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "ledger.Redeem", trace.WithAttributes(
		tracing.AttrVendorID.Int64(vendorID),
		tracing.AttrUserID.Int64(userID),
		tracing.AttrDealID.Int64(dealID),
		tracing.AttrMode.String(mode),
	))
	defer span.End()

	var result RedemptionResult
	err := l.store.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		balance, err := uow.GetBalance(ctx, userID, vendorID)
		if err != nil {
			return err
		}

		deal, err := uow.GetDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if deal.VendorID != vendorID {
			return fmt.Errorf("deal %d is not offered by vendor %d: %w", dealID, vendorID, ErrNotFound)
		}

		if mode != models.RedemptionModePoints {
			if l.strictModes() {
				return fmt.Errorf("mode %q: %w", mode, ErrUnsupportedMode)
			}
			result = RedemptionResult{Balance: balance}
			return nil
		}

		if balance.Points < deal.PointsRequired {
			return fmt.Errorf("balance %d is below the %d points deal %d requires: %w",
				balance.Points, deal.PointsRequired, dealID, ErrInsufficientPoints)
		}

		balance.Points -= deal.PointsRequired
		if err := uow.SaveBalance(ctx, balance); err != nil {
			return err
		}
		if err := uow.AppendEntry(ctx, models.RewardEntry{
			UserID:    userID,
			VendorID:  vendorID,
			Kind:      models.EntryRedemption,
			Delta:     -deal.PointsRequired,
			DealID:    &deal.ID,
			CreatedAt: l.now().UTC(),
		}); err != nil {
			return err
		}

		result = RedemptionResult{
			Balance: balance,
			Spent:   deal.PointsRequired,
			Applied: true,
		}
		return nil
	})
	if err != nil {
		return RedemptionResult{}, tracing.Fail(span, classify(err))
	}

	span.SetAttributes(
		tracing.AttrApplied.Bool(result.Applied),
		tracing.AttrSpent.Int64(result.Spent),
	)
	return result, nil
}

// classify passes domain errors through and folds everything else into
// ErrPersistence.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInsufficientPoints),
		errors.Is(err, ErrUnsupportedMode),
		errors.Is(err, ErrEmptyPurchase),
		errors.Is(err, ErrPersistence):
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
