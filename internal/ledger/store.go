package ledger

import (
	"context"

	"vendor-rewards-api/internal/models"
)

// Catalog is the read-only view of vendors, menu items and deals.
// Lookups return an error wrapping ErrNotFound when the id is unknown.
type Catalog interface {
	GetVendor(ctx context.Context, id int64) (models.Vendor, error)
	GetMenuItem(ctx context.Context, id int64) (models.MenuItem, error)
	GetDeal(ctx context.Context, id int64) (models.Deal, error)
}

// Identity is the read-only view of users.
type Identity interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
}

// BalanceLookup is the tagged result of GetOrCreateBalance.
type BalanceLookup struct {
	Balance models.RewardBalance
	Created bool
}

// BalanceRepository reads and writes reward balances and their history.
type BalanceRepository interface {
	GetBalance(ctx context.Context, userID, vendorID int64) (models.RewardBalance, error)
	GetOrCreateBalance(ctx context.Context, userID, vendorID int64) (BalanceLookup, error)
	SaveBalance(ctx context.Context, balance models.RewardBalance) error
	AppendEntry(ctx context.Context, entry models.RewardEntry) error
}

// UnitOfWork is everything a ledger operation may touch, bound to a single
// atomic transaction.
type UnitOfWork interface {
	Catalog
	Identity
	BalanceRepository
}

// Store opens units of work. WithinTx commits when fn returns nil and rolls
// back otherwise; a failed commit is returned as an error.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}
