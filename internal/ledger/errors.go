package ledger

import "errors"

var (
	// ErrNotFound indicates a referenced vendor, user, menu item, deal or
	// balance does not exist.
	ErrNotFound = errors.New("ledger: not found")
	// ErrInsufficientPoints indicates the balance cannot cover the deal.
	ErrInsufficientPoints = errors.New("ledger: insufficient points")
	// ErrUnsupportedMode is returned for unknown redemption modes when strict
	// mode checking is on.
	ErrUnsupportedMode = errors.New("ledger: unsupported redemption mode")
	// ErrPersistence indicates the atomic write could not complete.
	ErrPersistence = errors.New("ledger: could not persist change")
	// ErrEmptyPurchase indicates a purchase without any items.
	ErrEmptyPurchase = errors.New("ledger: purchase has no items")
)
