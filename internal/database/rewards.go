package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vendor-rewards-api/internal/ledger"
	"vendor-rewards-api/internal/models"
)

// entryTimeLayout is fixed width so created_at sorts correctly as text.
const entryTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// GetBalance returns the reward balance for a (user, vendor) pair.
func (q queries) GetBalance(ctx context.Context, userID, vendorID int64) (models.RewardBalance, error) {
	b := models.RewardBalance{UserID: userID, VendorID: vendorID}
	err := q.q.QueryRowContext(ctx,
		`SELECT points FROM rewards WHERE user_id = ? AND vendor_id = ?`, userID, vendorID,
	).Scan(&b.Points)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RewardBalance{}, fmt.Errorf("user %d has no rewards with vendor %d: %w", userID, vendorID, ErrNotFound)
	}
	if err != nil {
		return models.RewardBalance{}, fmt.Errorf("failed to get reward balance: %w", err)
	}
	return b, nil
}

// GetOrCreateBalance returns the balance for a pair, opening it at zero
// points if it does not exist yet.
func (q queries) GetOrCreateBalance(ctx context.Context, userID, vendorID int64) (ledger.BalanceLookup, error) {
	res, err := q.q.ExecContext(ctx, `INSERT INTO rewards (user_id, vendor_id, points, updated_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(user_id, vendor_id) DO NOTHING`,
		userID, vendorID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return ledger.BalanceLookup{}, translate(err, "reward balance")
	}
	created, err := res.RowsAffected()
	if err != nil {
		return ledger.BalanceLookup{}, fmt.Errorf("failed to read affected rows: %w", err)
	}

	b, err := q.GetBalance(ctx, userID, vendorID)
	if err != nil {
		return ledger.BalanceLookup{}, err
	}
	return ledger.BalanceLookup{Balance: b, Created: created == 1}, nil
}

// SaveBalance writes the points of an existing balance.
func (q queries) SaveBalance(ctx context.Context, b models.RewardBalance) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE rewards SET points = ?, updated_at = ? WHERE user_id = ? AND vendor_id = ?`,
		b.Points, time.Now().UTC().Format(time.RFC3339), b.UserID, b.VendorID)
	if err != nil {
		return translate(err, "reward balance")
	}
	return requireAffected(res, fmt.Sprintf("reward balance of user %d with vendor %d", b.UserID, b.VendorID))
}

// AppendEntry records a balance change. An empty ID is filled with a new UUID.
func (q queries) AppendEntry(ctx context.Context, e models.RewardEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var dealID sql.NullInt64
	if e.DealID != nil {
		dealID = sql.NullInt64{Int64: *e.DealID, Valid: true}
	}

	_, err := q.q.ExecContext(ctx, `INSERT INTO reward_entries (
		id, user_id, vendor_id, kind, delta, deal_id, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.VendorID, e.Kind, e.Delta, dealID, e.CreatedAt.UTC().Format(entryTimeLayout))
	if err != nil {
		return translate(err, "reward entry")
	}
	return nil
}

// ListBalances returns every reward balance a user holds.
func (db *DB) ListBalances(ctx context.Context, userID int64) ([]models.RewardBalance, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT user_id, vendor_id, points FROM rewards WHERE user_id = ? ORDER BY vendor_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward balances: %w", err)
	}
	defer rows.Close()

	balances := []models.RewardBalance{}
	for rows.Next() {
		var b models.RewardBalance
		if err := rows.Scan(&b.UserID, &b.VendorID, &b.Points); err != nil {
			return nil, fmt.Errorf("failed to scan reward balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reward balances: %w", err)
	}
	return balances, nil
}

// ListEntries returns the history of one balance, oldest first.
func (db *DB) ListEntries(ctx context.Context, userID, vendorID int64) ([]models.RewardEntry, error) {
	rows, err := db.q.QueryContext(ctx, `SELECT id, user_id, vendor_id, kind, delta, deal_id, created_at
		FROM reward_entries
		WHERE user_id = ? AND vendor_id = ?
		ORDER BY created_at, rowid`, userID, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward entries: %w", err)
	}
	defer rows.Close()

	entries := []models.RewardEntry{}
	for rows.Next() {
		var (
			e         models.RewardEntry
			dealID    sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.VendorID, &e.Kind, &e.Delta, &dealID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan reward entry: %w", err)
		}
		if dealID.Valid {
			id := dealID.Int64
			e.DealID = &id
		}
		if e.CreatedAt, err = time.Parse(entryTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reward entries: %w", err)
	}
	return entries, nil
}
