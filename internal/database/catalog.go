package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vendor-rewards-api/internal/models"
)

// GetMenuItem returns the menu item with the given id.
func (q queries) GetMenuItem(ctx context.Context, id int64) (models.MenuItem, error) {
	var m models.MenuItem
	err := q.q.QueryRowContext(ctx,
		`SELECT id, vendor_id, item, price FROM menu_items WHERE id = ?`, id,
	).Scan(&m.ID, &m.VendorID, &m.Item, &m.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MenuItem{}, fmt.Errorf("menu item %d does not exist: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("failed to get menu item %d: %w", id, err)
	}
	return m, nil
}

// GetDeal returns the deal with the given id.
func (q queries) GetDeal(ctx context.Context, id int64) (models.Deal, error) {
	var d models.Deal
	err := q.q.QueryRowContext(ctx,
		`SELECT id, vendor_id, item, price, points_required FROM deals WHERE id = ?`, id,
	).Scan(&d.ID, &d.VendorID, &d.Item, &d.Price, &d.PointsRequired)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Deal{}, fmt.Errorf("deal %d does not exist: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Deal{}, fmt.Errorf("failed to get deal %d: %w", id, err)
	}
	return d, nil
}

// ListMenuItems returns a vendor's menu in insertion order.
func (db *DB) ListMenuItems(ctx context.Context, vendorID int64) ([]models.MenuItem, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT id, vendor_id, item, price FROM menu_items WHERE vendor_id = ? ORDER BY id`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var m models.MenuItem
		if err := rows.Scan(&m.ID, &m.VendorID, &m.Item, &m.Price); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating menu items: %w", err)
	}
	return items, nil
}

// CreateMenuItem adds an item to a vendor's menu.
func (db *DB) CreateMenuItem(ctx context.Context, m models.MenuItem) (models.MenuItem, error) {
	res, err := db.q.ExecContext(ctx,
		`INSERT INTO menu_items (vendor_id, item, price) VALUES (?, ?, ?)`,
		m.VendorID, m.Item, m.Price)
	if err != nil {
		return models.MenuItem{}, translate(err, "menu item")
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return models.MenuItem{}, fmt.Errorf("failed to read menu item id: %w", err)
	}
	return m, nil
}

// DeleteMenuItem removes an item from a vendor's menu.
func (db *DB) DeleteMenuItem(ctx context.Context, vendorID, itemID int64) error {
	res, err := db.q.ExecContext(ctx,
		`DELETE FROM menu_items WHERE id = ? AND vendor_id = ?`, itemID, vendorID)
	if err != nil {
		return fmt.Errorf("failed to delete menu item %d: %w", itemID, err)
	}
	return requireAffected(res, fmt.Sprintf("menu item %d", itemID))
}

// ListDeals returns a vendor's deals in insertion order.
func (db *DB) ListDeals(ctx context.Context, vendorID int64) ([]models.Deal, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT id, vendor_id, item, price, points_required FROM deals WHERE vendor_id = ? ORDER BY id`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		var d models.Deal
		if err := rows.Scan(&d.ID, &d.VendorID, &d.Item, &d.Price, &d.PointsRequired); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deals: %w", err)
	}
	return deals, nil
}

// CreateDeal adds a deal to a vendor.
func (db *DB) CreateDeal(ctx context.Context, d models.Deal) (models.Deal, error) {
	res, err := db.q.ExecContext(ctx,
		`INSERT INTO deals (vendor_id, item, price, points_required) VALUES (?, ?, ?, ?)`,
		d.VendorID, d.Item, d.Price, d.PointsRequired)
	if err != nil {
		return models.Deal{}, translate(err, "deal")
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return models.Deal{}, fmt.Errorf("failed to read deal id: %w", err)
	}
	return d, nil
}

// DeleteDeal removes a deal from a vendor.
func (db *DB) DeleteDeal(ctx context.Context, vendorID, dealID int64) error {
	res, err := db.q.ExecContext(ctx,
		`DELETE FROM deals WHERE id = ? AND vendor_id = ?`, dealID, vendorID)
	if err != nil {
		return fmt.Errorf("failed to delete deal %d: %w", dealID, err)
	}
	return requireAffected(res, fmt.Sprintf("deal %d", dealID))
}
