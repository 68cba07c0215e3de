package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vendor-rewards-api/internal/models"
)

const vendorColumns = `id, name, menu, cost, purchase_to_points, category, cuisine, location`

func scanVendor(row interface{ Scan(...any) error }) (models.Vendor, error) {
	var v models.Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Menu, &v.Cost, &v.PurchaseToPoints, &v.Category, &v.Cuisine, &v.Location)
	return v, err
}

// GetVendor returns the vendor with the given id.
func (q queries) GetVendor(ctx context.Context, id int64) (models.Vendor, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = ?`, id)
	v, err := scanVendor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vendor{}, fmt.Errorf("vendor %d does not exist: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Vendor{}, fmt.Errorf("failed to get vendor %d: %w", id, err)
	}
	return v, nil
}

// ListVendors returns vendors newest first. A limit of zero returns all.
func (db *DB) ListVendors(ctx context.Context, limit int) ([]models.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vendors: %w", err)
	}

	return vendors, nil
}

// SearchVendors returns vendors whose name contains term, ignoring case.
func (db *DB) SearchVendors(ctx context.Context, term string) ([]models.SearchResult, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT id, name FROM vendors WHERE name LIKE ? ESCAPE '\' ORDER BY id`, likePattern(term))
	if err != nil {
		return nil, fmt.Errorf("failed to search vendors: %w", err)
	}
	return scanSearchResults(rows)
}

// CreateVendor inserts a vendor and returns it with its id set.
func (db *DB) CreateVendor(ctx context.Context, v models.Vendor) (models.Vendor, error) {
	res, err := db.q.ExecContext(ctx, `INSERT INTO vendors (
		name, menu, cost, purchase_to_points, category, cuisine, location
	) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.Name, v.Menu, v.Cost, v.PurchaseToPoints, v.Category, v.Cuisine, v.Location)
	if err != nil {
		return models.Vendor{}, translate(err, "vendor")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Vendor{}, fmt.Errorf("failed to read vendor id: %w", err)
	}
	v.ID = id
	return v, nil
}

// UpdateVendor overwrites the editable vendor fields.
func (db *DB) UpdateVendor(ctx context.Context, v models.Vendor) error {
	res, err := db.q.ExecContext(ctx, `UPDATE vendors SET
		name = ?, menu = ?, cost = ?, purchase_to_points = ?,
		category = ?, cuisine = ?, location = ?, updated_at = ?
		WHERE id = ?`,
		v.Name, v.Menu, v.Cost, v.PurchaseToPoints, v.Category, v.Cuisine, v.Location,
		time.Now().UTC().Format(time.RFC3339), v.ID)
	if err != nil {
		return translate(err, "vendor")
	}
	return requireAffected(res, fmt.Sprintf("vendor %d", v.ID))
}

// DeleteVendor removes a vendor together with its menu, deals, favorites
// and reward balances.
func (db *DB) DeleteVendor(ctx context.Context, id int64) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM vendors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vendor %d: %w", id, err)
	}
	return requireAffected(res, fmt.Sprintf("vendor %d", id))
}

func scanSearchResults(rows *sql.Rows) ([]models.SearchResult, error) {
	defer rows.Close()

	results := []models.SearchResult{}
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}
	return results, nil
}
