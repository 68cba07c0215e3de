package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vendor-rewards-api/internal/models"
)

// GetUser returns the user with the given id and their favorite vendors.
func (q queries) GetUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := q.q.QueryRowContext(ctx, `SELECT id, username FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %d does not exist: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT vendor_id FROM favorites WHERE user_id = ? ORDER BY vendor_id`, id)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	u.Favorites = []int64{}
	for rows.Next() {
		var vendorID int64
		if err := rows.Scan(&vendorID); err != nil {
			return models.User{}, fmt.Errorf("failed to scan favorite: %w", err)
		}
		u.Favorites = append(u.Favorites, vendorID)
	}
	if err := rows.Err(); err != nil {
		return models.User{}, fmt.Errorf("error iterating favorites: %w", err)
	}

	return u, nil
}

// ListUsers returns id and username of every user.
func (db *DB) ListUsers(ctx context.Context) ([]models.UserOption, error) {
	rows, err := db.q.QueryContext(ctx, `SELECT id, username FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.UserOption{}
	for rows.Next() {
		var u models.UserOption
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// SearchUsers returns users whose username contains term, ignoring case.
func (db *DB) SearchUsers(ctx context.Context, term string) ([]models.SearchResult, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT id, username FROM users WHERE username LIKE ? ESCAPE '\' ORDER BY id`, likePattern(term))
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return scanSearchResults(rows)
}

// CreateUser inserts a user and their favorites in a single transaction.
func (db *DB) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO users (username) VALUES (?)`, u.Username)
		if err != nil {
			return translate(err, fmt.Sprintf("user %q", u.Username))
		}
		if u.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read user id: %w", err)
		}

		for _, vendorID := range u.Favorites {
			if err := addFavorite(ctx, tx, u.ID, vendorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	if u.Favorites == nil {
		u.Favorites = []int64{}
	}
	return u, nil
}

// DeleteUser removes a user together with their favorites and balances.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	res, err := db.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return requireAffected(res, fmt.Sprintf("user %d", id))
}

// AddFavorite marks a vendor as a user's favorite. Marking twice is a no-op.
func (db *DB) AddFavorite(ctx context.Context, userID, vendorID int64) error {
	return addFavorite(ctx, db.q, userID, vendorID)
}

// RemoveFavorite unmarks a favorite vendor.
func (db *DB) RemoveFavorite(ctx context.Context, userID, vendorID int64) error {
	res, err := db.q.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND vendor_id = ?`, userID, vendorID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("favorite vendor %d of user %d", vendorID, userID))
}

func addFavorite(ctx context.Context, q querier, userID, vendorID int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO favorites (user_id, vendor_id) VALUES (?, ?)
		ON CONFLICT(user_id, vendor_id) DO NOTHING`, userID, vendorID)
	if err != nil {
		return translate(err, fmt.Sprintf("favorite vendor %d", vendorID))
	}
	return nil
}
