package service

import (
	"context"

	"vendor-rewards-api/internal/models"
	"vendor-rewards-api/internal/validation"
)

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context) ([]models.UserOption, error) {
	return s.db.ListUsers(ctx)
}

// SearchUsers finds users whose username contains term.
func (s *Service) SearchUsers(ctx context.Context, term string) (models.SearchResponse, error) {
	term = validation.SanitizeString(term)
	if err := validation.ValidateSearchTerm(term); err != nil {
		return models.SearchResponse{}, err
	}

	results, err := s.db.SearchUsers(ctx, term)
	if err != nil {
		return models.SearchResponse{}, err
	}
	return models.SearchResponse{SearchTerm: term, Count: len(results), Data: results}, nil
}

// GetUser returns a user and their favorite vendors.
func (s *Service) GetUser(ctx context.Context, userID int64) (models.User, error) {
	if err := validation.ValidateID(userID, "user_id"); err != nil {
		return models.User{}, err
	}
	return s.db.GetUser(ctx, userID)
}

// CreateUser registers a user with optional favorite vendors.
func (s *Service) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.Username = validation.SanitizeString(u.Username)
	if err := validation.ValidateUser(u); err != nil {
		return models.User{}, err
	}

	created, err := s.db.CreateUser(ctx, u)
	if err != nil {
		return models.User{}, err
	}

	s.logger.Info("user created", "user_id", created.ID, "favorites", len(created.Favorites))
	return created, nil
}

// DeleteUser removes a user along with their favorites and balances.
func (s *Service) DeleteUser(ctx context.Context, userID int64) (models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if err := s.db.DeleteUser(ctx, userID); err != nil {
		return models.User{}, err
	}

	s.logger.Info("user deleted", "user_id", userID)
	return user, nil
}

// AddFavorite marks a vendor as one of the user's favorites.
func (s *Service) AddFavorite(ctx context.Context, userID, vendorID int64) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := validation.ValidateID(vendorID, "vendor_id"); err != nil {
		return err
	}
	return s.db.AddFavorite(ctx, userID, vendorID)
}

// RemoveFavorite unmarks a favorite vendor.
func (s *Service) RemoveFavorite(ctx context.Context, userID, vendorID int64) error {
	return s.db.RemoveFavorite(ctx, userID, vendorID)
}
