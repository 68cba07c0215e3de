package service

import (
	"context"
	"errors"

	"vendor-rewards-api/internal/cache"
	"vendor-rewards-api/internal/features"
	"vendor-rewards-api/internal/models"
	"vendor-rewards-api/internal/validation"
)

// RecentVendors returns the newest vendors for the home page.
func (s *Service) RecentVendors(ctx context.Context) ([]models.Vendor, error) {
	var vendors []models.Vendor
	if s.cacheGet(ctx, cache.RecentVendorsKey(), &vendors) {
		return vendors, nil
	}

	vendors, err := s.db.ListVendors(ctx, RecentVendorCount)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cache.RecentVendorsKey(), vendors)
	return vendors, nil
}

// ListVendors returns all vendors, newest first.
func (s *Service) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	return s.db.ListVendors(ctx, 0)
}

// SearchVendors finds vendors whose name contains term.
func (s *Service) SearchVendors(ctx context.Context, term string) (models.SearchResponse, error) {
	term = validation.SanitizeString(term)
	if err := validation.ValidateSearchTerm(term); err != nil {
		return models.SearchResponse{}, err
	}

	results, err := s.db.SearchVendors(ctx, term)
	if err != nil {
		return models.SearchResponse{}, err
	}
	return models.SearchResponse{SearchTerm: term, Count: len(results), Data: results}, nil
}

// GetVendor returns a vendor with its full menu and deals.
func (s *Service) GetVendor(ctx context.Context, vendorID int64) (models.VendorDetails, error) {
	if err := validation.ValidateID(vendorID, "vendor_id"); err != nil {
		return models.VendorDetails{}, err
	}

	var details models.VendorDetails
	if s.cacheGet(ctx, cache.VendorKey(vendorID), &details) {
		return details, nil
	}

	vendor, err := s.db.GetVendor(ctx, vendorID)
	if err != nil {
		return models.VendorDetails{}, err
	}
	menu, err := s.db.ListMenuItems(ctx, vendorID)
	if err != nil {
		return models.VendorDetails{}, err
	}
	deals, err := s.db.ListDeals(ctx, vendorID)
	if err != nil {
		return models.VendorDetails{}, err
	}

	details = models.VendorDetails{Vendor: vendor, FullMenu: menu, Deals: deals}
	s.cacheSet(ctx, cache.VendorKey(vendorID), details)
	return details, nil
}

// CreateVendor lists a new vendor.
func (s *Service) CreateVendor(ctx context.Context, v models.Vendor) (models.Vendor, error) {
	v = sanitizeVendor(v)
	if err := validation.ValidateVendor(v); err != nil {
		return models.Vendor{}, err
	}

	created, err := s.db.CreateVendor(ctx, v)
	if err != nil {
		return models.Vendor{}, err
	}

	s.logger.Info("vendor created", "vendor_id", created.ID, "name", created.Name)
	s.vendorChanged(ctx, created.ID)
	return created, nil
}

// UpdateVendor replaces the editable fields of a vendor.
func (s *Service) UpdateVendor(ctx context.Context, v models.Vendor) (models.Vendor, error) {
	if err := validation.ValidateID(v.ID, "vendor_id"); err != nil {
		return models.Vendor{}, err
	}
	v = sanitizeVendor(v)
	if err := validation.ValidateVendor(v); err != nil {
		return models.Vendor{}, err
	}

	if err := s.db.UpdateVendor(ctx, v); err != nil {
		return models.Vendor{}, err
	}

	s.logger.Info("vendor updated", "vendor_id", v.ID)
	s.vendorChanged(ctx, v.ID)
	return v, nil
}

// DeleteVendor removes a vendor. Menu items, deals, favorites and reward
// balances go with it.
func (s *Service) DeleteVendor(ctx context.Context, vendorID int64) (models.Vendor, error) {
	if err := validation.ValidateID(vendorID, "vendor_id"); err != nil {
		return models.Vendor{}, err
	}

	vendor, err := s.db.GetVendor(ctx, vendorID)
	if err != nil {
		return models.Vendor{}, err
	}
	if err := s.db.DeleteVendor(ctx, vendorID); err != nil {
		return models.Vendor{}, err
	}

	s.logger.Info("vendor deleted", "vendor_id", vendorID)
	s.invalidateVendor(ctx, vendorID)
	s.events.PublishVendorDeleted(ctx, vendorID)
	return vendor, nil
}

// ListMenu returns a vendor's menu items.
func (s *Service) ListMenu(ctx context.Context, vendorID int64) ([]models.MenuItem, error) {
	if _, err := s.db.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.db.ListMenuItems(ctx, vendorID)
}

// AddMenuItem adds an item to a vendor's menu.
func (s *Service) AddMenuItem(ctx context.Context, m models.MenuItem) (models.MenuItem, error) {
	m.Item = validation.SanitizeString(m.Item)
	if err := validation.ValidateMenuItem(m); err != nil {
		return models.MenuItem{}, err
	}

	if _, err := s.db.GetVendor(ctx, m.VendorID); err != nil {
		return models.MenuItem{}, err
	}

	created, err := s.db.CreateMenuItem(ctx, m)
	if err != nil {
		return models.MenuItem{}, err
	}

	s.vendorChanged(ctx, m.VendorID)
	return created, nil
}

// RemoveMenuItem deletes an item from a vendor's menu.
func (s *Service) RemoveMenuItem(ctx context.Context, vendorID, itemID int64) error {
	if err := s.db.DeleteMenuItem(ctx, vendorID, itemID); err != nil {
		return err
	}
	s.vendorChanged(ctx, vendorID)
	return nil
}

// ListDeals returns the deals a vendor offers.
func (s *Service) ListDeals(ctx context.Context, vendorID int64) ([]models.Deal, error) {
	if _, err := s.db.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.db.ListDeals(ctx, vendorID)
}

// AddDeal adds a deal to a vendor.
func (s *Service) AddDeal(ctx context.Context, d models.Deal) (models.Deal, error) {
	d.Item = validation.SanitizeString(d.Item)
	if err := validation.ValidateDeal(d); err != nil {
		return models.Deal{}, err
	}

	if _, err := s.db.GetVendor(ctx, d.VendorID); err != nil {
		return models.Deal{}, err
	}

	created, err := s.db.CreateDeal(ctx, d)
	if err != nil {
		return models.Deal{}, err
	}

	s.vendorChanged(ctx, d.VendorID)
	return created, nil
}

// RemoveDeal deletes a deal from a vendor.
func (s *Service) RemoveDeal(ctx context.Context, vendorID, dealID int64) error {
	if err := s.db.DeleteDeal(ctx, vendorID, dealID); err != nil {
		return err
	}
	s.vendorChanged(ctx, vendorID)
	return nil
}

func sanitizeVendor(v models.Vendor) models.Vendor {
	v.Name = validation.SanitizeString(v.Name)
	v.Menu = validation.SanitizeString(v.Menu)
	v.Category = validation.SanitizeString(v.Category)
	v.Cuisine = validation.SanitizeString(v.Cuisine)
	v.Location = validation.SanitizeString(v.Location)
	return v
}

func (s *Service) vendorChanged(ctx context.Context, vendorID int64) {
	s.invalidateVendor(ctx, vendorID)
	s.events.PublishVendorChanged(ctx, vendorID)
}

// invalidateVendor drops cached pages showing the vendor. It runs whether
// or not caching is enabled so re-enabling never serves stale entries.
func (s *Service) invalidateVendor(ctx context.Context, vendorID int64) {
	if err := s.cache.Delete(ctx, cache.VendorKey(vendorID), cache.RecentVendorsKey()); err != nil {
		s.logger.Warn("failed to invalidate vendor cache", "vendor_id", vendorID, "error", err)
	}
}

func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	if !s.flags.IsEnabled(features.FeatureCacheEnabled) {
		return false
	}
	err := cache.GetJSON(ctx, s.cache, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrNotFound) {
		s.logger.Warn("cache read failed", "key", key, "error", err)
	}
	return false
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if !s.flags.IsEnabled(features.FeatureCacheEnabled) {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
