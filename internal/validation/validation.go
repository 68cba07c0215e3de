package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"vendor-rewards-api/internal/models"
)

// Upper bounds that keep price * purchase_to_points * items inside int64.
const (
	MaxPrice            = 1_000_000
	MaxPurchaseToPoints = 1_000
	MaxItemsPerPurchase = 100
	MaxPointsRequired   = 1_000_000_000
	maxNameLength       = 100
	maxMenuLength       = 300
	maxLocationLength   = 200
	maxCuisineLength    = 120
	maxSearchTermLength = 100
)

var vendorCategories = map[string]bool{
	models.CategorySitDown:   true,
	models.CategoryCounter:   true,
	models.CategoryDriveThru: true,
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func ValidateVendor(v models.Vendor) error {
	if err := validateText(v.Name, "name", maxNameLength, true); err != nil {
		return err
	}

	if !vendorCategories[v.Category] {
		return &ValidationError{
			Field:   "category",
			Message: "must be one of Sit-down, Counter, Drive-thru",
		}
	}

	if err := validateText(v.Menu, "menu", maxMenuLength, false); err != nil {
		return err
	}

	if err := validateText(v.Cuisine, "cuisine", maxCuisineLength, false); err != nil {
		return err
	}

	if v.Location != "" {
		if err := validateURL(v.Location, "location"); err != nil {
			return err
		}
	}

	if v.Cost < 0 {
		return &ValidationError{
			Field:   "cost",
			Message: "must be non-negative",
		}
	}

	if v.PurchaseToPoints < 0 {
		return &ValidationError{
			Field:   "purchase_to_points",
			Message: "must be non-negative",
		}
	}

	if v.PurchaseToPoints > MaxPurchaseToPoints {
		return &ValidationError{
			Field:   "purchase_to_points",
			Message: fmt.Sprintf("cannot exceed %d", MaxPurchaseToPoints),
		}
	}

	return nil
}

func ValidateMenuItem(m models.MenuItem) error {
	if err := ValidateID(m.VendorID, "vendor_id"); err != nil {
		return err
	}

	if err := validateText(m.Item, "item", maxNameLength, true); err != nil {
		return err
	}

	return validatePrice(m.Price, "price")
}

func ValidateDeal(d models.Deal) error {
	if err := ValidateID(d.VendorID, "vendor_id"); err != nil {
		return err
	}

	if err := validateText(d.Item, "item", maxNameLength, true); err != nil {
		return err
	}

	if err := validatePrice(d.Price, "price"); err != nil {
		return err
	}

	if d.PointsRequired < 0 {
		return &ValidationError{
			Field:   "points_required",
			Message: "must be non-negative",
		}
	}

	if d.PointsRequired > MaxPointsRequired {
		return &ValidationError{
			Field:   "points_required",
			Message: "exceeds maximum allowed points",
		}
	}

	return nil
}

func ValidateUser(u models.User) error {
	if err := validateText(u.Username, "username", maxNameLength, true); err != nil {
		return err
	}

	seen := make(map[int64]bool)
	for i, vendorID := range u.Favorites {
		if err := ValidateID(vendorID, fmt.Sprintf("favorites[%d]", i)); err != nil {
			return err
		}
		if seen[vendorID] {
			return &ValidationError{
				Field:   "favorites",
				Message: fmt.Sprintf("duplicate vendor id: %d", vendorID),
			}
		}
		seen[vendorID] = true
	}

	return nil
}

func ValidatePurchase(p models.PurchaseRequest) error {
	if err := ValidateID(p.VendorID, "vendor_id"); err != nil {
		return err
	}

	if err := ValidateID(p.UserID, "user_id"); err != nil {
		return err
	}

	if len(p.ItemIDs) == 0 {
		return &ValidationError{
			Field:   "items",
			Message: "select at least one menu item",
		}
	}

	if len(p.ItemIDs) > MaxItemsPerPurchase {
		return &ValidationError{
			Field:   "items",
			Message: fmt.Sprintf("cannot contain more than %d items", MaxItemsPerPurchase),
		}
	}

	for i, id := range p.ItemIDs {
		if err := ValidateID(id, fmt.Sprintf("items[%d]", i)); err != nil {
			return err
		}
	}

	return nil
}

func ValidateRedemption(r models.RedemptionRequest) error {
	if err := ValidateID(r.VendorID, "vendor_id"); err != nil {
		return err
	}

	if err := ValidateID(r.UserID, "user_id"); err != nil {
		return err
	}

	return ValidateID(r.DealID, "deal_id")
}

func ValidateSearchTerm(term string) error {
	if utf8.RuneCountInString(term) > maxSearchTermLength {
		return &ValidationError{
			Field:   "search_term",
			Message: fmt.Sprintf("cannot exceed %d characters", maxSearchTermLength),
		}
	}
	return nil
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

func ValidateID(id int64, fieldName string) error {
	if id <= 0 {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be a positive id",
		}
	}
	return nil
}

func validateText(s, fieldName string, maxLen int, required bool) error {
	if required && s == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	if utf8.RuneCountInString(s) > maxLen {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("cannot exceed %d characters", maxLen),
		}
	}

	return nil
}

func validatePrice(price int64, fieldName string) error {
	if price < 0 {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be non-negative",
		}
	}

	if price > MaxPrice {
		return &ValidationError{
			Field:   fieldName,
			Message: "exceeds maximum allowed price",
		}
	}

	return nil
}

func validateURL(raw, fieldName string) error {
	if utf8.RuneCountInString(raw) > maxLocationLength {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("cannot exceed %d characters", maxLocationLength),
		}
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be a valid http(s) URL",
		}
	}

	return nil
}
