package models

import "time"

// Vendor categories accepted by the vendor form.
const (
	CategorySitDown   = "Sit-down"
	CategoryCounter   = "Counter"
	CategoryDriveThru = "Drive-thru"
)

// RedemptionModePoints is the only redemption mode with defined behavior.
const RedemptionModePoints = "points"

// Vendor represents a food vendor taking part in the rewards program.
type Vendor struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Menu             string `json:"menu,omitempty"` // free-text menu blurb
	Cost             int64  `json:"cost"`
	PurchaseToPoints int64  `json:"purchase_to_points"` // points per unit of price
	Category         string `json:"category"`
	Cuisine          string `json:"cuisine,omitempty"`
	Location         string `json:"location,omitempty"` // URL
}

// MenuItem is a priced item on a vendor's menu.
type MenuItem struct {
	ID       int64  `json:"id"`
	VendorID int64  `json:"vendor_id"`
	Item     string `json:"item"`
	Price    int64  `json:"price"`
}

// Deal is a vendor offer that can be redeemed with points.
type Deal struct {
	ID             int64  `json:"id"`
	VendorID       int64  `json:"vendor_id"`
	Item           string `json:"item"`
	Price          int64  `json:"price"`
	PointsRequired int64  `json:"points_required"`
}

// User is a rewards program member.
type User struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Favorites []int64 `json:"favorites"` // vendor ids
}

// RewardBalance holds the points a user has accumulated with one vendor.
type RewardBalance struct {
	UserID   int64 `json:"user_id"`
	VendorID int64 `json:"vendor_id"`
	Points   int64 `json:"points"`
}

// Reward entry kinds.
const (
	EntryAccrual    = "accrual"
	EntryRedemption = "redemption"
)

// RewardEntry records one change to a reward balance.
type RewardEntry struct {
	ID        string    `json:"id"` // uuid
	UserID    int64     `json:"user_id"`
	VendorID  int64     `json:"vendor_id"`
	Kind      string    `json:"kind"`
	Delta     int64     `json:"delta"` // signed
	DealID    *int64    `json:"deal_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// VendorDetails is a vendor together with its menu and deals.
type VendorDetails struct {
	Vendor
	FullMenu []MenuItem `json:"full_menu"`
	Deals    []Deal     `json:"deals"`
}

// PurchaseRequest is the body of a purchase submission.
type PurchaseRequest struct {
	VendorID int64   `json:"vendor_id"`
	UserID   int64   `json:"user_id"`
	ItemIDs  []int64 `json:"items"`
}

// RedemptionRequest is the body of a redemption submission.
type RedemptionRequest struct {
	VendorID int64  `json:"vendor_id"`
	UserID   int64  `json:"user_id"`
	DealID   int64  `json:"deal_id"`
	Mode     string `json:"mode"`
}

// PurchaseResponse reports the outcome of a purchase.
type PurchaseResponse struct {
	Message string        `json:"message"`
	Earned  int64         `json:"earned"`
	Created bool          `json:"created"` // balance opened by this purchase
	Balance RewardBalance `json:"balance"`
}

// RedemptionResponse reports the outcome of a redemption.
type RedemptionResponse struct {
	Message string        `json:"message"`
	Applied bool          `json:"applied"`
	Spent   int64         `json:"spent"`
	Balance RewardBalance `json:"balance"`
}

// PurchaseFormData is what the purchase page needs to render.
type PurchaseFormData struct {
	VendorID int64        `json:"vendor_id"`
	Users    []UserOption `json:"users"`
	Menu     []MenuItem   `json:"menu"`
}

// UserOption is a selectable user on the purchase page.
type UserOption struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// SearchResult is a single search hit.
type SearchResult struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SearchResponse is the response payload for vendor and user searches.
type SearchResponse struct {
	SearchTerm string         `json:"search_term"`
	Count      int            `json:"count"`
	Data       []SearchResult `json:"data"`
}

// SearchRequest is the body of a search submission.
type SearchRequest struct {
	SearchTerm string `json:"search_term"`
}

// MessageResponse carries a flash message back to the client.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
