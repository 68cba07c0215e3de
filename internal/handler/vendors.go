package handler

import (
	"fmt"
	"net/http"

	"vendor-rewards-api/internal/models"
)

// Home handles GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.service.RecentVendors(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, vendors)
}

// ListVendors handles GET /vendors
func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.service.ListVendors(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, vendors)
}

// SearchVendors handles POST /vendors/search
func (h *Handler) SearchVendors(w http.ResponseWriter, r *http.Request) {
	term, ok := h.searchTerm(w, r)
	if !ok {
		return
	}

	res, err := h.service.SearchVendors(r.Context(), term)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// CreateVendor handles POST /vendors
func (h *Handler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req models.Vendor
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.ID = 0

	vendor, err := h.service.CreateVendor(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, vendor)
}

// GetVendor handles GET /vendors/{vendor_id}
func (h *Handler) GetVendor(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	details, err := h.service.GetVendor(r.Context(), vendorID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, details)
}

// UpdateVendor handles PUT /vendors/{vendor_id}
func (h *Handler) UpdateVendor(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	var req models.Vendor
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.ID = vendorID

	vendor, err := h.service.UpdateVendor(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, vendor)
}

// DeleteVendor handles DELETE /vendors/{vendor_id}
func (h *Handler) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	vendor, err := h.service.DeleteVendor(r.Context(), vendorID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, fmt.Sprintf("Vendor %s was successfully deleted!", vendor.Name))
}

// ListMenu handles GET /vendors/{vendor_id}/menu
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	menu, err := h.service.ListMenu(r.Context(), vendorID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, menu)
}

// AddMenuItem handles POST /vendors/{vendor_id}/menu
func (h *Handler) AddMenuItem(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	var req models.MenuItem
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.ID = 0
	req.VendorID = vendorID

	item, err := h.service.AddMenuItem(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, item)
}

// RemoveMenuItem handles DELETE /vendors/{vendor_id}/menu/{item_id}
func (h *Handler) RemoveMenuItem(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}
	itemID, ok := h.idParam(w, r, "item_id")
	if !ok {
		return
	}

	if err := h.service.RemoveMenuItem(r.Context(), vendorID, itemID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "Menu item removed")
}

// ListDeals handles GET /vendors/{vendor_id}/deals
func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	deals, err := h.service.ListDeals(r.Context(), vendorID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, deals)
}

// AddDeal handles POST /vendors/{vendor_id}/deals
func (h *Handler) AddDeal(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	var req models.Deal
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.ID = 0
	req.VendorID = vendorID

	deal, err := h.service.AddDeal(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, deal)
}

// RemoveDeal handles DELETE /vendors/{vendor_id}/deals/{deal_id}
func (h *Handler) RemoveDeal(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}
	dealID, ok := h.idParam(w, r, "deal_id")
	if !ok {
		return
	}

	if err := h.service.RemoveDeal(r.Context(), vendorID, dealID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "Deal removed")
}

// searchTerm reads search_term from a JSON or form body.
func (h *Handler) searchTerm(w http.ResponseWriter, r *http.Request) (string, bool) {
	if isForm(r) {
		if !h.parseForm(w, r) {
			return "", false
		}
		return r.PostForm.Get("search_term"), true
	}

	var req models.SearchRequest
	if !h.decodeJSON(w, r, &req) {
		return "", false
	}
	return req.SearchTerm, true
}
