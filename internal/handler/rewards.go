package handler

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"vendor-rewards-api/internal/models"
	"vendor-rewards-api/internal/service"
)

// PurchaseForm handles GET /vendors/{vendor_id}/purchase
func (h *Handler) PurchaseForm(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	form, err := h.service.PurchaseForm(r.Context(), vendorID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, form)
}

// Purchase handles POST /vendors/{vendor_id}/purchase
//
// Accepts JSON or an HTML form. Form submissions may name the user field
// "user" and the item list "itmes", as older purchase pages do.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	var req models.PurchaseRequest
	if isForm(r) {
		if !h.parseForm(w, r) {
			return
		}
		var err error
		if req, err = purchaseFromForm(r); err != nil {
			h.respondError(w, http.StatusBadRequest, service.MsgPurchaseFailed+" "+service.Message(err))
			return
		}
	} else if !h.decodeJSON(w, r, &req) {
		return
	}
	req.VendorID = vendorID

	res, err := h.service.Purchase(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// Redeem handles POST /vendors/{vendor_id}/redeem
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	var req models.RedemptionRequest
	if isForm(r) {
		if !h.parseForm(w, r) {
			return
		}
		var err error
		if req, err = redemptionFromForm(r); err != nil {
			h.respondError(w, http.StatusBadRequest, service.MsgRedemptionFailed+" "+service.Message(err))
			return
		}
	} else if !h.decodeJSON(w, r, &req) {
		return
	}
	req.VendorID = vendorID

	res, err := h.service.Redeem(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// ListRewards handles GET /users/{user_id}/rewards
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.idParam(w, r, "user_id")
	if !ok {
		return
	}

	balances, err := h.service.Balances(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, balances)
}

// ListRewardEntries handles GET /users/{user_id}/rewards/{vendor_id}/entries
func (h *Handler) ListRewardEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.idParam(w, r, "user_id")
	if !ok {
		return
	}
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	entries, err := h.service.Entries(r.Context(), userID, vendorID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, entries)
}

func purchaseFromForm(r *http.Request) (models.PurchaseRequest, error) {
	var req models.PurchaseRequest

	rawUser := firstValue(r, "user_id", "user")
	if rawUser != "" {
		id, err := parseID(rawUser, "user_id")
		if err != nil {
			return req, err
		}
		req.UserID = id
	}

	raw := append(append([]string{}, r.PostForm["items"]...), r.PostForm["itmes"]...)
	for i, v := range raw {
		id, err := parseID(v, fmt.Sprintf("items[%d]", i))
		if err != nil {
			return req, err
		}
		req.ItemIDs = append(req.ItemIDs, id)
	}
	return req, nil
}

func redemptionFromForm(r *http.Request) (models.RedemptionRequest, error) {
	req := models.RedemptionRequest{Mode: strings.TrimSpace(r.PostForm.Get("mode"))}

	if raw := firstValue(r, "user_id", "user"); raw != "" {
		id, err := parseID(raw, "user_id")
		if err != nil {
			return req, err
		}
		req.UserID = id
	}
	if raw := firstValue(r, "deal_id", "deal"); raw != "" {
		id, err := parseID(raw, "deal_id")
		if err != nil {
			return req, err
		}
		req.DealID = id
	}
	return req, nil
}

func firstValue(r *http.Request, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r.PostForm.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

// parseForm parses a form body within the size limit, answering 400 itself
// on failure.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(h.maxBodySize)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body is too large")
			return false
		}
		h.respondError(w, http.StatusBadRequest, "invalid form body")
		return false
	}
	return true
}
