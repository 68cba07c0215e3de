package handler

import (
	"fmt"
	"net/http"

	"vendor-rewards-api/internal/models"
)

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, users)
}

// SearchUsers handles POST /users/search
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	term, ok := h.searchTerm(w, r)
	if !ok {
		return
	}

	res, err := h.service.SearchUsers(r.Context(), term)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.User
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.ID = 0

	user, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /users/{user_id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.idParam(w, r, "user_id")
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /users/{user_id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.idParam(w, r, "user_id")
	if !ok {
		return
	}

	user, err := h.service.DeleteUser(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, fmt.Sprintf("User %s was successfully deleted!", user.Username))
}

// AddFavorite handles PUT /users/{user_id}/favorites/{vendor_id}
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.idParam(w, r, "user_id")
	if !ok {
		return
	}
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	if err := h.service.AddFavorite(r.Context(), userID, vendorID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "Vendor added to favorites")
}

// RemoveFavorite handles DELETE /users/{user_id}/favorites/{vendor_id}
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.idParam(w, r, "user_id")
	if !ok {
		return
	}
	vendorID, ok := h.idParam(w, r, "vendor_id")
	if !ok {
		return
	}

	if err := h.service.RemoveFavorite(r.Context(), userID, vendorID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondMessage(w, http.StatusOK, "Vendor removed from favorites")
}
