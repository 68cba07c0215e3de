package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vendor-rewards-api/internal/database"
	"vendor-rewards-api/internal/ledger"
	"vendor-rewards-api/internal/models"
	"vendor-rewards-api/internal/service"
	"vendor-rewards-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
	logger      *slog.Logger
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
	Logger      *slog.Logger
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultHandlerOptions().MaxBodySize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
		logger:      opts.Logger,
	}
}

// Routes registers every API route on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/health", h.HealthCheck)

	r.Route("/vendors", func(r chi.Router) {
		r.Get("/", h.ListVendors)
		r.Post("/", h.CreateVendor)
		r.Post("/search", h.SearchVendors)

		r.Route("/{vendor_id}", func(r chi.Router) {
			r.Get("/", h.GetVendor)
			r.Put("/", h.UpdateVendor)
			r.Delete("/", h.DeleteVendor)

			r.Get("/menu", h.ListMenu)
			r.Post("/menu", h.AddMenuItem)
			r.Delete("/menu/{item_id}", h.RemoveMenuItem)

			r.Get("/deals", h.ListDeals)
			r.Post("/deals", h.AddDeal)
			r.Delete("/deals/{deal_id}", h.RemoveDeal)

			r.Get("/purchase", h.PurchaseForm)
			r.Post("/purchase", h.Purchase)
			r.Post("/redeem", h.Redeem)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Post("/search", h.SearchUsers)

		r.Route("/{user_id}", func(r chi.Router) {
			r.Get("/", h.GetUser)
			r.Delete("/", h.DeleteUser)
			r.Put("/favorites/{vendor_id}", h.AddFavorite)
			r.Delete("/favorites/{vendor_id}", h.RemoveFavorite)
			r.Get("/rewards", h.ListRewards)
			r.Get("/rewards/{vendor_id}/entries", h.ListRewardEntries)
		})
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a JSON body into dest, answering 400 itself on failure.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			h.respondError(w, http.StatusBadRequest, "request body is required")
		case errors.As(err, &maxErr):
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body is too large")
		default:
			h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		}
		return false
	}
	return true
}

// idParam parses a positive integer URL parameter, answering 400 itself on
// failure.
func (h *Handler) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := parseID(chi.URLParam(r, name), name)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, service.Message(err))
		return 0, false
	}
	return id, true
}

func parseID(raw, field string) (int64, error) {
	raw = validation.SanitizeString(raw)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &validation.ValidationError{Field: field, Message: "must be an integer id"}
	}
	if err := validation.ValidateID(id, field); err != nil {
		return 0, err
	}
	return id, nil
}

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
	var vErr *validation.ValidationError
	switch {
	case errors.As(err, &vErr), errors.Is(err, ledger.ErrEmptyPurchase):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientPoints), errors.Is(err, database.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrUnsupportedMode):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError answers with the status and user-facing message for err.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.respondError(w, status, service.Message(err))
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}

// respondMessage sends a flash message.
func (h *Handler) respondMessage(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.MessageResponse{Message: message})
}
