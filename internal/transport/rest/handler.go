// Package rest provides HTTP handlers for inventory operations.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	inverrors "github.com/abgdnv/goinventory/internal/errors"
	"github.com/abgdnv/goinventory/internal/service"
	"github.com/abgdnv/goinventory/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of the inventory API with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the inventory service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.FindPage)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Put("/", h.Update)
			r.Delete("/", h.DeleteByID)
			r.Put("/increase-stock", h.IncreaseStock)
			r.Put("/decrease-stock", h.DecreaseStock)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// FindPage retrieves one page of products using keyset pagination.
func (h *Handler) FindPage(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	limit, ok := web.ParseValidateRange(r, w, mLogger, "limit", int64(service.DefaultLimit), 1, int64(service.MaxLimit))
	if !ok {
		return
	}
	order, ok := web.ParseValidateEnum(r, w, mLogger, "order", service.OrderAsc, service.OrderAsc, service.OrderDesc)
	if !ok {
		return
	}
	cursor := r.URL.Query().Get("cursor")

	mLogger.DebugContext(r.Context(), "Received request to list products", "limit", limit, "order", order, "cursor", cursor)
	page, err := h.service.FindPage(r.Context(), service.PageRequest{Limit: limit, Cursor: cursor, Order: order})
	if err != nil {
		if errors.Is(err, inverrors.ErrInvalidCursor) {
			mLogger.WarnContext(r.Context(), "Malformed pagination cursor", "cursor", cursor)
			web.RespondValidationError(w, mLogger, []web.FieldError{
				{Field: "cursor", Message: "must be a \"<epochMillis>,<id>\" pair returned by a previous page"},
			})
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product page", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product page",
		"count", len(page.Data), "has_next_page", page.Pagination.HasNextPage)
	web.RespondJSON(w, mLogger, http.StatusOK, page)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, id.String(), "retrieve")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product", "ID", found.ID, "Name", found.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var createDto service.ProductCreateDto
	if err := json.NewDecoder(r.Body).Decode(&createDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create product", "product", createDto)
	if !h.validateBody(w, r, mLogger, createDto, createDto.Price) {
		return
	}

	newProduct, err := h.service.Create(r.Context(), createDto)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "ID", newProduct.ID, "Name", newProduct.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, newProduct)
}

// Update applies a partial update to a product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var updateDto service.ProductUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&updateDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update product", "ID", id)
	if !h.validateBody(w, r, mLogger, updateDto, updateDto.Price) {
		return
	}

	updated, err := h.service.Update(r.Context(), id, updateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, id.String(), "update")
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// IncreaseStock raises a product's quantity by the requested amount (default 1).
func (h *Handler) IncreaseStock(w http.ResponseWriter, r *http.Request) {
	h.adjustStock(w, r, "increase")
}

// DecreaseStock lowers a product's quantity by the requested amount (default 1),
// clamped at zero: a decrease past the floor returns the unchanged product.
func (h *Handler) DecreaseStock(w http.ResponseWriter, r *http.Request) {
	h.adjustStock(w, r, "decrease")
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request, direction string) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	adjustDto, ok := h.decodeStockBody(w, r, mLogger)
	if !ok {
		return
	}
	amount := int32(1)
	if adjustDto.Amount != nil {
		amount = *adjustDto.Amount
	}

	mLogger.DebugContext(r.Context(), "Received request to adjust stock", "ID", id, "direction", direction, "amount", amount)
	var adjustment *service.StockAdjustment
	var err error
	if direction == "increase" {
		adjustment, err = h.service.IncreaseStock(r.Context(), id, amount)
	} else {
		adjustment, err = h.service.DecreaseStock(r.Context(), id, amount)
	}
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, id.String(), direction+" stock for")
		return
	}
	if !adjustment.Adjusted {
		mLogger.InfoContext(r.Context(), "Stock decrease rejected by zero floor, product unchanged",
			"ID", adjustment.Product.ID, "Quantity", adjustment.Product.Quantity, "amount", amount)
	} else {
		mLogger.InfoContext(r.Context(), "Stock adjusted successfully",
			"ID", adjustment.Product.ID, "Quantity", adjustment.Product.Quantity)
	}
	web.RespondJSON(w, mLogger, http.StatusOK, adjustment.Product)
}

// DeleteByID deletes a product by its ID and returns its last state.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to delete product", "ID", id)
	deleted, err := h.service.DeleteByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, id.String(), "delete")
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "ID", deleted.ID)
	web.RespondJSON(w, mLogger, http.StatusOK, deleted)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeStockBody decodes and validates a stock adjustment body. An empty body
// is allowed and means "amount": 1.
func (h *Handler) decodeStockBody(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (service.StockAdjustDto, bool) {
	var adjustDto service.StockAdjustDto
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&adjustDto); err != nil {
			mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
			return service.StockAdjustDto{}, false
		}
	}
	if !h.validateBody(w, r, mLogger, adjustDto, nil) {
		return service.StockAdjustDto{}, false
	}
	return adjustDto, true
}

// validateBody runs struct tag validation plus the monetary precision check on
// price (at most 2 decimal places) and responds with the field-level error
// list on failure.
func (h *Handler) validateBody(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, body any, price *float64) bool {
	var fieldErrors []web.FieldError
	if err := h.validate.Struct(body); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
			return false
		}
		for _, fieldErr := range validationErrors {
			// fieldErr.Tag() returns "required", "gte", etc.
			fieldErrors = append(fieldErrors, web.FieldError{
				Field:   fieldErr.Field(),
				Message: "failed on rule: " + fieldErr.Tag(),
			})
		}
	}
	if price != nil && !hasAtMostTwoDecimals(*price) {
		fieldErrors = append(fieldErrors, web.FieldError{
			Field:   "Price",
			Message: "must have at most 2 decimal places",
		})
	}
	if len(fieldErrors) > 0 {
		mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", fieldErrors)
		web.RespondValidationError(w, mLogger, fieldErrors)
		return false
	}
	return true
}

// respondServiceError maps service errors to HTTP responses: not-found is a
// normal 404 outcome, everything else is a 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, id, verb string) {
	if errors.Is(err, inverrors.ErrProductNotFound) {
		mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
		return
	}
	mLogger.ErrorContext(r.Context(), "Error handling product request", "ID", id, "error", err)
	web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to %s product with ID %s", verb, id))
}

func hasAtMostTwoDecimals(price float64) bool {
	cents := price * 100
	return math.Abs(cents-math.Round(cents)) < 1e-9
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
