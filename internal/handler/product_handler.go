package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"myretail/internal/model"
	"myretail/internal/service"

	"github.com/rs/zerolog"
)

// maxBodyBytes limits the size of an update request body.
const maxBodyBytes = 1 << 20

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// GetByID handles GET /products/{productId} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product, h.logger)
}

// Update handles PUT /products/{productId} requests.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	var product model.Product
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&product); err != nil {
		h.logger.Debug().Err(err).Int("product_id", productID).Msg("failed to decode product body")
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	updated, err := h.service.UpdateProduct(r.Context(), productID, &product)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, updated, h.logger)
}

// productID parses the {productId} path value, writing a 400 response when it
// is not a positive integer.
func (h *ProductHandler) productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("productId")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidProductID,
			"product ID must be a positive integer: "+strconv.Quote(raw), h.logger)
		return 0, false
	}
	return id, true
}
