package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nikolayk812/cart-service/internal/correlation"
	"github.com/nikolayk812/cart-service/internal/domain"
)

var errBadRequest = errors.New("malformed request")

type errorMapping struct {
	target error
	status int
	code   string
}

// checked in order; the first match wins
var errorMappings = []errorMapping{
	{errBadRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	{domain.ErrInvalidIdentity, http.StatusBadRequest, "INVALID_IDENTITY"},
	{domain.ErrInvalidQuantity, http.StatusUnprocessableEntity, "INVALID_QUANTITY"},
	{domain.ErrCurrencyMismatch, http.StatusUnprocessableEntity, "CURRENCY_MISMATCH"},
	{domain.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{domain.ErrItemNotFound, http.StatusNotFound, "ITEM_NOT_FOUND"},
	{domain.ErrOutOfStock, http.StatusConflict, "OUT_OF_STOCK"},
	{domain.ErrEmptyCart, http.StatusConflict, "EMPTY_CART"},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
	{domain.ErrOracleUnavailable, http.StatusServiceUnavailable, "ORACLE_UNAVAILABLE"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "TIMEOUT"},
}

const retryAfterSeconds = "1"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, code = m.status, m.code
			break
		}
	}

	resp := ErrorResponse{
		Error:         err.Error(),
		Code:          code,
		CorrelationID: correlation.FromContext(r.Context()),
	}

	var oos *domain.OutOfStockError
	if errors.As(err, &oos) {
		resp.Available = &oos.Available
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}

	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", slog.String("code", code), slog.Any("err", err))
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}

	writeJSON(w, status, resp)
}
