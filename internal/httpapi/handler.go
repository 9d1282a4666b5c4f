package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nikolayk812/cart-service/internal/domain"
)

const maxBodyBytes = 1 << 16

type CartService interface {
	GetCart(ctx context.Context, owner domain.Identity) (domain.PricedCart, error)
	AddToCart(ctx context.Context, owner domain.Identity, productID uuid.UUID, quantity int) (domain.PricedCart, error)
	UpdateQuantity(ctx context.Context, owner domain.Identity, itemID uuid.UUID, quantity int) (domain.PricedCart, error)
	RemoveItem(ctx context.Context, owner domain.Identity, itemID uuid.UUID) (domain.PricedCart, error)
	Clear(ctx context.Context, owner domain.Identity) error
	MergeCarts(ctx context.Context, session, user domain.Identity) (domain.PricedCart, error)
	Checkout(ctx context.Context, owner domain.Identity) (domain.PricedCart, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc    CartService
	health HealthChecker
	log    *slog.Logger
}

func NewHandler(svc CartService, health HealthChecker, log *slog.Logger) *Handler {
	return &Handler{svc: svc, health: health, log: log}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.log.WarnContext(r.Context(), "health check failed", slog.Any("err", err))
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Service: serviceName})
			return
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: serviceName})
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.GetCart(r.Context(), h.identity(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	productID, err := uuid.Parse(strings.TrimSpace(req.ProductID))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %q", domain.ErrProductNotFound, req.ProductID))
		return
	}

	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	cart, err := h.svc.AddToCart(r.Context(), h.identity(r), productID, quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %q", domain.ErrItemNotFound, chi.URLParam(r, "itemId")))
		return
	}

	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	cart, err := h.svc.UpdateQuantity(r.Context(), h.identity(r), itemID, quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

// RemoveItem answers with the current cart even when the item does not exist.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner := h.identity(r)

	var (
		cart domain.PricedCart
		err  error
	)

	itemID, parseErr := uuid.Parse(chi.URLParam(r, "itemId"))
	if parseErr != nil {
		cart, err = h.svc.GetCart(r.Context(), owner)
	} else {
		cart, err = h.svc.RemoveItem(r.Context(), owner, itemID)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context(), h.identity(r)); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MergeCarts needs both the session and the freshly authenticated user.
func (h *Handler) MergeCarts(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	sessionID := strings.TrimSpace(r.Header.Get(HeaderSessionID))
	if userID == "" || sessionID == "" {
		h.writeError(w, r, fmt.Errorf("%w: %s and %s are required", domain.ErrInvalidIdentity, HeaderUserID, HeaderSessionID))
		return
	}

	cart, err := h.svc.MergeCarts(r.Context(), domain.SessionIdentity(sessionID), domain.UserIdentity(userID))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.Checkout(r.Context(), h.identity(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{Status: "checked_out", Cart: toCartResponse(cart)})
}

func (h *Handler) identity(r *http.Request) domain.Identity {
	identity, _ := IdentityFromContext(r.Context())
	return identity
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}

	return nil
}

func parseQuantity(n json.Number) (int, error) {
	quantity, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidQuantity, n.String())
	}

	return quantity, nil
}
