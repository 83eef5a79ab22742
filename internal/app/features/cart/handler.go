// internal/app/features/cart/handler.go
package cart

import (
	"net/http"

	cartsvc "github.com/dalemusser/opshub/internal/app/cart"
	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/system/auth"
	"github.com/dalemusser/opshub/internal/app/system/timeouts"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the caller's cart.
type Handler struct {
	Cart   *cartsvc.Service
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(svc *cartsvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Cart: svc, ErrLog: errLog, Log: logger}
}

type cartResponse struct {
	models.Cart
	Total float64 `json:"total"`
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, what string, c models.Cart, err error) {
	if err != nil {
		h.ErrLog.Write(w, r, what, err)
		return
	}
	uierrors.JSON(w, http.StatusOK, cartResponse{Cart: c, Total: cartsvc.ComputeTotal(c)})
}

// ServeCart handles GET /cart.
func (h *Handler) ServeCart(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get cart")
	defer cancel()

	c, err := h.Cart.Get(ctx, p.UID)
	h.respond(w, r, "get cart", c, err)
}

// HandleAdd handles POST /cart/items. quantity defaults to 1; price and
// quantity may be sent as numbers or strings.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)

	var in cartsvc.Input
	if err := uierrors.Decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode cart item", err, "invalid request body")
		return
	}
	item := in.Item()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "add cart item")
	defer cancel()

	c, err := h.Cart.AddItem(ctx, p.UID, item, item.Quantity)
	h.respond(w, r, "add cart item", c, err)
}

// HandleIncrement handles POST /cart/items/{id}/increment.
func (h *Handler) HandleIncrement(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "increment cart item")
	defer cancel()

	c, err := h.Cart.Increment(ctx, p.UID, chi.URLParam(r, "id"))
	h.respond(w, r, "increment cart item", c, err)
}

// HandleDecrement handles POST /cart/items/{id}/decrement. Quantity never
// drops below 1.
func (h *Handler) HandleDecrement(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "decrement cart item")
	defer cancel()

	c, err := h.Cart.Decrement(ctx, p.UID, chi.URLParam(r, "id"))
	h.respond(w, r, "decrement cart item", c, err)
}

// HandleRemove handles DELETE /cart/items/{id}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "remove cart item")
	defer cancel()

	c, err := h.Cart.RemoveItem(ctx, p.UID, chi.URLParam(r, "id"))
	h.respond(w, r, "remove cart item", c, err)
}

// HandleClear handles DELETE /cart.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.CurrentProfile(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "clear cart")
	defer cancel()

	c, err := h.Cart.Clear(ctx, p.UID)
	h.respond(w, r, "clear cart", c, err)
}
