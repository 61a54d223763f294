package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/escrowbook/internal/domain"
	"github.com/efreitasn/escrowbook/internal/engine"
	"github.com/efreitasn/escrowbook/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderHandler handles HTTP requests for order book endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// initBookRequest is the JSON request body for POST /books.
type initBookRequest struct {
	Admin string `json:"admin"`
	Vault string `json:"vault"`
}

// placeOrderRequest is the JSON request body for POST /books/{book}/orders.
type placeOrderRequest struct {
	Owner       string `json:"owner"`
	Facilitator string `json:"facilitator,omitempty"`
	Price       uint64 `json:"price"`
	Quantity    uint64 `json:"quantity"`
	Side        string `json:"side"`
}

// fillOrderRequest is the JSON request body for
// POST /books/{book}/orders/{order_id}/fills.
type fillOrderRequest struct {
	Facilitator  string `json:"facilitator"`
	Taker        string `json:"taker"`
	FillQuantity uint64 `json:"fill_quantity"`
}

// orderResponse is a single order in JSON responses.
type orderResponse struct {
	OrderID           uint64  `json:"order_id"`
	Book              string  `json:"book"`
	Owner             string  `json:"owner"`
	Price             uint64  `json:"price"`
	Quantity          uint64  `json:"quantity"`
	FilledQuantity    uint64  `json:"filled_quantity"`
	RemainingQuantity uint64  `json:"remaining_quantity"`
	Side              string  `json:"side"`
	Status            string  `json:"status"`
	CreatedAt         string  `json:"created_at"`
	CancelledAt       *string `json:"cancelled_at"`
}

// priceLevelResponse is an aggregated level in the depth response.
type priceLevelResponse struct {
	Price         uint64 `json:"price"`
	TotalQuantity uint64 `json:"total_quantity"`
	OrderCount    int    `json:"order_count"`
}

// depthResponse is the JSON response for GET /books/{book}/depth.
type depthResponse struct {
	Bids []priceLevelResponse `json:"bids"`
	Asks []priceLevelResponse `json:"asks"`
}

// InitializeBook handles POST /books.
func (h *OrderHandler) InitializeBook(w http.ResponseWriter, r *http.Request) {
	var req initBookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.orderSvc.InitializeBook(req.Admin, req.Vault); err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"book": req.Admin})
}

// PlaceOrder handles POST /books/{book}/orders.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	book := chi.URLParam(r, "book")

	var req placeOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.orderSvc.PlaceOrder(service.PlaceOrderRequest{
		Book:        book,
		Owner:       req.Owner,
		Facilitator: req.Facilitator,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Side:        req.Side,
	})
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(order))
}

// GetOrder handles GET /books/{book}/orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	book := chi.URLParam(r, "book")
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.orderSvc.GetOrder(book, orderID)
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// CancelOrder handles DELETE /books/{book}/orders/{order_id}?caller=0x...
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	book := chi.URLParam(r, "book")
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	caller := r.URL.Query().Get("caller")
	if caller == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "caller query parameter is required")
		return
	}

	order, err := h.orderSvc.CancelOrder(caller, book, orderID)
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// FillOrder handles POST /books/{book}/orders/{order_id}/fills.
func (h *OrderHandler) FillOrder(w http.ResponseWriter, r *http.Request) {
	book := chi.URLParam(r, "book")
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req fillOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.orderSvc.FillOrder(req.Facilitator, book, orderID, req.Taker, req.FillQuantity)
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// ListOrders handles GET /books/{book}/orders?user=0x...
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	book := chi.URLParam(r, "book")

	user := r.URL.Query().Get("user")
	if user == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "user query parameter is required")
		return
	}

	orders, err := h.orderSvc.UserOrders(book, user)
	if err != nil {
		MapError(w, err)
		return
	}

	responses := make([]orderResponse, len(orders))
	for i, o := range orders {
		responses[i] = buildOrderResponse(o)
	}
	WriteJSON(w, http.StatusOK, map[string][]orderResponse{"orders": responses})
}

// Depth handles GET /books/{book}/depth?levels=N.
func (h *OrderHandler) Depth(w http.ResponseWriter, r *http.Request) {
	book := chi.URLParam(r, "book")

	levels := 10
	if raw := r.URL.Query().Get("levels"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, "validation_error", "levels query parameter must be a positive integer")
			return
		}
		levels = n
	}

	bids, asks, err := h.orderSvc.Depth(book, levels)
	if err != nil {
		MapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, depthResponse{
		Bids: buildLevelResponses(bids),
		Asks: buildLevelResponses(asks),
	})
}

// parseOrderID extracts the order_id URL param, writing a 400 on
// failure.
func parseOrderID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	orderID, err := strconv.ParseUint(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a non-negative integer")
		return 0, false
	}
	return orderID, true
}

// buildOrderResponse converts a domain order to its response form.
func buildOrderResponse(o *domain.Order) orderResponse {
	resp := orderResponse{
		OrderID:           o.OrderID,
		Book:              o.Book.String(),
		Owner:             o.Owner.String(),
		Price:             o.Price,
		Quantity:          o.Quantity,
		FilledQuantity:    o.FilledQuantity,
		RemainingQuantity: o.Remaining(),
		Side:              string(o.Side),
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if o.CancelledAt != nil {
		s := o.CancelledAt.UTC().Format("2006-01-02T15:04:05Z")
		resp.CancelledAt = &s
	}
	return resp
}

// buildLevelResponses converts engine price levels to response levels.
func buildLevelResponses(levels []engine.PriceLevel) []priceLevelResponse {
	result := make([]priceLevelResponse, len(levels))
	for i, l := range levels {
		result[i] = priceLevelResponse{
			Price:         l.Price,
			TotalQuantity: l.TotalQuantity,
			OrderCount:    l.OrderCount,
		}
	}
	return result
}
