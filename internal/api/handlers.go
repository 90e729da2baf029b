package api

import (
	"errors"
	"net/http"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/repository"
	"github.com/UnknownOlympus/hermes/internal/service"
	"github.com/gorilla/mux"
)

type deliveryCheckRequest struct {
	Items       []models.LineItem      `json:"items"`
	Address     models.DeliveryAddress `json:"address"`
	Coordinates *models.Coordinates    `json:"coordinates,omitempty"`
}

type statusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type restaurantResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Address     string             `json:"address"`
	Coordinates models.Coordinates `json:"coordinates"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error(), nil)
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		var rejected *service.RejectedError
		switch {
		case errors.As(err, &rejected):
			d := rejected.Decision
			writeError(w, rejectionStatus(d.Reason), string(d.Reason), d.Message, d)
		case errors.Is(err, service.ErrInvalidItem):
			writeError(w, http.StatusBadRequest, "Invalid order item", err.Error(), nil)
		default:
			h.log.ErrorContext(r.Context(), "Failed to place order", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error", "", nil)
		}
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) checkDelivery(w http.ResponseWriter, r *http.Request) {
	var req deliveryCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error(), nil)
		return
	}

	decision := h.gate.ValidateOrderDelivery(r.Context(), req.Items, req.Address, req.Coordinates)
	writeJSON(w, http.StatusOK, decision)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "Order not found", "", nil)
			return
		}
		h.log.ErrorContext(r.Context(), "Failed to get order", "order", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "", nil)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error(), nil)
		return
	}

	err := h.orders.UpdateOrderStatus(r.Context(), id, req.Status)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(req.Status)})
	case errors.Is(err, service.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Invalid order status", err.Error(), nil)
	case errors.Is(err, repository.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "Order not found", "", nil)
	default:
		h.log.ErrorContext(r.Context(), "Failed to update order status", "order", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "", nil)
	}
}

func (h *Handler) listRestaurants(w http.ResponseWriter, _ *http.Request) {
	restaurants := h.restaurants.Restaurants()
	out := make([]restaurantResponse, 0, len(restaurants))
	for _, rest := range restaurants {
		out = append(out, restaurantResponse{
			ID:          rest.ID,
			Name:        rest.Name,
			Address:     rest.Address,
			Coordinates: rest.Coordinates,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// rejectionStatus maps a refusal to an HTTP status: problems with the request itself are
// 400, a valid request that cannot be delivered is 422.
func rejectionStatus(reason service.Reason) int {
	switch reason {
	case service.ReasonOutOfRadius, service.ReasonUnverifiable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
