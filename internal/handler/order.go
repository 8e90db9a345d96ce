package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/service"
)

type orderResponse struct {
	ID           int64    `json:"id"`
	CustomerUser int64    `json:"customer_user"`
	BusinessUser int64    `json:"business_user"`
	Title        string   `json:"title"`
	Revisions    int      `json:"revisions"`
	DeliveryDays int      `json:"delivery_time_in_days"`
	Price        float64  `json:"price"`
	Features     []string `json:"features"`
	OfferType    string   `json:"offer_type"`
	Status       string   `json:"status"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

func toOrderResponse(o *model.Order) orderResponse {
	features := o.Features
	if features == nil {
		features = []string{}
	}
	return orderResponse{
		ID:           o.ID,
		CustomerUser: o.CustomerSeq,
		BusinessUser: o.BusinessSeq,
		Title:        o.Title,
		Revisions:    o.Revisions,
		DeliveryDays: o.DeliveryDays,
		Price:        centsToPrice(o.PriceCents),
		Features:     features,
		OfferType:    string(o.Tier),
		Status:       string(o.Status),
		CreatedAt:    formatTime(o.CreatedAt),
		UpdatedAt:    formatTime(o.UpdatedAt),
	}
}

// ListOrders возвращает заказы, относящиеся к текущему аккаунту:
// для заказчика — сделанные им, для бизнес-аккаунта — полученные.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), acc)
	if err != nil {
		h.serverError(w, "list orders error", err, zap.Int64("accountID", acc.ID))
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type orderCreateRequest struct {
	OfferDetailID int64 `json:"offer_detail_id"`
}

// CreateOrder создаёт заказ по тарифу оффера. Доступен только заказчикам;
// поля тарифа копируются в заказ и дальнейшие правки оффера его не меняют.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	var req orderCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), acc, req.OfferDetailID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			h.writeDetail(w, http.StatusForbidden, "Only customer users are allowed to place orders.")
		case errors.Is(err, repository.ErrOfferDetailNotFound):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"offer_detail_id": {"An offer detail with this ID does not exist."},
			})
		default:
			h.serverError(w, "create order error", err, zap.Int64("accountID", acc.ID))
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

type orderPatchRequest struct {
	Status string `json:"status"`
}

// UpdateOrder меняет статус заказа. Менять статус может только
// бизнес-аккаунт, которому адресован заказ.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusNotFound, "Order not found.")
		return
	}

	var req orderPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), acc, id, model.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"status": {"Status must be one of 'in_progress', 'completed' or 'cancelled'."},
			})
		case errors.Is(err, repository.ErrOrderNotFound):
			h.writeDetail(w, http.StatusNotFound, "Order not found.")
		case errors.Is(err, service.ErrPermissionDenied):
			h.writeDetail(w, http.StatusForbidden, "Only the business user of this order can update its status.")
		default:
			h.serverError(w, "update order error", err, zap.Int64("orderID", id))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// DeleteOrder удаляет заказ. Доступно только аккаунтам персонала.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusNotFound, "Order not found.")
		return
	}

	if err := h.service.DeleteOrder(r.Context(), acc, id); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			h.writeDetail(w, http.StatusForbidden, "Only staff users are allowed to delete orders.")
		case errors.Is(err, repository.ErrOrderNotFound):
			h.writeDetail(w, http.StatusNotFound, "Order not found.")
		default:
			h.serverError(w, "delete order error", err, zap.Int64("orderID", id))
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) orderCount(w http.ResponseWriter, r *http.Request, status model.OrderStatus, key string) {
	if _, ok := h.requireAccount(w, r); !ok {
		return
	}

	businessSeq, err := strconv.ParseInt(chi.URLParam(r, "business_id"), 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusNotFound, "A business user with this ID does not exist.")
		return
	}

	count, err := h.service.CountOrders(r.Context(), businessSeq, status)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			h.writeDetail(w, http.StatusNotFound, "A business user with this ID does not exist.")
			return
		}
		h.serverError(w, "order count error", err, zap.Int64("businessSeq", businessSeq))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{key: count})
}

// OrderCount возвращает число заказов бизнес-аккаунта в работе.
func (h *Handler) OrderCount(w http.ResponseWriter, r *http.Request) {
	h.orderCount(w, r, model.OrderStatusInProgress, "order_count")
}

// CompletedOrderCount возвращает число завершённых заказов бизнес-аккаунта.
func (h *Handler) CompletedOrderCount(w http.ResponseWriter, r *http.Request) {
	h.orderCount(w, r, model.OrderStatusCompleted, "completed_order_count")
}
