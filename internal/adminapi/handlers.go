package adminapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/golubka/foodbot/internal/menu"
	"github.com/golubka/foodbot/internal/orders"
	"github.com/golubka/foodbot/internal/pricing"
)

const defaultListLimit = 20

type StatsDTO struct {
	Users       int64            `json:"users"`
	TotalOrders int64            `json:"total_orders"`
	NewOrders   int64            `json:"new_orders"`
	Revenue     float64          `json:"revenue"`
	ByStatus    map[string]int64 `json:"by_status"`
}

// GET /admin/stats
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.orders.Stats(r.Context())
	if err != nil {
		respondInternal(w, "loading stats", err)
		return
	}
	userCount, err := s.users.Count(r.Context())
	if err != nil {
		respondInternal(w, "counting users", err)
		return
	}

	byStatus := make(map[string]int64, len(stats.ByStatus))
	for status, n := range stats.ByStatus {
		byStatus[string(status)] = n
	}
	respondJSON(w, http.StatusOK, StatsDTO{
		Users:       userCount,
		TotalOrders: stats.TotalOrders,
		NewOrders:   stats.NewOrders,
		Revenue:     stats.Revenue,
		ByStatus:    byStatus,
	})
}

type OrderDTO struct {
	ID            int64          `json:"id"`
	UserID        int64          `json:"user_id"`
	UserName      string         `json:"user_name"`
	Items         []pricing.Line `json:"items"`
	Subtotal      int64          `json:"subtotal"`
	Discount      float64        `json:"discount"`
	DeliveryFee   int64          `json:"delivery_fee"`
	Total         float64        `json:"total"`
	Address       string         `json:"address"`
	TimeSlot      string         `json:"time_slot"`
	PaymentMethod string         `json:"payment_method"`
	Status        string         `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}

func convertOrder(o *orders.Order) OrderDTO {
	items := o.Items
	if items == nil {
		items = make([]pricing.Line, 0)
	}
	return OrderDTO{
		ID:            o.ID,
		UserID:        o.UserID,
		UserName:      o.UserName,
		Items:         items,
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		DeliveryFee:   o.DeliveryFee,
		Total:         o.Total,
		Address:       o.Address,
		TimeSlot:      o.TimeSlot,
		PaymentMethod: o.PaymentMethod,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
	}
}

// GET /admin/orders?limit=
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	list, err := s.orders.ListRecent(r.Context(), limit)
	if err != nil {
		respondInternal(w, "listing orders", err)
		return
	}

	dtos := make([]OrderDTO, 0, len(list))
	for _, o := range list {
		dtos = append(dtos, convertOrder(o))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// GET /admin/orders/{order_id}
func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	o, err := s.orders.GetOrderByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		respondInternal(w, "loading order", err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(o))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// PATCH /admin/orders/{order_id}/status
func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	err := s.orders.UpdateStatus(r.Context(), id, orders.OrderStatus(req.Status))
	switch {
	case errors.Is(err, orders.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status")
	case errors.Is(err, orders.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "order not found")
	case err != nil:
		respondInternal(w, "updating order status", err)
	default:
		respondJSON(w, http.StatusOK, map[string]string{"status": req.Status})
	}
}

type broadcastRequest struct {
	Text string `json:"text"`
}

type broadcastResponse struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// POST /admin/broadcast
func (s *Server) broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	ids, err := s.users.AllIDs(r.Context())
	if err != nil {
		respondInternal(w, "loading broadcast audience", err)
		return
	}

	var resp broadcastResponse
	for _, userID := range ids {
		if err := s.conv.SendText(r.Context(), userID, req.Text); err != nil {
			log.Printf("broadcast to user %d: %v", userID, err)
			resp.Failed++
		} else {
			resp.Sent++
		}
		time.Sleep(s.cfg.BroadcastDelay)
	}
	respondJSON(w, http.StatusOK, resp)
}

type addDishRequest struct {
	CategoryID  int64  `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Ingredients string `json:"ingredients"`
	Price       int64  `json:"price"`
}

// POST /admin/dishes
func (s *Server) addDish(w http.ResponseWriter, r *http.Request) {
	var req addDishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Name == "" || req.CategoryID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "name and category_id are required")
		return
	}
	if req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must be positive")
		return
	}

	d := &menu.Dish{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Ingredients: req.Ingredients,
		Price:       req.Price,
		Available:   true,
	}
	id, err := s.menu.AddDish(r.Context(), d)
	if err != nil {
		respondInternal(w, "adding dish", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// PATCH /admin/dishes/{dish_id}/availability
func (s *Server) toggleDish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "dish_id")
	if !ok {
		return
	}

	available, err := s.menu.ToggleAvailability(r.Context(), id)
	if err != nil {
		if errors.Is(err, menu.ErrDishNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "dish not found")
			return
		}
		respondInternal(w, "toggling dish", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func respondInternal(w http.ResponseWriter, op string, err error) {
	log.Printf("%s: %v", op, err)
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
