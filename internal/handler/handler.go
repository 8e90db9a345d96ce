// Package handler содержит HTTP-обработчики API сервиса маркетплейса.
package handler

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-system/internal/middleware"
	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterAccount(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)

	GetProfile(ctx context.Context, accountID int64) (*model.Profile, error)
	ListProfiles(ctx context.Context, role model.Role) ([]model.Profile, error)
	UpdateProfile(ctx context.Context, requester *model.Account, accountID int64, patch model.ProfilePatch) (*model.Profile, error)

	CreateOffer(ctx context.Context, requester *model.Account, in service.OfferInput) (*model.Offer, error)
	ListOffers(ctx context.Context, p service.OfferListParams) (*service.OfferPage, error)
	GetOffer(ctx context.Context, id int64) (*model.OfferSummary, error)
	GetOfferDetail(ctx context.Context, id int64) (*model.OfferDetail, error)
	UpdateOffer(ctx context.Context, requester *model.Account, id int64, patch model.OfferPatch) (*model.Offer, error)
	DeleteOffer(ctx context.Context, requester *model.Account, id int64) error

	CreateOrder(ctx context.Context, requester *model.Account, offerDetailID int64) (*model.Order, error)
	ListOrders(ctx context.Context, requester *model.Account) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, requester *model.Account, id int64, status model.OrderStatus) (*model.Order, error)
	DeleteOrder(ctx context.Context, requester *model.Account, id int64) error
	CountOrders(ctx context.Context, businessSeq int64, status model.OrderStatus) (int64, error)

	CreateReview(ctx context.Context, requester *model.Account, businessSeq int64, rating int, description string) (*model.Review, error)
	ListReviews(ctx context.Context, p service.ReviewListParams) ([]model.Review, error)
	UpdateReview(ctx context.Context, requester *model.Account, id int64, rating *int, description *string) (*model.Review, error)
	DeleteReview(ctx context.Context, requester *model.Account, id int64) error

	GetBaseInfo(ctx context.Context) (*model.BaseInfo, error)
}

// Handler реализует HTTP-обработчики API сервиса маркетплейса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// writeDetail отправляет ошибку вида {"detail": "..."} — формат одиночных ошибок API.
func (h *Handler) writeDetail(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, map[string]string{"detail": detail})
}

// writeFieldErrors отправляет ошибки валидации, сгруппированные по полям запроса.
func (h *Handler) writeFieldErrors(w http.ResponseWriter, status int, fields map[string][]string) {
	h.writeJSON(w, status, fields)
}

// serverError логирует неожиданную ошибку и возвращает клиенту 500 без её текста.
func (h *Handler) serverError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	h.logger.Error(msg, append(fields, zap.Error(err))...)
	h.writeDetail(w, http.StatusInternalServerError, "Internal server error.")
}

func (h *Handler) requireAccount(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	acc, ok := middleware.GetAccountFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, false
	}
	return acc, true
}

// Цены передаются по сети в денежных единицах, хранятся в копейках.
func priceToCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

func centsToPrice(cents int64) float64 {
	return float64(cents) / 100
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
