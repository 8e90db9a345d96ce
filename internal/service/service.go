// Package service реализует бизнес-логику сервиса маркетплейса.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
)

// ErrPasswordMismatch возвращается, если пароль и его подтверждение не совпадают.
var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrInvalidUserType возвращается при недопустимом типе аккаунта.
	ErrInvalidUserType = errors.New("invalid user type")
	// ErrInvalidEmail возвращается при некорректном адресе электронной почты.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPermissionDenied возвращается, когда операция запрещена для данного аккаунта.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDetailCount возвращается, если при создании оффера передано не три тарифа.
	ErrDetailCount = errors.New("exactly three offer details are required")
	// ErrInvalidTier возвращается при недопустимом значении тарифа.
	ErrInvalidTier = errors.New("invalid offer tier")
	// ErrDuplicateTier возвращается, если тарифы оффера содержат повторяющиеся значения.
	ErrDuplicateTier = errors.New("duplicate offer tier")
	// ErrInvalidDetail возвращается при недопустимых полях тарифа.
	ErrInvalidDetail = errors.New("invalid offer detail")
	// ErrInvalidStatus возвращается при недопустимом статусе заказа.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidRating возвращается, если оценка отзыва вне диапазона от 1 до 5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrPageRange возвращается при запросе страницы за пределами выборки.
	ErrPageRange = errors.New("page out of range")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateAccount(ctx context.Context, username, email string, passwordHash []byte, role model.Role) (*model.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	GetAccountByRoleSeq(ctx context.Context, role model.Role, seq int64) (*model.Account, error)
	TouchLastLogin(ctx context.Context, accountID int64) error
	GetOrCreateToken(ctx context.Context, accountID int64, newKey string) (string, error)
	GetAccountByToken(ctx context.Context, key string) (*model.Account, error)

	GetProfile(ctx context.Context, accountID int64) (*model.Profile, error)
	ListProfilesByRole(ctx context.Context, role model.Role) ([]model.Profile, error)
	UpdateProfile(ctx context.Context, accountID int64, patch model.ProfilePatch) (*model.Profile, error)

	CreateOffer(ctx context.Context, offer *model.Offer) (*model.Offer, error)
	GetOffer(ctx context.Context, id int64) (*model.Offer, error)
	GetOfferSummary(ctx context.Context, id int64) (*model.OfferSummary, error)
	ListOffers(ctx context.Context, f repository.OfferFilter) ([]model.OfferSummary, int64, error)
	UpdateOffer(ctx context.Context, id int64, patch model.OfferPatch) (*model.Offer, error)
	DeleteOffer(ctx context.Context, id int64) error
	GetOfferDetail(ctx context.Context, id int64) (*model.OfferDetail, error)

	CreateOrder(ctx context.Context, order *model.Order) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerSeq int64) ([]model.Order, error)
	ListOrdersByBusiness(ctx context.Context, businessSeq int64) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	CountOrdersByStatus(ctx context.Context, businessSeq int64, status model.OrderStatus) (int64, error)

	CreateReview(ctx context.Context, businessID, reviewerID int64, rating int, description string) (*model.Review, error)
	GetReview(ctx context.Context, id int64) (*model.Review, error)
	ReviewExists(ctx context.Context, businessID, reviewerID int64) (bool, error)
	ListReviews(ctx context.Context, f repository.ReviewFilter) ([]model.Review, error)
	UpdateReview(ctx context.Context, id int64, rating *int, description *string) (*model.Review, error)
	DeleteReview(ctx context.Context, id int64) error

	GetBaseInfo(ctx context.Context) (*model.BaseInfo, error)
}

// Service содержит бизнес-логику сервиса маркетплейса.
type Service struct {
	repo     Repository
	pageSize int
}

// NewService создаёт новый сервис с указанным репозиторием и размером страницы по умолчанию.
func NewService(repo Repository, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 6
	}
	return &Service{
		repo:     repo,
		pageSize: pageSize,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func newTokenKey() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
