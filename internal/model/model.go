// Package model содержит доменные сущности сервиса маркетплейса.
package model

import "time"

// Role определяет тип аккаунта пользователя.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleBusiness Role = "business"
)

// ValidRole проверяет, что значение роли входит в допустимый набор.
func ValidRole(r Role) bool {
	return r == RoleCustomer || r == RoleBusiness
}

// Tier определяет вариант тарифа в составе оффера.
type Tier string

const (
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// ValidTier проверяет, что значение тарифа входит в допустимый набор.
func ValidTier(t Tier) bool {
	return t == TierBasic || t == TierStandard || t == TierPremium
}

// OrderStatus описывает статус выполнения заказа.
type OrderStatus string

const (
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ValidOrderStatus проверяет, что значение статуса входит в допустимый набор.
func ValidOrderStatus(s OrderStatus) bool {
	return s == OrderStatusInProgress || s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Account представляет зарегистрированного пользователя маркетплейса.
// RoleSeq — публичный порядковый номер внутри роли, назначается один раз при создании.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash []byte
	FirstName    string
	LastName     string
	Role         Role
	RoleSeq      int64
	IsStaff      bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// Profile описывает профиль пользователя, создаётся вместе с аккаунтом.
type Profile struct {
	Account      Account
	Description  string
	File         string
	Location     string
	Tel          string
	WorkingHours string
	UploadedAt   time.Time
}

// ProfilePatch описывает частичное обновление профиля.
// Нулевые указатели означают, что поле не меняется.
type ProfilePatch struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Description  *string
	File         *string
	Location     *string
	Tel          *string
	WorkingHours *string
}

// OfferDetail описывает один тариф оффера. Цена хранится в копейках.
type OfferDetail struct {
	ID           int64
	OfferID      int64
	Title        string
	Revisions    int
	DeliveryDays int
	PriceCents   int64
	Features     []string
	Tier         Tier
}

// Offer описывает услугу бизнес-аккаунта с тремя тарифами.
type Offer struct {
	ID          int64
	AccountID   int64
	OwnerSeq    int64
	Title       string
	Image       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Details     []OfferDetail
}

// OfferSummary содержит оффер со сводными значениями по его тарифам.
type OfferSummary struct {
	ID              int64
	OwnerSeq        int64
	OwnerUsername   string
	OwnerFirstName  string
	OwnerLastName   string
	Title           string
	Image           string
	Description     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DetailIDs       []int64
	MinPriceCents   int64
	MinDeliveryDays int
}

// OfferDetailPatch описывает частичное обновление одного тарифа.
// Tier обязателен: по нему выбирается существующий тариф оффера.
type OfferDetailPatch struct {
	Tier         Tier
	Title        *string
	Revisions    *int
	DeliveryDays *int
	PriceCents   *int64
	Features     *[]string
}

// OfferPatch описывает частичное обновление оффера.
type OfferPatch struct {
	Title       *string
	Image       *string
	Description *string
	Details     []OfferDetailPatch
}

// Order описывает заказ — снимок выбранного тарифа на момент оформления.
// Стороны заказа идентифицируются публичными номерами ролей.
type Order struct {
	ID           int64
	CustomerSeq  int64
	BusinessSeq  int64
	Title        string
	Revisions    int
	DeliveryDays int
	PriceCents   int64
	Features     []string
	Tier         Tier
	Status       OrderStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Review описывает отзыв заказчика о бизнес-аккаунте.
// Внутренние идентификаторы аккаунтов нужны для проверки авторства.
type Review struct {
	ID          int64
	BusinessID  int64
	ReviewerID  int64
	BusinessSeq int64
	ReviewerSeq int64
	Rating      int
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BaseInfo содержит агрегированные показатели платформы.
type BaseInfo struct {
	ReviewCount          int64
	AverageRating        float64
	BusinessProfileCount int64
	OfferCount           int64
}
