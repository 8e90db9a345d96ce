package service

import (
	"context"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
)

// OfferDetailInput содержит данные одного тарифа при создании оффера.
type OfferDetailInput struct {
	Title        string
	Revisions    int
	DeliveryDays int
	PriceCents   int64
	Features     []string
	Tier         model.Tier
}

// OfferInput содержит данные формы создания оффера.
type OfferInput struct {
	Title       string
	Image       string
	Description string
	Details     []OfferDetailInput
}

// OfferListParams задаёт фильтры, сортировку и страницу списка офферов.
type OfferListParams struct {
	CreatorSeq      *int64
	MinPriceCents   *int64
	MaxDeliveryDays *int
	Search          string
	Ordering        string
	Page            int
	PageSize        int
}

// OfferPage содержит одну страницу сводок офферов и общее число офферов.
type OfferPage struct {
	Count    int64
	Page     int
	PageSize int
	Offers   []model.OfferSummary
}

// CreateOffer создаёт оффер с ровно тремя тарифами трёх разных уровней.
// Офферы могут создавать только бизнес-аккаунты; тарифы всегда создаются
// заново и не разделяются между офферами.
func (s *Service) CreateOffer(ctx context.Context, requester *model.Account, in OfferInput) (*model.Offer, error) {
	if requester.Role != model.RoleBusiness {
		return nil, ErrPermissionDenied
	}
	if len(in.Details) != 3 {
		return nil, ErrDetailCount
	}

	seen := make(map[model.Tier]bool, 3)
	details := make([]model.OfferDetail, 0, 3)
	for _, d := range in.Details {
		if !model.ValidTier(d.Tier) {
			return nil, ErrInvalidTier
		}
		if seen[d.Tier] {
			return nil, ErrDuplicateTier
		}
		seen[d.Tier] = true

		if err := validateDetailValues(d.Revisions, d.DeliveryDays, d.PriceCents); err != nil {
			return nil, err
		}

		details = append(details, model.OfferDetail{
			Title:        d.Title,
			Revisions:    d.Revisions,
			DeliveryDays: d.DeliveryDays,
			PriceCents:   d.PriceCents,
			Features:     d.Features,
			Tier:         d.Tier,
		})
	}

	offer := &model.Offer{
		AccountID:   requester.ID,
		OwnerSeq:    requester.RoleSeq,
		Title:       in.Title,
		Image:       in.Image,
		Description: in.Description,
		Details:     details,
	}

	return s.repo.CreateOffer(ctx, offer)
}

func validateDetailValues(revisions, deliveryDays int, priceCents int64) error {
	if revisions < 0 || deliveryDays <= 0 || priceCents < 0 {
		return ErrInvalidDetail
	}
	return nil
}

// ListOffers возвращает страницу сводок офферов.
// Страницы нумеруются с единицы; запрос страницы за пределами выборки — ошибка.
func (s *Service) ListOffers(ctx context.Context, p OfferListParams) (*OfferPage, error) {
	if p.Page < 1 {
		return nil, ErrPageRange
	}

	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	var ordering repository.OfferOrdering
	switch p.Ordering {
	case string(repository.OfferOrderingUpdatedAt):
		ordering = repository.OfferOrderingUpdatedAt
	case string(repository.OfferOrderingMinPrice):
		ordering = repository.OfferOrderingMinPrice
	default:
		ordering = repository.OfferOrderingDefault
	}

	offers, total, err := s.repo.ListOffers(ctx, repository.OfferFilter{
		CreatorSeq:      p.CreatorSeq,
		MinPriceCents:   p.MinPriceCents,
		MaxDeliveryDays: p.MaxDeliveryDays,
		Search:          p.Search,
		Ordering:        ordering,
		Limit:           pageSize,
		Offset:          (p.Page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}

	if len(offers) == 0 && p.Page > 1 {
		return nil, ErrPageRange
	}

	return &OfferPage{Count: total, Page: p.Page, PageSize: pageSize, Offers: offers}, nil
}

// GetOffer возвращает оффер со сводными значениями по его тарифам.
func (s *Service) GetOffer(ctx context.Context, id int64) (*model.OfferSummary, error) {
	return s.repo.GetOfferSummary(ctx, id)
}

// GetOfferDetail возвращает один тариф по идентификатору.
func (s *Service) GetOfferDetail(ctx context.Context, id int64) (*model.OfferDetail, error) {
	return s.repo.GetOfferDetail(ctx, id)
}

// UpdateOffer применяет частичное обновление оффера. Обновлять оффер может
// только его владелец; тарифы сливаются по значению tier.
func (s *Service) UpdateOffer(ctx context.Context, requester *model.Account, id int64, patch model.OfferPatch) (*model.Offer, error) {
	offer, err := s.repo.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if offer.AccountID != requester.ID {
		return nil, ErrPermissionDenied
	}

	seen := make(map[model.Tier]bool, len(patch.Details))
	for _, dp := range patch.Details {
		if !model.ValidTier(dp.Tier) {
			return nil, ErrInvalidTier
		}
		if seen[dp.Tier] {
			return nil, ErrDuplicateTier
		}
		seen[dp.Tier] = true

		if dp.Revisions != nil && *dp.Revisions < 0 {
			return nil, ErrInvalidDetail
		}
		if dp.DeliveryDays != nil && *dp.DeliveryDays <= 0 {
			return nil, ErrInvalidDetail
		}
		if dp.PriceCents != nil && *dp.PriceCents < 0 {
			return nil, ErrInvalidDetail
		}
	}

	return s.repo.UpdateOffer(ctx, id, patch)
}

// DeleteOffer удаляет оффер. Удалять оффер может только его владелец.
func (s *Service) DeleteOffer(ctx context.Context, requester *model.Account, id int64) error {
	offer, err := s.repo.GetOffer(ctx, id)
	if err != nil {
		return err
	}
	if offer.AccountID != requester.ID {
		return ErrPermissionDenied
	}

	return s.repo.DeleteOffer(ctx, id)
}
