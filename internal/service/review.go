package service

import (
	"context"
	"math"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/validation"
)

// ReviewListParams задаёт фильтры и сортировку списка отзывов.
type ReviewListParams struct {
	BusinessSeq *int64
	ReviewerSeq *int64
	Ordering    string
}

// CreateReview создаёт отзыв о бизнес-аккаунте. Отзывы оставляют только
// заказчики, не более одного отзыва на каждый бизнес.
func (s *Service) CreateReview(ctx context.Context, requester *model.Account, businessSeq int64, rating int, description string) (*model.Review, error) {
	if requester.Role != model.RoleCustomer {
		return nil, ErrPermissionDenied
	}
	if !validation.IsValidRating(rating) {
		return nil, ErrInvalidRating
	}

	business, err := s.repo.GetAccountByRoleSeq(ctx, model.RoleBusiness, businessSeq)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ReviewExists(ctx, business.ID, requester.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrReviewExists
	}

	return s.repo.CreateReview(ctx, business.ID, requester.ID, rating, description)
}

// ListReviews возвращает отзывы, удовлетворяющие фильтру.
func (s *Service) ListReviews(ctx context.Context, p ReviewListParams) ([]model.Review, error) {
	var ordering repository.ReviewOrdering
	switch p.Ordering {
	case string(repository.ReviewOrderingRating):
		ordering = repository.ReviewOrderingRating
	default:
		ordering = repository.ReviewOrderingUpdatedAt
	}

	return s.repo.ListReviews(ctx, repository.ReviewFilter{
		BusinessSeq: p.BusinessSeq,
		ReviewerSeq: p.ReviewerSeq,
		Ordering:    ordering,
	})
}

// UpdateReview меняет оценку и текст отзыва. Операция доступна только автору.
func (s *Service) UpdateReview(ctx context.Context, requester *model.Account, id int64, rating *int, description *string) (*model.Review, error) {
	review, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.ReviewerID != requester.ID {
		return nil, ErrPermissionDenied
	}
	if rating != nil && !validation.IsValidRating(*rating) {
		return nil, ErrInvalidRating
	}

	return s.repo.UpdateReview(ctx, id, rating, description)
}

// DeleteReview удаляет отзыв. Операция доступна только автору.
func (s *Service) DeleteReview(ctx context.Context, requester *model.Account, id int64) error {
	review, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if review.ReviewerID != requester.ID {
		return ErrPermissionDenied
	}

	return s.repo.DeleteReview(ctx, id)
}

// GetBaseInfo возвращает агрегированные показатели платформы.
// Средняя оценка округляется до одного знака после запятой.
func (s *Service) GetBaseInfo(ctx context.Context) (*model.BaseInfo, error) {
	info, err := s.repo.GetBaseInfo(ctx)
	if err != nil {
		return nil, err
	}

	info.AverageRating = math.Round(info.AverageRating*10) / 10

	return info, nil
}
