package service

import (
	"context"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

// CreateOrder оформляет заказ по выбранному тарифу оффера. Поля тарифа
// копируются в заказ на момент оформления; последующие изменения оффера
// на заказ не влияют. Заказы могут оформлять только заказчики.
func (s *Service) CreateOrder(ctx context.Context, requester *model.Account, offerDetailID int64) (*model.Order, error) {
	if requester.Role != model.RoleCustomer {
		return nil, ErrPermissionDenied
	}

	detail, err := s.repo.GetOfferDetail(ctx, offerDetailID)
	if err != nil {
		return nil, err
	}

	offer, err := s.repo.GetOffer(ctx, detail.OfferID)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		CustomerSeq:  requester.RoleSeq,
		BusinessSeq:  offer.OwnerSeq,
		Title:        detail.Title,
		Revisions:    detail.Revisions,
		DeliveryDays: detail.DeliveryDays,
		PriceCents:   detail.PriceCents,
		Features:     detail.Features,
		Tier:         detail.Tier,
		Status:       model.OrderStatusInProgress,
	}

	return s.repo.CreateOrder(ctx, order)
}

// ListOrders возвращает заказы, в которых запрашивающий является стороной.
func (s *Service) ListOrders(ctx context.Context, requester *model.Account) ([]model.Order, error) {
	if requester.Role == model.RoleBusiness {
		return s.repo.ListOrdersByBusiness(ctx, requester.RoleSeq)
	}
	return s.repo.ListOrdersByCustomer(ctx, requester.RoleSeq)
}

// UpdateOrderStatus меняет статус заказа. Менять статус может только
// бизнес-сторона заказа; остальные поля после создания неизменяемы.
func (s *Service) UpdateOrderStatus(ctx context.Context, requester *model.Account, id int64, status model.OrderStatus) (*model.Order, error) {
	if !model.ValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if requester.Role != model.RoleBusiness || requester.RoleSeq != order.BusinessSeq {
		return nil, ErrPermissionDenied
	}

	return s.repo.UpdateOrderStatus(ctx, id, status)
}

// DeleteOrder удаляет заказ. Операция доступна только служебным аккаунтам.
func (s *Service) DeleteOrder(ctx context.Context, requester *model.Account, id int64) error {
	if !requester.IsStaff {
		return ErrPermissionDenied
	}
	return s.repo.DeleteOrder(ctx, id)
}

// CountOrders возвращает число заказов бизнеса в указанном статусе.
// Бизнес ищется по публичному порядковому номеру.
func (s *Service) CountOrders(ctx context.Context, businessSeq int64, status model.OrderStatus) (int64, error) {
	if _, err := s.repo.GetAccountByRoleSeq(ctx, model.RoleBusiness, businessSeq); err != nil {
		return 0, err
	}
	return s.repo.CountOrdersByStatus(ctx, businessSeq, status)
}
