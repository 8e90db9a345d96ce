package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

// GetBaseInfo возвращает агрегированные показатели платформы.
// Средняя оценка считается по всем отзывам и равна нулю при их отсутствии.
func (r *PostgresRepository) GetBaseInfo(ctx context.Context) (*model.BaseInfo, error) {
	var info model.BaseInfo

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews`,
	).Scan(&info.ReviewCount, &info.AverageRating)
	if err != nil {
		return nil, fmt.Errorf("aggregate reviews: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE role = $1`, string(model.RoleBusiness),
	).Scan(&info.BusinessProfileCount)
	if err != nil {
		return nil, fmt.Errorf("count business profiles: %w", err)
	}

	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM offers`).Scan(&info.OfferCount)
	if err != nil {
		return nil, fmt.Errorf("count offers: %w", err)
	}

	return &info, nil
}
