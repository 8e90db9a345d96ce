package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

// ReviewOrdering задаёт способ сортировки списка отзывов.
type ReviewOrdering string

const (
	// ReviewOrderingUpdatedAt сортирует по убыванию времени обновления.
	ReviewOrderingUpdatedAt ReviewOrdering = "updated_at"
	// ReviewOrderingRating сортирует по убыванию оценки.
	ReviewOrderingRating ReviewOrdering = "rating"
)

// ReviewFilter задаёт условия выборки отзывов.
type ReviewFilter struct {
	BusinessSeq *int64
	ReviewerSeq *int64
	Ordering    ReviewOrdering
}

const reviewQuery = `
	SELECT r.id, r.business_id, r.reviewer_id, b.role_seq, c.role_seq,
	       r.rating, r.description, r.created_at, r.updated_at
	FROM reviews r
	JOIN accounts b ON b.id = r.business_id
	JOIN accounts c ON c.id = r.reviewer_id`

func scanReview(row pgx.Row) (*model.Review, error) {
	var rev model.Review
	err := row.Scan(&rev.ID, &rev.BusinessID, &rev.ReviewerID, &rev.BusinessSeq, &rev.ReviewerSeq,
		&rev.Rating, &rev.Description, &rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return &rev, nil
}

// CreateReview создаёт отзыв. Пара (бизнес, рецензент) уникальна.
func (r *PostgresRepository) CreateReview(ctx context.Context, businessID, reviewerID int64, rating int, description string) (*model.Review, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reviews (business_id, reviewer_id, rating, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		businessID, reviewerID, rating, description,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrReviewExists
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}

	return r.GetReview(ctx, id)
}

// GetReview возвращает отзыв по идентификатору.
func (r *PostgresRepository) GetReview(ctx context.Context, id int64) (*model.Review, error) {
	row := r.pool.QueryRow(ctx, reviewQuery+` WHERE r.id = $1`, id)
	return scanReview(row)
}

// ReviewExists сообщает, оставлял ли рецензент отзыв указанному бизнесу.
func (r *PostgresRepository) ReviewExists(ctx context.Context, businessID, reviewerID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE business_id = $1 AND reviewer_id = $2)`,
		businessID, reviewerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check review exists: %w", err)
	}
	return exists, nil
}

// ListReviews возвращает отзывы, удовлетворяющие фильтру.
func (r *PostgresRepository) ListReviews(ctx context.Context, f ReviewFilter) ([]model.Review, error) {
	query := reviewQuery
	var args []any

	if f.BusinessSeq != nil {
		args = append(args, *f.BusinessSeq)
		query += fmt.Sprintf("\n\tWHERE b.role_seq = $%d", len(args))
	}
	if f.ReviewerSeq != nil {
		args = append(args, *f.ReviewerSeq)
		if len(args) == 1 {
			query += fmt.Sprintf("\n\tWHERE c.role_seq = $%d", len(args))
		} else {
			query += fmt.Sprintf(" AND c.role_seq = $%d", len(args))
		}
	}

	switch f.Ordering {
	case ReviewOrderingRating:
		query += "\n\tORDER BY r.rating DESC, r.id"
	default:
		query += "\n\tORDER BY r.updated_at DESC"
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	var res []model.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateReview меняет оценку и текст отзыва; остальные поля неизменяемы.
func (r *PostgresRepository) UpdateReview(ctx context.Context, id int64, rating *int, description *string) (*model.Review, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reviews SET
		    rating      = COALESCE($2, rating),
		    description = COALESCE($3, description),
		    updated_at  = now()
		 WHERE id = $1`,
		id, rating, description,
	)
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrReviewNotFound
	}

	return r.GetReview(ctx, id)
}

// DeleteReview удаляет отзыв.
func (r *PostgresRepository) DeleteReview(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReviewNotFound
	}
	return nil
}
