package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

// OfferOrdering задаёт способ сортировки списка офферов.
type OfferOrdering string

const (
	// OfferOrderingDefault сортирует по убыванию времени обновления.
	OfferOrderingDefault OfferOrdering = ""
	// OfferOrderingUpdatedAt сортирует по возрастанию времени обновления.
	OfferOrderingUpdatedAt OfferOrdering = "updated_at"
	// OfferOrderingMinPrice сортирует по возрастанию минимальной цены тарифа.
	OfferOrderingMinPrice OfferOrdering = "min_price"
)

// OfferFilter задаёт условия выборки офферов.
// MinPriceCents оставляет офферы, у которых есть тариф с ценой не ниже указанной,
// MaxDeliveryDays — офферы с тарифом, доставляемым не дольше указанного срока.
type OfferFilter struct {
	CreatorSeq      *int64
	MinPriceCents   *int64
	MaxDeliveryDays *int
	Search          string
	Ordering        OfferOrdering
	Limit           int
	Offset          int
}

// CreateOffer создаёт оффер вместе со всеми его тарифами в одной транзакции.
func (r *PostgresRepository) CreateOffer(ctx context.Context, offer *model.Offer) (*model.Offer, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO offers (account_id, title, image, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		offer.AccountID, offer.Title, offer.Image, offer.Description,
	).Scan(&offer.ID, &offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert offer: %w", err)
	}

	for i := range offer.Details {
		d := &offer.Details[i]
		d.OfferID = offer.ID
		if d.Features == nil {
			d.Features = []string{}
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO offer_details (offer_id, title, revisions, delivery_days, price_cents, features, tier)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			d.OfferID, d.Title, d.Revisions, d.DeliveryDays, d.PriceCents, d.Features, string(d.Tier),
		).Scan(&d.ID)
		if err != nil {
			return nil, fmt.Errorf("insert offer detail: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return offer, nil
}

// GetOffer возвращает оффер со всеми его тарифами.
func (r *PostgresRepository) GetOffer(ctx context.Context, id int64) (*model.Offer, error) {
	var o model.Offer
	err := r.pool.QueryRow(ctx,
		`SELECT o.id, o.account_id, a.role_seq, o.title, o.image, o.description, o.created_at, o.updated_at
		 FROM offers o
		 JOIN accounts a ON a.id = o.account_id
		 WHERE o.id = $1`, id,
	).Scan(&o.ID, &o.AccountID, &o.OwnerSeq, &o.Title, &o.Image, &o.Description, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("select offer: %w", err)
	}

	details, err := r.listOfferDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Details = details

	return &o, nil
}

func (r *PostgresRepository) listOfferDetails(ctx context.Context, offerID int64) ([]model.OfferDetail, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, offer_id, title, revisions, delivery_days, price_cents, features, tier
		 FROM offer_details
		 WHERE offer_id = $1
		 ORDER BY id`, offerID)
	if err != nil {
		return nil, fmt.Errorf("select offer details: %w", err)
	}
	defer rows.Close()

	var details []model.OfferDetail
	for rows.Next() {
		var d model.OfferDetail
		if err := rows.Scan(&d.ID, &d.OfferID, &d.Title, &d.Revisions, &d.DeliveryDays,
			&d.PriceCents, &d.Features, &d.Tier); err != nil {
			return nil, fmt.Errorf("scan offer detail: %w", err)
		}
		details = append(details, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return details, nil
}

// GetOfferSummary возвращает оффер со сводными значениями по его тарифам.
func (r *PostgresRepository) GetOfferSummary(ctx context.Context, id int64) (*model.OfferSummary, error) {
	var s model.OfferSummary
	err := r.pool.QueryRow(ctx,
		`SELECT o.id, a.role_seq, a.username, a.first_name, a.last_name,
		        o.title, o.image, o.description, o.created_at, o.updated_at,
		        array_agg(d.id ORDER BY d.id),
		        MIN(d.price_cents), MIN(d.delivery_days)
		 FROM offers o
		 JOIN accounts a ON a.id = o.account_id
		 JOIN offer_details d ON d.offer_id = o.id
		 WHERE o.id = $1
		 GROUP BY o.id, a.id`, id,
	).Scan(&s.ID, &s.OwnerSeq, &s.OwnerUsername, &s.OwnerFirstName, &s.OwnerLastName,
		&s.Title, &s.Image, &s.Description, &s.CreatedAt, &s.UpdatedAt,
		&s.DetailIDs, &s.MinPriceCents, &s.MinDeliveryDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("select offer summary: %w", err)
	}

	return &s, nil
}

// ListOffers возвращает страницу сводок офферов и общее число офферов,
// удовлетворяющих фильтру.
func (r *PostgresRepository) ListOffers(ctx context.Context, f OfferFilter) ([]model.OfferSummary, int64, error) {
	var (
		where  []string
		having []string
		args   []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.CreatorSeq != nil {
		where = append(where, "a.role_seq = "+arg(*f.CreatorSeq))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(o.title ILIKE "+p+" OR o.description ILIKE "+p+")")
	}
	if f.MinPriceCents != nil {
		having = append(having, "MAX(d.price_cents) >= "+arg(*f.MinPriceCents))
	}
	if f.MaxDeliveryDays != nil {
		having = append(having, "MIN(d.delivery_days) <= "+arg(*f.MaxDeliveryDays))
	}

	query := `
		SELECT o.id, a.role_seq, a.username, a.first_name, a.last_name,
		       o.title, o.image, o.description, o.created_at, o.updated_at,
		       array_agg(d.id ORDER BY d.id),
		       MIN(d.price_cents), MIN(d.delivery_days),
		       COUNT(*) OVER ()
		FROM offers o
		JOIN accounts a ON a.id = o.account_id
		JOIN offer_details d ON d.offer_id = o.id`

	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tGROUP BY o.id, a.id"
	if len(having) > 0 {
		query += "\n\t\tHAVING " + strings.Join(having, " AND ")
	}

	switch f.Ordering {
	case OfferOrderingUpdatedAt:
		query += "\n\t\tORDER BY o.updated_at"
	case OfferOrderingMinPrice:
		query += "\n\t\tORDER BY MIN(d.price_cents), o.id"
	default:
		query += "\n\t\tORDER BY o.updated_at DESC"
	}

	query += "\n\t\tLIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select offers: %w", err)
	}
	defer rows.Close()

	var (
		res   []model.OfferSummary
		total int64
	)
	for rows.Next() {
		var s model.OfferSummary
		if err := rows.Scan(&s.ID, &s.OwnerSeq, &s.OwnerUsername, &s.OwnerFirstName, &s.OwnerLastName,
			&s.Title, &s.Image, &s.Description, &s.CreatedAt, &s.UpdatedAt,
			&s.DetailIDs, &s.MinPriceCents, &s.MinDeliveryDays, &total); err != nil {
			return nil, 0, fmt.Errorf("scan offer summary: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	// При пустой странице общее число считается отдельно:
	// оконная функция не возвращает строк за пределами выборки.
	if len(res) == 0 {
		total, err = r.countOffers(ctx, f)
		if err != nil {
			return nil, 0, err
		}
	}

	return res, total, nil
}

func (r *PostgresRepository) countOffers(ctx context.Context, f OfferFilter) (int64, error) {
	var (
		where  []string
		having []string
		args   []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.CreatorSeq != nil {
		where = append(where, "a.role_seq = "+arg(*f.CreatorSeq))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(o.title ILIKE "+p+" OR o.description ILIKE "+p+")")
	}
	if f.MinPriceCents != nil {
		having = append(having, "MAX(d.price_cents) >= "+arg(*f.MinPriceCents))
	}
	if f.MaxDeliveryDays != nil {
		having = append(having, "MIN(d.delivery_days) <= "+arg(*f.MaxDeliveryDays))
	}

	query := `
		SELECT COUNT(*) FROM (
			SELECT o.id
			FROM offers o
			JOIN accounts a ON a.id = o.account_id
			JOIN offer_details d ON d.offer_id = o.id`
	if len(where) > 0 {
		query += "\n\t\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\t\tGROUP BY o.id, a.id"
	if len(having) > 0 {
		query += "\n\t\t\tHAVING " + strings.Join(having, " AND ")
	}
	query += "\n\t\t) matched"

	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count offers: %w", err)
	}

	return total, nil
}

// UpdateOffer применяет частичное обновление оффера. Тарифы обновляются
// слиянием по значению tier; тариф, отсутствующий у оффера, является ошибкой.
// Новые тарифы при обновлении не создаются и существующие не удаляются.
func (r *PostgresRepository) UpdateOffer(ctx context.Context, id int64, patch model.OfferPatch) (*model.Offer, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var accountID int64
	err = tx.QueryRow(ctx, `SELECT account_id FROM offers WHERE id = $1 FOR UPDATE`, id).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("lock offer: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE offers SET
		    title       = COALESCE($2, title),
		    image       = COALESCE($3, image),
		    description = COALESCE($4, description),
		    updated_at  = now()
		 WHERE id = $1`,
		id, patch.Title, patch.Image, patch.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("update offer: %w", err)
	}

	for _, dp := range patch.Details {
		tag, err := tx.Exec(ctx,
			`UPDATE offer_details SET
			    title         = COALESCE($3, title),
			    revisions     = COALESCE($4, revisions),
			    delivery_days = COALESCE($5, delivery_days),
			    price_cents   = COALESCE($6, price_cents),
			    features      = COALESCE($7, features)
			 WHERE offer_id = $1 AND tier = $2`,
			id, string(dp.Tier), dp.Title, dp.Revisions, dp.DeliveryDays, dp.PriceCents, dp.Features,
		)
		if err != nil {
			return nil, fmt.Errorf("update offer detail: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, fmt.Errorf("%w: %s", ErrDetailTierMissing, dp.Tier)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return r.GetOffer(ctx, id)
}

// DeleteOffer удаляет оффер вместе с тарифами.
func (r *PostgresRepository) DeleteOffer(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOfferNotFound
	}
	return nil
}

// GetOfferDetail возвращает один тариф по идентификатору.
func (r *PostgresRepository) GetOfferDetail(ctx context.Context, id int64) (*model.OfferDetail, error) {
	var d model.OfferDetail
	err := r.pool.QueryRow(ctx,
		`SELECT id, offer_id, title, revisions, delivery_days, price_cents, features, tier
		 FROM offer_details
		 WHERE id = $1`, id,
	).Scan(&d.ID, &d.OfferID, &d.Title, &d.Revisions, &d.DeliveryDays, &d.PriceCents, &d.Features, &d.Tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferDetailNotFound
		}
		return nil, fmt.Errorf("select offer detail: %w", err)
	}
	return &d, nil
}
