package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/service"
)

type reviewResponse struct {
	ID           int64  `json:"id"`
	BusinessUser int64  `json:"business_user"`
	Reviewer     int64  `json:"reviewer"`
	Rating       int    `json:"rating"`
	Description  string `json:"description"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toReviewResponse(rev *model.Review) reviewResponse {
	return reviewResponse{
		ID:           rev.ID,
		BusinessUser: rev.BusinessSeq,
		Reviewer:     rev.ReviewerSeq,
		Rating:       rev.Rating,
		Description:  rev.Description,
		CreatedAt:    formatTime(rev.CreatedAt),
		UpdatedAt:    formatTime(rev.UpdatedAt),
	}
}

type reviewCreateRequest struct {
	BusinessUser int64  `json:"business_user"`
	Rating       int    `json:"rating"`
	Description  string `json:"description"`
}

// CreateReview создаёт отзыв о бизнес-аккаунте. Каждый заказчик может
// оставить не более одного отзыва об одном бизнес-аккаунте.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	var req reviewCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	review, err := h.service.CreateReview(r.Context(), acc, req.BusinessUser, req.Rating, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			h.writeDetail(w, http.StatusForbidden, "Only customer users are allowed to write reviews.")
		case errors.Is(err, repository.ErrReviewExists):
			h.writeDetail(w, http.StatusForbidden, "You have already reviewed this business profile.")
		case errors.Is(err, repository.ErrAccountNotFound):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"business_user": {"A business user with this ID does not exist."},
			})
		case errors.Is(err, service.ErrInvalidRating):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"rating": {"Rating must be an integer between 1 and 5."},
			})
		default:
			h.serverError(w, "create review error", err, zap.Int64("accountID", acc.ID))
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, toReviewResponse(review))
}

// ListReviews возвращает отзывы с фильтрацией по бизнес-аккаунту и автору.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAccount(w, r); !ok {
		return
	}

	q := r.URL.Query()
	params := service.ReviewListParams{Ordering: q.Get("ordering")}

	if v := q.Get("business_user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid value for business_user_id."})
			return
		}
		params.BusinessSeq = &id
	}
	if v := q.Get("reviewer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid value for reviewer_id."})
			return
		}
		params.ReviewerSeq = &id
	}

	reviews, err := h.service.ListReviews(r.Context(), params)
	if err != nil {
		h.serverError(w, "list reviews error", err)
		return
	}

	resp := make([]reviewResponse, 0, len(reviews))
	for i := range reviews {
		resp = append(resp, toReviewResponse(&reviews[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type reviewPatchRequest struct {
	Rating      *int    `json:"rating"`
	Description *string `json:"description"`
}

// UpdateReview применяет частичное обновление отзыва его автором.
func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusNotFound, "Review not found.")
		return
	}

	var req reviewPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	review, err := h.service.UpdateReview(r.Context(), acc, id, req.Rating, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewNotFound):
			h.writeDetail(w, http.StatusNotFound, "Review not found.")
		case errors.Is(err, service.ErrPermissionDenied):
			h.writeDetail(w, http.StatusForbidden, "Only the author can update this review.")
		case errors.Is(err, service.ErrInvalidRating):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"rating": {"Rating must be an integer between 1 and 5."},
			})
		default:
			h.serverError(w, "update review error", err, zap.Int64("reviewID", id))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toReviewResponse(review))
}

// DeleteReview удаляет отзыв его автором.
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusNotFound, "Review not found.")
		return
	}

	if err := h.service.DeleteReview(r.Context(), acc, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrReviewNotFound):
			h.writeDetail(w, http.StatusNotFound, "Review not found.")
		case errors.Is(err, service.ErrPermissionDenied):
			h.writeDetail(w, http.StatusForbidden, "Only the author can delete this review.")
		default:
			h.serverError(w, "delete review error", err, zap.Int64("reviewID", id))
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type baseInfoResponse struct {
	ReviewCount          int64   `json:"review_count"`
	AverageRating        float64 `json:"average_rating"`
	BusinessProfileCount int64   `json:"business_profile_count"`
	OfferCount           int64   `json:"offer_count"`
}

// BaseInfo возвращает агрегированные показатели платформы.
func (h *Handler) BaseInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.GetBaseInfo(r.Context())
	if err != nil {
		h.serverError(w, "base info error", err)
		return
	}

	h.writeJSON(w, http.StatusOK, baseInfoResponse{
		ReviewCount:          info.ReviewCount,
		AverageRating:        info.AverageRating,
		BusinessProfileCount: info.BusinessProfileCount,
		OfferCount:           info.OfferCount,
	})
}
