package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/service"
)

type offerDetailResponse struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Revisions    int      `json:"revisions"`
	DeliveryDays int      `json:"delivery_time_in_days"`
	Price        float64  `json:"price"`
	Features     []string `json:"features"`
	OfferType    string   `json:"offer_type"`
}

func toOfferDetailResponse(d *model.OfferDetail) offerDetailResponse {
	features := d.Features
	if features == nil {
		features = []string{}
	}
	return offerDetailResponse{
		ID:           d.ID,
		Title:        d.Title,
		Revisions:    d.Revisions,
		DeliveryDays: d.DeliveryDays,
		Price:        centsToPrice(d.PriceCents),
		Features:     features,
		OfferType:    string(d.Tier),
	}
}

type offerResponse struct {
	ID          int64                 `json:"id"`
	User        int64                 `json:"user"`
	Title       string                `json:"title"`
	Image       string                `json:"image"`
	Description string                `json:"description"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at"`
	Details     []offerDetailResponse `json:"details"`
}

func toOfferResponse(o *model.Offer) offerResponse {
	details := make([]offerDetailResponse, 0, len(o.Details))
	for i := range o.Details {
		details = append(details, toOfferDetailResponse(&o.Details[i]))
	}
	return offerResponse{
		ID:          o.ID,
		User:        o.OwnerSeq,
		Title:       o.Title,
		Image:       o.Image,
		Description: o.Description,
		CreatedAt:   formatTime(o.CreatedAt),
		UpdatedAt:   formatTime(o.UpdatedAt),
		Details:     details,
	}
}

type offerDetailRef struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

type offerSummaryResponse struct {
	ID              int64             `json:"id"`
	User            int64             `json:"user"`
	Title           string            `json:"title"`
	Image           string            `json:"image"`
	Description     string            `json:"description"`
	CreatedAt       string            `json:"created_at"`
	UpdatedAt       string            `json:"updated_at"`
	Details         []offerDetailRef  `json:"details"`
	MinPrice        float64           `json:"min_price"`
	MinDeliveryTime int               `json:"min_delivery_time"`
	UserDetails     *userDetailsBlock `json:"user_details,omitempty"`
}

type userDetailsBlock struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

func toOfferSummaryResponse(s *model.OfferSummary, withUserDetails bool) offerSummaryResponse {
	refs := make([]offerDetailRef, 0, len(s.DetailIDs))
	for _, id := range s.DetailIDs {
		refs = append(refs, offerDetailRef{
			ID:  id,
			URL: fmt.Sprintf("/api/offerdetails/%d/", id),
		})
	}

	resp := offerSummaryResponse{
		ID:              s.ID,
		User:            s.OwnerSeq,
		Title:           s.Title,
		Image:           s.Image,
		Description:     s.Description,
		CreatedAt:       formatTime(s.CreatedAt),
		UpdatedAt:       formatTime(s.UpdatedAt),
		Details:         refs,
		MinPrice:        centsToPrice(s.MinPriceCents),
		MinDeliveryTime: s.MinDeliveryDays,
	}
	if withUserDetails {
		resp.UserDetails = &userDetailsBlock{
			FirstName: s.OwnerFirstName,
			LastName:  s.OwnerLastName,
			Username:  s.OwnerUsername,
		}
	}
	return resp
}

// pageLink строит ссылку на страницу выборки, сохраняя остальные параметры
// запроса. Для первой страницы параметр page опускается.
func pageLink(r *http.Request, page int) string {
	q := r.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	if encoded := q.Encode(); encoded != "" {
		return r.URL.Path + "?" + encoded
	}
	return r.URL.Path
}

type pageResponse struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// ListOffers возвращает страницу офферов с фильтрацией и сортировкой.
// Доступен без аутентификации.
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := service.OfferListParams{
		Search:   q.Get("search"),
		Ordering: q.Get("ordering"),
		Page:     1,
	}

	if v := q.Get("creator_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid value for creator_id."})
			return
		}
		params.CreatorSeq = &id
	}
	if v := q.Get("min_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid value for min_price."})
			return
		}
		cents := priceToCents(price)
		params.MinPriceCents = &cents
	}
	if v := q.Get("max_delivery_time"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid value for max_delivery_time."})
			return
		}
		params.MaxDeliveryDays = &days
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid value for page or page_size. Both must be integers."})
			return
		}
		params.Page = page
	}
	if v := q.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid value for page or page_size. Both must be integers."})
			return
		}
		params.PageSize = size
	}

	page, err := h.service.ListOffers(r.Context(), params)
	if err != nil {
		if errors.Is(err, service.ErrPageRange) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "The requested page is empty or out of the valid range."})
			return
		}
		h.serverError(w, "list offers error", err)
		return
	}

	results := make([]offerSummaryResponse, 0, len(page.Offers))
	for i := range page.Offers {
		results = append(results, toOfferSummaryResponse(&page.Offers[i], true))
	}

	var next, prev *string
	if int64(page.Page)*int64(page.PageSize) < page.Count {
		u := pageLink(r, page.Page+1)
		next = &u
	}
	if page.Page > 1 {
		u := pageLink(r, page.Page-1)
		prev = &u
	}

	h.writeJSON(w, http.StatusOK, pageResponse{
		Count:    page.Count,
		Next:     next,
		Previous: prev,
		Results:  results,
	})
}

type offerDetailRequest struct {
	Title        *string   `json:"title"`
	Revisions    *int      `json:"revisions"`
	DeliveryDays *int      `json:"delivery_time_in_days"`
	Price        *float64  `json:"price"`
	Features     *[]string `json:"features"`
	OfferType    string    `json:"offer_type"`
}

type offerCreateRequest struct {
	Title       string               `json:"title"`
	Image       string               `json:"image"`
	Description string               `json:"description"`
	Details     []offerDetailRequest `json:"details"`
}

// CreateOffer создаёт новый оффер. Доступен только бизнес-аккаунтам.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	var req offerCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	if req.Title == "" {
		h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
			"title": {"This field is required."},
		})
		return
	}

	details := make([]service.OfferDetailInput, 0, len(req.Details))
	for _, d := range req.Details {
		in := service.OfferDetailInput{Tier: model.Tier(d.OfferType)}
		if d.Title != nil {
			in.Title = *d.Title
		}
		if d.Revisions != nil {
			in.Revisions = *d.Revisions
		}
		if d.DeliveryDays != nil {
			in.DeliveryDays = *d.DeliveryDays
		}
		if d.Price != nil {
			in.PriceCents = priceToCents(*d.Price)
		}
		if d.Features != nil {
			in.Features = *d.Features
		}
		details = append(details, in)
	}

	offer, err := h.service.CreateOffer(r.Context(), acc, service.OfferInput{
		Title:       req.Title,
		Image:       req.Image,
		Description: req.Description,
		Details:     details,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			h.writeDetail(w, http.StatusForbidden, "Only business users are allowed to write offers.")
		case errors.Is(err, service.ErrDetailCount):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"details": {"Exactly 3 offer details are required."},
			})
		case errors.Is(err, service.ErrInvalidTier), errors.Is(err, service.ErrDuplicateTier):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"details": {"Offer details must cover the three distinct offer types."},
			})
		case errors.Is(err, service.ErrInvalidDetail):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"details": {"Offer detail fields are out of range."},
			})
		default:
			h.serverError(w, "create offer error", err, zap.Int64("accountID", acc.ID))
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, toOfferResponse(offer))
}

// GetOffer возвращает один оффер со сводными значениями.
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusNotFound, "Offer not found.")
		return
	}

	summary, err := h.service.GetOffer(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			h.writeDetail(w, http.StatusNotFound, "Offer not found.")
			return
		}
		h.serverError(w, "get offer error", err, zap.Int64("offerID", id))
		return
	}

	h.writeJSON(w, http.StatusOK, toOfferSummaryResponse(summary, false))
}

type offerPatchRequest struct {
	Title       *string              `json:"title"`
	Image       *string              `json:"image"`
	Description *string              `json:"description"`
	Details     []offerDetailRequest `json:"details"`
}

// UpdateOffer применяет частичное обновление оффера его владельцем.
// Каждый переданный тариф должен указывать offer_type, уже имеющийся у оффера.
func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusNotFound, "Offer not found.")
		return
	}

	var req offerPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	patch := model.OfferPatch{
		Title:       req.Title,
		Image:       req.Image,
		Description: req.Description,
	}
	for _, d := range req.Details {
		if d.OfferType == "" {
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"details": {"Each detail must specify its offer_type."},
			})
			return
		}
		dp := model.OfferDetailPatch{
			Tier:         model.Tier(d.OfferType),
			Title:        d.Title,
			Revisions:    d.Revisions,
			DeliveryDays: d.DeliveryDays,
			Features:     d.Features,
		}
		if d.Price != nil {
			cents := priceToCents(*d.Price)
			dp.PriceCents = &cents
		}
		patch.Details = append(patch.Details, dp)
	}

	offer, err := h.service.UpdateOffer(r.Context(), acc, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOfferNotFound):
			h.writeDetail(w, http.StatusNotFound, "Offer not found.")
		case errors.Is(err, service.ErrPermissionDenied):
			h.writeDetail(w, http.StatusForbidden, "Only the owner can update this offer.")
		case errors.Is(err, repository.ErrDetailTierMissing):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"details": {"The offer has no detail with the given offer_type."},
			})
		case errors.Is(err, service.ErrInvalidTier), errors.Is(err, service.ErrDuplicateTier):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"details": {"Offer details must reference distinct valid offer types."},
			})
		case errors.Is(err, service.ErrInvalidDetail):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"details": {"Offer detail fields are out of range."},
			})
		default:
			h.serverError(w, "update offer error", err, zap.Int64("offerID", id))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toOfferResponse(offer))
}

// DeleteOffer удаляет оффер его владельцем.
func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusNotFound, "Offer not found.")
		return
	}

	if err := h.service.DeleteOffer(r.Context(), acc, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrOfferNotFound):
			h.writeDetail(w, http.StatusNotFound, "Offer not found.")
		case errors.Is(err, service.ErrPermissionDenied):
			h.writeDetail(w, http.StatusForbidden, "Only the owner can delete this offer.")
		default:
			h.serverError(w, "delete offer error", err, zap.Int64("offerID", id))
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetOfferDetail возвращает один тариф оффера.
func (h *Handler) GetOfferDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusNotFound, "OfferDetail not found.")
		return
	}

	detail, err := h.service.GetOfferDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOfferDetailNotFound) {
			h.writeDetail(w, http.StatusNotFound, "OfferDetail not found.")
			return
		}
		h.serverError(w, "get offer detail error", err, zap.Int64("detailID", id))
		return
	}

	h.writeJSON(w, http.StatusOK, toOfferDetailResponse(detail))
}
