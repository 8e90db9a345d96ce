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

type profileResponse struct {
	User         int64  `json:"user"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	File         string `json:"file"`
	Location     string `json:"location"`
	Tel          string `json:"tel"`
	Description  string `json:"description"`
	WorkingHours string `json:"working_hours"`
	Type         string `json:"type"`
	Email        string `json:"email"`
	CreatedAt    string `json:"created_at"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		User:         p.Account.ID,
		Username:     p.Account.Username,
		FirstName:    p.Account.FirstName,
		LastName:     p.Account.LastName,
		File:         p.File,
		Location:     p.Location,
		Tel:          p.Tel,
		Description:  p.Description,
		WorkingHours: p.WorkingHours,
		Type:         string(p.Account.Role),
		Email:        p.Account.Email,
		CreatedAt:    formatTime(p.Account.CreatedAt),
	}
}

// GetProfile возвращает профиль по идентификатору аккаунта.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAccount(w, r); !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusNotFound, "Profile not found.")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			h.writeDetail(w, http.StatusNotFound, "Profile not found.")
			return
		}
		h.serverError(w, "get profile error", err)
		return
	}

	h.writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

type profilePatchRequest struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Email        *string `json:"email"`
	Description  *string `json:"description"`
	File         *string `json:"file"`
	Location     *string `json:"location"`
	Tel          *string `json:"tel"`
	WorkingHours *string `json:"working_hours"`
}

// UpdateProfile применяет частичное обновление профиля владельцем.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeDetail(w, http.StatusNotFound, "Profile not found.")
		return
	}

	var req profilePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), acc, id, model.ProfilePatch{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Description:  req.Description,
		File:         req.File,
		Location:     req.Location,
		Tel:          req.Tel,
		WorkingHours: req.WorkingHours,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			h.writeDetail(w, http.StatusForbidden, "You do not have permission to edit this profile.")
		case errors.Is(err, service.ErrInvalidEmail):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"email": {"Enter a valid email address."},
			})
		case errors.Is(err, repository.ErrEmailTaken):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"email": {"A user with this email already exists."},
			})
		case errors.Is(err, repository.ErrProfileNotFound):
			h.writeDetail(w, http.StatusNotFound, "Profile not found.")
		default:
			h.serverError(w, "update profile error", err, zap.Int64("accountID", id))
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request, role model.Role) {
	if _, ok := h.requireAccount(w, r); !ok {
		return
	}

	profiles, err := h.service.ListProfiles(r.Context(), role)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUserType) {
			h.writeDetail(w, http.StatusNotFound, "Profile not found.")
			return
		}
		h.serverError(w, "list profiles error", err)
		return
	}

	resp := make([]profileResponse, 0, len(profiles))
	for i := range profiles {
		resp = append(resp, toProfileResponse(&profiles[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// ListBusinessProfiles возвращает профили всех бизнес-аккаунтов.
func (h *Handler) ListBusinessProfiles(w http.ResponseWriter, r *http.Request) {
	h.listProfiles(w, r, model.RoleBusiness)
}

// ListCustomerProfiles возвращает профили всех аккаунтов заказчиков.
func (h *Handler) ListCustomerProfiles(w http.ResponseWriter, r *http.Request) {
	h.listProfiles(w, r, model.RoleCustomer)
}
