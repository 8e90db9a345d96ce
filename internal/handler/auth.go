package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/service"
)

type registrationRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	RepeatedPassword string `json:"repeated_password"`
	Type             string `json:"type"`
}

type authResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Email    string `json:"email"`
	UserID   int64  `json:"user_id"`
}

// Register обрабатывает регистрацию нового аккаунта и выдачу токена.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	fields := map[string][]string{}
	if req.Username == "" {
		fields["username"] = []string{"This field is required."}
	}
	if req.Email == "" {
		fields["email"] = []string{"This field is required."}
	}
	if req.Password == "" {
		fields["password"] = []string{"This field is required."}
	}
	if req.Type == "" {
		fields["type"] = []string{"This field is required."}
	}
	if len(fields) > 0 {
		h.writeFieldErrors(w, http.StatusBadRequest, fields)
		return
	}

	result, err := h.service.RegisterAccount(r.Context(), service.RegisterInput{
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
		RepeatedPassword: req.RepeatedPassword,
		Type:             model.Role(req.Type),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"password": {"Passwords do not match."},
			})
		case errors.Is(err, service.ErrInvalidUserType):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"type": {"Type must be either 'customer' or 'business'."},
			})
		case errors.Is(err, service.ErrInvalidEmail):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"email": {"Enter a valid email address."},
			})
		case errors.Is(err, repository.ErrUsernameTaken):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"username": {"A user with this username already exists."},
			})
		case errors.Is(err, repository.ErrEmailTaken):
			h.writeFieldErrors(w, http.StatusBadRequest, map[string][]string{
				"email": {"A user with this email already exists."},
			})
		default:
			h.serverError(w, "register account error", err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, authResponse{
		Token:    result.Token,
		Username: result.Account.Username,
		Email:    result.Account.Email,
		UserID:   result.Account.ID,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию аккаунта и возвращает его постоянный токен.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	if req.Username == "" || req.Password == "" {
		h.writeDetail(w, http.StatusBadRequest, "Username and password are required.")
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.writeDetail(w, http.StatusBadRequest, "Invalid username or password.")
			return
		}
		h.serverError(w, "login error", err)
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{
		Token:    result.Token,
		Username: result.Account.Username,
		Email:    result.Account.Email,
		UserID:   result.Account.ID,
	})
}
