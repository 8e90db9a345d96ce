package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
	"github.com/mmeshcher/marketplace-system/internal/validation"
)

// RegisterInput содержит данные формы регистрации.
type RegisterInput struct {
	Username         string
	Email            string
	Password         string
	RepeatedPassword string
	Type             model.Role
}

// AuthResult содержит аккаунт и его постоянный токен доступа.
type AuthResult struct {
	Token   string
	Account *model.Account
}

// RegisterAccount регистрирует новый аккаунт, создаёт пустой профиль и выдаёт токен.
func (s *Service) RegisterAccount(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Password != in.RepeatedPassword {
		return nil, ErrPasswordMismatch
	}
	if !model.ValidRole(in.Type) {
		return nil, ErrInvalidUserType
	}
	if !validation.IsValidEmail(in.Email) {
		return nil, ErrInvalidEmail
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	acc, err := s.repo.CreateAccount(ctx, in.Username, in.Email, hashed, in.Type)
	if err != nil {
		return nil, err
	}

	return s.issueToken(ctx, acc)
}

// Login проверяет логин и пароль, обновляет отметку входа и возвращает токен.
// Токен создаётся один раз и переиспользуется при последующих входах.
func (s *Service) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	acc, err := s.repo.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.TouchLastLogin(ctx, acc.ID); err != nil {
		return nil, err
	}

	return s.issueToken(ctx, acc)
}

func (s *Service) issueToken(ctx context.Context, acc *model.Account) (*AuthResult, error) {
	key, err := newTokenKey()
	if err != nil {
		return nil, err
	}

	token, err := s.repo.GetOrCreateToken(ctx, acc.ID, key)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, Account: acc}, nil
}

// AccountByToken возвращает аккаунт по ключу токена доступа.
func (s *Service) AccountByToken(ctx context.Context, key string) (*model.Account, error) {
	return s.repo.GetAccountByToken(ctx, key)
}

// GetProfile возвращает профиль по идентификатору аккаунта.
func (s *Service) GetProfile(ctx context.Context, accountID int64) (*model.Profile, error) {
	return s.repo.GetProfile(ctx, accountID)
}

// ListProfiles возвращает профили всех аккаунтов указанной роли.
func (s *Service) ListProfiles(ctx context.Context, role model.Role) ([]model.Profile, error) {
	if !model.ValidRole(role) {
		return nil, ErrInvalidUserType
	}
	return s.repo.ListProfilesByRole(ctx, role)
}

// UpdateProfile применяет частичное обновление профиля. Профиль может менять
// только его владелец.
func (s *Service) UpdateProfile(ctx context.Context, requester *model.Account, accountID int64, patch model.ProfilePatch) (*model.Profile, error) {
	if requester.ID != accountID {
		return nil, ErrPermissionDenied
	}
	if patch.Email != nil && !validation.IsValidEmail(*patch.Email) {
		return nil, ErrInvalidEmail
	}

	return s.repo.UpdateProfile(ctx, accountID, patch)
}
