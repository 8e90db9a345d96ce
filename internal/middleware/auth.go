// Package middleware содержит HTTP middleware для сервиса маркетплейса.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

type contextKey string

const accountKey contextKey = "account"

// AccountResolver проверяет ключ токена и возвращает его владельца.
type AccountResolver interface {
	AccountByToken(ctx context.Context, key string) (*model.Account, error)
}

// AuthMiddleware выполняет аутентификацию запросов по постоянному токену
// из заголовка Authorization. Хранилище токенов передаётся извне.
type AuthMiddleware struct {
	resolver AccountResolver
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным хранилищем токенов.
func NewAuthMiddleware(resolver AccountResolver) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
	}
}

// Middleware проверяет токен авторизации и добавляет аккаунт в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := parseAuthHeader(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		acc, err := a.resolver.AccountByToken(r.Context(), key)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, acc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Допустимы схемы "Token <key>" и "Bearer <key>".
func parseAuthHeader(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}

	scheme := parts[0]
	key := strings.TrimSpace(parts[1])

	if key == "" {
		return "", false
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	return key, true
}

// GetAccountFromContext извлекает аккаунт пользователя из контекста запроса.
func GetAccountFromContext(ctx context.Context) (*model.Account, bool) {
	acc, ok := ctx.Value(accountKey).(*model.Account)
	return acc, ok
}
