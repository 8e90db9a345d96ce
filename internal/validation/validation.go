// Package validation содержит функции валидации входных данных.
package validation

import "strings"

// IsValidEmail выполняет базовую проверку адреса электронной почты.
func IsValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}

	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}

	local := email[:at]
	domain := email[at+1:]

	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	if strings.Contains(domain, "@") {
		return false
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}

	return local != "" && strings.Contains(domain, ".")
}

// IsValidRating проверяет, что оценка отзыва лежит в диапазоне от 1 до 5.
func IsValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}
