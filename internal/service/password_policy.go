package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	specialCharacters = `!@#$%^&*(),.?":{}|<>`
)

// ValidatePassword devuelve *WeakPasswordError con la primera regla incumplida.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return &WeakPasswordError{Rule: RuleMinLength}
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return &WeakPasswordError{Rule: RuleUppercase}
	}
	if !strings.ContainsAny(password, specialCharacters) {
		return &WeakPasswordError{Rule: RuleSpecialCharacter}
	}
	return nil
}
