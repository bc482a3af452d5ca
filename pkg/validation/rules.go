package validation

import (
	"net/url"
	"regexp"
	"strings"
)

var emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailRegexp.MatchString(email)
}

func IsValidPassword(password string) bool {
	return len(password) >= 6
}

func IsValidDisplayName(displayName string) bool {
	return len(displayName) >= 2 && len(displayName) <= 50
}

func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// SanitizeInput trims whitespace and strips angle brackets.
func SanitizeInput(input string) string {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, "<", "")
	return strings.ReplaceAll(s, ">", "")
}

// ValidateUserInput checks the shape of sign-up/sign-in input. Empty
// fields are skipped so callers can validate partial input; the returned
// slice is empty when everything passes.
func ValidateUserInput(email, password, displayName string) []string {
	var errs []string
	if email != "" && !IsValidEmail(email) {
		errs = append(errs, "invalid email format")
	}
	if password != "" && !IsValidPassword(password) {
		errs = append(errs, "password must be at least 6 characters long")
	}
	if displayName != "" && !IsValidDisplayName(displayName) {
		errs = append(errs, "display name must be between 2 and 50 characters")
	}
	return errs
}
