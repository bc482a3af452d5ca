package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.domain.org",
		"a+tag@b.co",
	}
	for _, e := range valid {
		assert.True(t, IsValidEmail(e), e)
	}

	invalid := []string{
		"",
		"plain",
		"@example.com",
		"user@",
		"user@nodot",
		"user name@example.com",
		"user@exa mple.com",
	}
	for _, e := range invalid {
		assert.False(t, IsValidEmail(e), e)
	}
}

func TestIsValidPassword(t *testing.T) {
	assert.False(t, IsValidPassword(""))
	assert.False(t, IsValidPassword("12345"))
	assert.True(t, IsValidPassword("123456"))
	assert.True(t, IsValidPassword("a much longer passphrase"))
}

func TestIsValidDisplayName(t *testing.T) {
	assert.False(t, IsValidDisplayName("A"))
	assert.True(t, IsValidDisplayName("Al"))
	assert.True(t, IsValidDisplayName(strings.Repeat("x", 50)))
	assert.False(t, IsValidDisplayName(strings.Repeat("x", 51)))
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL("https://example.com/avatar.png"))
	assert.True(t, IsValidURL("http://localhost:8080"))
	assert.False(t, IsValidURL("not a url"))
	assert.False(t, IsValidURL("/relative/path"))
	assert.False(t, IsValidURL(""))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("  hello  "))
	assert.Equal(t, "scriptalert(1)/script", SanitizeInput("<script>alert(1)</script>"))
	assert.Equal(t, "", SanitizeInput("   "))
}

func TestValidateUserInput(t *testing.T) {
	assert.Empty(t, ValidateUserInput("ok@example.com", "secret1", "Name"))

	// empty fields are skipped, not rejected
	assert.Empty(t, ValidateUserInput("ok@example.com", "secret1", ""))
	assert.Empty(t, ValidateUserInput("", "", ""))

	errs := ValidateUserInput("bad", "123", "X")
	assert.Len(t, errs, 3)
	assert.Contains(t, errs, "invalid email format")
	assert.Contains(t, errs, "password must be at least 6 characters long")
	assert.Contains(t, errs, "display name must be between 2 and 50 characters")
}
