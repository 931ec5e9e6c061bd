package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase unchanged", "test1@example.com", "test1@example.com"},
		{"uppercase domain lowered", "Test2@EXAMPLE.com", "Test2@example.com"},
		{"local part preserved", "TEST3@EXAMPLE.COM", "TEST3@example.com"},
		{"mixed case domain", "test4@example.COM", "test4@example.com"},
		{"surrounding whitespace trimmed", "  test@Example.Com  ", "test@example.com"},
		{"no at sign", "not-an-email", "not-an-email"},
		{"empty string", "", ""},
		{"last at wins", `"with@quotes"@EXAMPLE.com`, `"with@quotes"@example.com`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEmail(tt.input))
		})
	}
}

func TestHasUsablePassword(t *testing.T) {
	u := &User{PasswordHash: ""}
	assert.False(t, u.HasUsablePassword(), "empty hash means the account can never authenticate")

	u.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
	assert.True(t, u.HasUsablePassword())
}
