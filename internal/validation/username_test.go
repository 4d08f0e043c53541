package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		errMsg   string
		wantErr  bool
	}{
		{
			name:     "valid username - lowercase",
			username: "moony",
		},
		{
			name:     "valid username - with numbers",
			username: "alice123",
		},
		{
			name:     "valid username - all numbers",
			username: "123456",
		},
		{
			name:     "valid username - min length",
			username: "moo",
		},
		{
			name:     "valid username - max length",
			username: "a1234567890123456789", // 20 символов
		},
		{
			name:     "invalid - empty username",
			username: "",
			wantErr:  true,
			errMsg:   "username cannot be empty",
		},
		{
			name:     "invalid - too short (2 chars)",
			username: "ab",
			wantErr:  true,
			errMsg:   "at least 3 characters",
		},
		{
			name:     "invalid - too long (21 chars)",
			username: "a12345678901234567890",
			wantErr:  true,
			errMsg:   "must not exceed 20 characters",
		},
		{
			name:     "invalid - uppercase",
			username: "Moony",
			wantErr:  true,
			errMsg:   "lowercase letters",
		},
		{
			name:     "invalid - underscore",
			username: "moo_ny",
			wantErr:  true,
			errMsg:   "lowercase letters",
		},
		{
			name:     "invalid - at sign",
			username: "moo@ny",
			wantErr:  true,
			errMsg:   "lowercase letters",
		},
		{
			name:     "invalid - space",
			username: "moo ny",
			wantErr:  true,
			errMsg:   "lowercase letters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "moony", NormalizeUsername("  MoOny \n"))
	assert.Equal(t, "", NormalizeUsername("   "))
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "moony@example.com", false},
		{"valid subdomain", "m@mail.example.org", false},
		{"empty", "", true},
		{"no at", "moony.example.com", true},
		{"no domain dot", "moony@example", true},
		{"space", "moo ny@example.com", true},
		{"double at", "moo@ny@example.com", true},
		{"too long", strings.Repeat("a", 250) + "@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "moony@example.com", NormalizeEmail(" Moony@Example.COM "))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Moony"))
	assert.NoError(t, ValidateName(strings.Repeat("я", MaxNameLen)))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName(strings.Repeat("a", MaxNameLen+1)))
}
