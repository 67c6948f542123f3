package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/set-night/shareit/internal/domain"
)

func TestPolicyValidate(t *testing.T) {
	open := NewPolicy(nil)
	strict := NewPolicy([]string{" CDN.example.com ", ""})

	tests := []struct {
		name   string
		policy *Policy
		ref    string
		ok     bool
	}{
		{"any https host", open, "https://img.example.org/a.jpg", true},
		{"telegram file", open, "telegram:AgACAgIAAxkBAAIB", true},
		{"empty telegram file", open, "telegram:", false},
		{"plain http", open, "http://img.example.org/a.jpg", false},
		{"relative path", open, "/uploads/a.jpg", false},
		{"empty", open, "", false},
		{"allowed host", strict, "https://cdn.example.com/a.jpg", true},
		{"allowed host with port", strict, "https://cdn.example.com:443/a.jpg", true},
		{"other host", strict, "https://evil.example.net/a.jpg", false},
		{"telegram bypasses hosts", strict, "telegram:file", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(tt.ref)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidImageRef)
		})
	}
}

func TestTelegramRefRoundTrip(t *testing.T) {
	id, ok := ParseTelegramRef(TelegramRef("abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = ParseTelegramRef("https://cdn.example.com/a.jpg")
	assert.False(t, ok)
}
