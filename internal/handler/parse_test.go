package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/set-night/shareit/internal/config"
)

func TestParseStartPayload(t *testing.T) {
	tests := []struct {
		text, prefix, id string
	}{
		{"/start", "", ""},
		{"/start r_abc-123", config.StartRecommendationPrefix, "abc-123"},
		{"/start b_bean", config.StartBusinessPrefix, "bean"},
		{"/start  b_bean ", config.StartBusinessPrefix, "bean"},
		{"/start r_", "", ""},
		{"/start x_1", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			prefix, id := parseStartPayload(tt.text)
			assert.Equal(t, tt.prefix, prefix)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestParseRecommendCaption(t *testing.T) {
	tests := []struct {
		name, caption, business, text string
		err                           bool
	}{
		{"plain", "/recommend b1 Great coffee", "b1", "Great coffee", false},
		{"bot suffix", "/recommend@shareit_bot b1 Great", "b1", "Great", false},
		{"newline", "/recommend b1\nMultiline  text", "b1", "Multiline  text", false},
		{"no text", "/recommend b1", "b1", "", false},
		{"no business", "/recommend", "", "", true},
		{"other command", "/recommendx b1 hi", "", "", true},
		{"empty", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			business, text, err := parseRecommendCaption(tt.caption)
			if tt.err {
				assert.ErrorIs(t, err, errRecommendUsage)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.business, business)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestCallbackData(t *testing.T) {
	id := "0b9e8f3c-2f6a-4d0e-9a49-5c3d1e2f4a6b"
	data := callbackData(claimCallbackPrefix, id)
	assert.Equal(t, "claim_"+id, data)

	got, ok := callbackID(data, claimCallbackPrefix)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = callbackID("save_", saveCallbackPrefix)
	assert.False(t, ok)

	assert.Equal(t, "cur", callbackData(saveCallbackPrefix, strings.Repeat("x", config.MaxCallbackDataLen)))
}
