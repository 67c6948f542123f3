package telegram

import (
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/shareit/internal/config"
)

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `50\% off`, EscapeMarkdown(`50\% off`))
	assert.Equal(t, `\*best\* \_coffee\_ \[here`, EscapeMarkdown("*best* _coffee_ [here"))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	text := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	parts := SplitMessage(text, 10)
	require.Len(t, parts, 2)
	assert.Equal(t, strings.Repeat("a", 8)+"\n", parts[0])
	assert.Equal(t, strings.Repeat("b", 8), parts[1])

	parts = SplitMessage(strings.Repeat("я", 25), 10)
	require.Len(t, parts, 3)
	assert.Equal(t, strings.Repeat("я", 5), parts[2])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab…", Truncate("abcd", 3))
}

func TestDeepLinks(t *testing.T) {
	assert.Equal(t, "https://t.me/shareit_bot?start=r_123", DeepLink("shareit_bot", "r_123"))
	assert.Equal(t,
		"https://t.me/share/url?url=https%3A%2F%2Ft.me%2Fx&text=Great+coffee%21",
		ShareURL("https://t.me/x", "Great coffee!"))
}

func TestLargestPhoto(t *testing.T) {
	id := LargestPhoto([]models.PhotoSize{
		{FileID: "small", Width: 90, Height: 90},
		{FileID: "big", Width: 1280, Height: 960},
		{FileID: "medium", Width: 320, Height: 240},
	})
	assert.Equal(t, "big", id)
	assert.Empty(t, LargestPhoto(nil))
}

func TestInputPhoto(t *testing.T) {
	in, ok := InputPhoto("telegram:AgAC").(*models.InputFileString)
	require.True(t, ok)
	assert.Equal(t, "AgAC", in.Data)

	in, ok = InputPhoto("https://img.example.com/a.jpg").(*models.InputFileString)
	require.True(t, ok)
	assert.Equal(t, "https://img.example.com/a.jpg", in.Data)
}

func TestTelegramLoggerDisabled(t *testing.T) {
	var nilLogger *TelegramLogger
	nilLogger.LogClaim("a", "b", "c", 5)

	l := NewTelegramLogger(nil, &config.Config{})
	l.LogRegistration("tg:1", "Ann")
}
