package telegram

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

// InlineButton creates a single inline keyboard button.
func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// URLButton creates a URL inline keyboard button.
func URLButton(text, url string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text: text,
		URL:  url,
	}
}

// InlineKeyboard creates an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// ButtonRow creates a row of inline buttons.
func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// DeepLink builds a t.me link that opens the bot with /start payload.
func DeepLink(botUsername, payload string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, payload)
}

// ShareURL opens Telegram's share sheet for link with text.
func ShareURL(link, text string) string {
	return "https://t.me/share/url?url=" + queryEscape(link) + "&text=" + queryEscape(text)
}
