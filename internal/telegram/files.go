package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/shareit/internal/objectstore"
)

// LargestPhoto returns the file id of the biggest size Telegram offers.
func LargestPhoto(sizes []models.PhotoSize) string {
	best := -1
	var id string
	for _, s := range sizes {
		if area := s.Width * s.Height; area > best {
			best, id = area, s.FileID
		}
	}
	return id
}

// InputPhoto converts a stored image reference into something SendPhoto
// accepts: a Telegram file id or a public URL.
func InputPhoto(imageRef string) models.InputFile {
	if fileID, ok := objectstore.ParseTelegramRef(imageRef); ok {
		return &models.InputFileString{Data: fileID}
	}
	return &models.InputFileString{Data: imageRef}
}

// GetFileURL returns the download URL for a Telegram file.
func GetFileURL(ctx context.Context, b *bot.Bot, fileID string) (string, error) {
	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}
	return b.FileDownloadLink(file), nil
}
