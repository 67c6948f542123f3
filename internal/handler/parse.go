package handler

import (
	"errors"
	"strings"
	"unicode"

	"github.com/set-night/shareit/internal/config"
)

const (
	saveCallbackPrefix  = "save_"
	claimCallbackPrefix = "claim_"
)

var errRecommendUsage = errors.New("usage: /recommend <business id> <text>")

// parseStartPayload splits "/start b_xyz" into its deep link prefix and id.
func parseStartPayload(text string) (prefix, id string) {
	_, payload, ok := strings.Cut(strings.TrimSpace(text), " ")
	if !ok {
		return "", ""
	}
	payload = strings.TrimSpace(payload)
	for _, p := range []string{config.StartBusinessPrefix, config.StartRecommendationPrefix} {
		if id, ok := strings.CutPrefix(payload, p); ok && id != "" {
			return p, id
		}
	}
	return "", ""
}

// parseRecommendCaption reads "/recommend <business id> <text>". The text is
// returned as written; length rules are enforced by the service.
func parseRecommendCaption(caption string) (businessID, text string, err error) {
	fields := strings.TrimSpace(caption)
	cmd, rest := splitWord(fields)
	if cmd != "/recommend" && !strings.HasPrefix(cmd, "/recommend@") {
		return "", "", errRecommendUsage
	}
	businessID, text = splitWord(rest)
	if businessID == "" {
		return "", "", errRecommendUsage
	}
	return businessID, text, nil
}

func splitWord(s string) (word, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}

func callbackData(prefix, id string) string {
	data := prefix + id
	if len(data) > config.MaxCallbackDataLen {
		return "cur"
	}
	return data
}

func callbackID(data, prefix string) (string, bool) {
	id, ok := strings.CutPrefix(data, prefix)
	return id, ok && id != ""
}
