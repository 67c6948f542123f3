// Package objectstore validates image references handed to the ledger.
//
// Images are uploaded elsewhere. A reference is either an https URL on an
// allowed host or a Telegram file id captured by the bot.
package objectstore

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/set-night/shareit/internal/domain"
)

const telegramPrefix = "telegram:"

type Policy struct {
	hosts map[string]struct{}
}

// NewPolicy accepts https URLs on hosts. An empty list accepts any host.
func NewPolicy(hosts []string) *Policy {
	p := &Policy{hosts: make(map[string]struct{}, len(hosts))}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			p.hosts[h] = struct{}{}
		}
	}
	return p
}

func (p *Policy) Validate(ref string) error {
	if fileID, ok := ParseTelegramRef(ref); ok {
		if fileID == "" || strings.ContainsAny(fileID, " \t\n") {
			return fmt.Errorf("%w: empty telegram file id", domain.ErrInvalidImageRef)
		}
		return nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidImageRef, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%w: want https url", domain.ErrInvalidImageRef)
	}
	if len(p.hosts) == 0 {
		return nil
	}
	if _, ok := p.hosts[strings.ToLower(u.Hostname())]; !ok {
		return fmt.Errorf("%w: host %s not allowed", domain.ErrInvalidImageRef, u.Hostname())
	}
	return nil
}

func TelegramRef(fileID string) string {
	return telegramPrefix + fileID
}

func ParseTelegramRef(ref string) (fileID string, ok bool) {
	return strings.CutPrefix(ref, telegramPrefix)
}
