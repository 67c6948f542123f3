// Package catalog reads business listings from YAML files or HTML pages and
// writes them to the ledger.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/set-night/shareit/internal/domain"
)

const dateLayout = "2006-01-02"

// BusinessWriter is satisfied by service.BusinessService.
type BusinessWriter interface {
	Upsert(ctx context.Context, b domain.Business) error
}

type entry struct {
	ID           string     `yaml:"id"`
	Name         string     `yaml:"name"`
	Description  string     `yaml:"description"`
	DiscountText string     `yaml:"discount"`
	Category     string     `yaml:"category"`
	Location     string     `yaml:"location"`
	ValidUntil   *time.Time `yaml:"valid_until"`
}

type file struct {
	Businesses []entry `yaml:"businesses"`
}

func ParseYAML(r io.Reader) ([]domain.Business, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml catalog: %w", err)
	}
	out := make([]domain.Business, 0, len(f.Businesses))
	for _, e := range f.Businesses {
		out = append(out, domain.Business{
			ID:           strings.TrimSpace(e.ID),
			Name:         strings.TrimSpace(e.Name),
			Description:  strings.TrimSpace(e.Description),
			DiscountText: strings.TrimSpace(e.DiscountText),
			Category:     strings.TrimSpace(e.Category),
			Location:     strings.TrimSpace(e.Location),
			ValidUntil:   e.ValidUntil,
		})
	}
	return out, nil
}

// ParseHTML extracts every element carrying data-business-id. Fields are read
// from child elements with the classes name, description, discount, category
// and location; data-valid-until holds an optional YYYY-MM-DD date.
func ParseHTML(r io.Reader) ([]domain.Business, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html catalog: %w", err)
	}

	var (
		out  []domain.Business
		errs []error
	)
	doc.Find("[data-business-id]").Each(func(_ int, sel *goquery.Selection) {
		id, _ := sel.Attr("data-business-id")
		b := domain.Business{
			ID:           strings.TrimSpace(id),
			Name:         text(sel, ".name"),
			Description:  text(sel, ".description"),
			DiscountText: text(sel, ".discount"),
			Category:     text(sel, ".category"),
			Location:     text(sel, ".location"),
		}
		if raw, ok := sel.Attr("data-valid-until"); ok && strings.TrimSpace(raw) != "" {
			t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
			if err != nil {
				errs = append(errs, fmt.Errorf("business %s: valid-until: %w", b.ID, err))
				return
			}
			b.ValidUntil = &t
		}
		out = append(out, b)
	})
	return out, errors.Join(errs...)
}

func text(sel *goquery.Selection, selector string) string {
	return strings.Join(strings.Fields(sel.Find(selector).First().Text()), " ")
}

// Loader reads a catalog from a local file or an http(s) URL.
type Loader struct {
	httpClient *http.Client
}

func NewLoader() *Loader {
	return &Loader{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func (l *Loader) Load(ctx context.Context, source string) ([]domain.Business, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.fetch(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	case ".html", ".htm":
		return ParseHTML(f)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(source))
	}
}

func (l *Loader) fetch(ctx context.Context, url string) ([]domain.Business, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: status %d", resp.StatusCode)
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "yaml") {
		return ParseYAML(resp.Body)
	}
	return ParseHTML(resp.Body)
}

type Result struct {
	Upserted int
	Failed   int
}

// Import writes every business, continuing past individual failures.
func Import(ctx context.Context, w BusinessWriter, businesses []domain.Business) (Result, error) {
	var (
		res  Result
		errs []error
	)
	for _, b := range businesses {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := w.Upsert(ctx, b); err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("business %q: %w", b.ID, err))
			slog.Warn("catalog entry skipped", "business_id", b.ID, "error", err)
			continue
		}
		res.Upserted++
	}
	return res, errors.Join(errs...)
}
