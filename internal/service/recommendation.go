package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/ledger"
	"github.com/set-night/shareit/internal/metrics"
	"github.com/set-night/shareit/internal/objectstore"
)

type RecommendationService struct {
	store   ledger.Store
	images  *objectstore.Policy
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRecommendationService(store ledger.Store, images *objectstore.Policy, m *metrics.Metrics) *RecommendationService {
	return &RecommendationService{store: store, images: images, metrics: m, now: time.Now}
}

// NormalizeText trims text and checks the length limit.
func NormalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > config.MaxRecommendationText {
		return "", domain.ErrInvalidText
	}
	return text, nil
}

func (s *RecommendationService) Create(ctx context.Context, businessID, creatorID, text, imageRef string) (id string, err error) {
	ctx, span := startSpan(ctx, "RecommendationService.Create",
		attribute.String("business.id", businessID),
		attribute.String("user.id", creatorID),
	)
	defer func() {
		endSpan(span, err)
		switch {
		case err == nil:
			s.metrics.RecordRecommendation(metrics.OutcomeCreated)
		case domain.IsValidation(err):
			s.metrics.RecordRecommendation(metrics.OutcomeRejected)
		default:
			s.metrics.RecordRecommendation(metrics.OutcomeFailed)
		}
	}()

	text, err = NormalizeText(text)
	if err != nil {
		return "", err
	}
	if err := s.images.Validate(imageRef); err != nil {
		return "", err
	}

	if _, err := s.store.GetBusiness(ctx, businessID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnknownBusiness
		}
		return "", err
	}
	if _, err := s.store.GetUser(ctx, creatorID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUserNotFound
		}
		return "", err
	}

	rec := domain.Recommendation{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		CreatorID:  creatorID,
		Text:       text,
		ImageRef:   imageRef,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreateRecommendation(ctx, rec); err != nil {
		return "", fmt.Errorf("create recommendation: %w", err)
	}
	return rec.ID, nil
}

func (s *RecommendationService) Get(ctx context.Context, id string) (*domain.Recommendation, error) {
	rec, err := s.store.GetRecommendation(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecent returns the newest recommendations first.
func (s *RecommendationService) ListRecent(ctx context.Context, limit int) ([]domain.Recommendation, error) {
	return s.store.ListRecommendations(ctx, clampLimit(limit, config.DefaultListLimit, config.MaxListLimit))
}

func (s *RecommendationService) ListByCreator(ctx context.Context, userID string, limit int) ([]domain.Recommendation, error) {
	return s.store.ListRecommendationsByCreator(ctx, userID, clampLimit(limit, config.DefaultListLimit, config.MaxListLimit))
}

// RecordView bumps the display counter and returns the new value.
func (s *RecommendationService) RecordView(ctx context.Context, id string) (int64, error) {
	ctx, span := startSpan(ctx, "RecommendationService.RecordView", attribute.String("recommendation.id", id))
	views, err := s.store.Increment(ctx, ledger.RecommendationViews, id, 1)
	endSpan(span, err)
	return views, err
}

func (s *RecommendationService) Aggregate(ctx context.Context, id string) (domain.Aggregate, error) {
	rec, err := s.store.GetRecommendation(ctx, id)
	if err != nil {
		return domain.Aggregate{}, err
	}
	return domain.Aggregate{RecommendationID: rec.ID, SavedCount: rec.SavedCount}, nil
}
