package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/ledger"
	"github.com/set-night/shareit/internal/metrics"
)

type SavedOfferService struct {
	store   ledger.Store
	retry   *Retrier
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSavedOfferService(store ledger.Store, retry *Retrier, m *metrics.Metrics) *SavedOfferService {
	return &SavedOfferService{store: store, retry: retry, metrics: m, now: time.Now}
}

// Save bookmarks a recommendation for userID. Saving the same recommendation
// again returns the existing saved offer and leaves every counter unchanged.
// The saved offer and both counter increments commit together.
func (s *SavedOfferService) Save(ctx context.Context, userID, recommendationID string) (id string, err error) {
	ctx, span := startSpan(ctx, "SavedOfferService.Save",
		attribute.String("user.id", userID),
		attribute.String("recommendation.id", recommendationID),
	)
	var created bool
	defer func() {
		span.SetAttributes(attribute.Bool("saved_offer.created", created))
		endSpan(span, err)
		switch {
		case err == nil && created:
			s.metrics.RecordSave(metrics.OutcomeCreated)
		case err == nil:
			s.metrics.RecordSave(metrics.OutcomeExisting)
		case domain.IsValidation(err):
			s.metrics.RecordSave(metrics.OutcomeRejected)
		default:
			s.metrics.RecordSave(metrics.OutcomeFailed)
		}
	}()

	err = s.retry.Do(ctx, "save_offer", func() error {
		return s.store.WithinTx(ctx, func(q ledger.Queries) error {
			if _, err := q.GetRecommendation(ctx, recommendationID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrUnknownRecommendation
				}
				return err
			}
			if _, err := q.GetUser(ctx, userID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrUserNotFound
				}
				return err
			}

			offer, isNew, err := q.CreateSavedOffer(ctx, domain.SavedOffer{
				ID:               uuid.NewString(),
				UserID:           userID,
				RecommendationID: recommendationID,
				Saved:            true,
				SavedAt:          s.now(),
			})
			if err != nil {
				return err
			}
			if isNew {
				if _, err := q.Increment(ctx, ledger.RecommendationSaved, recommendationID, 1); err != nil {
					return err
				}
				if _, err := q.Increment(ctx, ledger.UserSavedOffers, userID, 1); err != nil {
					return err
				}
			}
			id, created = offer.ID, isNew
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SavedOfferService) Get(ctx context.Context, id string) (*domain.SavedOffer, error) {
	offer, err := s.store.GetSavedOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// ListSaved returns the user's saved offers, newest first, with the
// recommendation and business they point at.
func (s *SavedOfferService) ListSaved(ctx context.Context, userID string) ([]domain.SavedOfferDetail, error) {
	return s.store.ListSavedOffers(ctx, userID)
}
