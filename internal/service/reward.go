package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/set-night/shareit/internal/config"
	"github.com/set-night/shareit/internal/domain"
	"github.com/set-night/shareit/internal/ledger"
	"github.com/set-night/shareit/internal/metrics"
)

type RewardService struct {
	store   ledger.Store
	retry   *Retrier
	metrics *metrics.Metrics
	coins   int64
	now     func() time.Time
}

func NewRewardService(store ledger.Store, retry *Retrier, m *metrics.Metrics, coins int64) *RewardService {
	return &RewardService{store: store, retry: retry, metrics: m, coins: coins, now: time.Now}
}

func (s *RewardService) Coins() int64 {
	return s.coins
}

// Claim redeems a saved offer once and credits the recommendation's creator.
//
// The claimed flag is flipped by a compare-and-set before any coins move, so
// concurrent claims of one offer produce a single winner. The award is keyed
// by the saved offer and may be re-applied safely; if it cannot be applied
// now, RecoverAwards finishes it later.
func (s *RewardService) Claim(ctx context.Context, savedOfferID, referrerID string) (result domain.ClaimResult, err error) {
	ctx, span := startSpan(ctx, "RewardService.Claim",
		attribute.String("saved_offer.id", savedOfferID),
		attribute.String("referrer.id", referrerID),
	)
	defer func() {
		endSpan(span, err)
		switch {
		case err == nil:
			s.metrics.RecordClaim(metrics.OutcomeClaimed)
		case domain.IsConflict(err):
			s.metrics.RecordClaim(metrics.OutcomeConflict)
		case domain.IsValidation(err):
			s.metrics.RecordClaim(metrics.OutcomeRejected)
		default:
			s.metrics.RecordClaim(metrics.OutcomeFailed)
		}
	}()

	offer, err := s.store.GetSavedOffer(ctx, savedOfferID)
	if err != nil {
		return domain.ClaimResult{}, err
	}
	rec, err := s.store.GetRecommendation(ctx, offer.RecommendationID)
	if err != nil {
		return domain.ClaimResult{}, fmt.Errorf("get recommendation: %w", err)
	}
	if referrerID != rec.CreatorID {
		return domain.ClaimResult{}, domain.ErrInvalidReferrer
	}
	if offer.Claimed {
		return domain.ClaimResult{}, domain.ErrAlreadyClaimed
	}

	won, err := s.store.ClaimSavedOffer(ctx, offer.ID, s.now())
	if err != nil {
		return domain.ClaimResult{}, err
	}
	if !won {
		return domain.ClaimResult{}, domain.ErrAlreadyClaimed
	}

	var referrer domain.User
	err = s.retry.Do(ctx, "apply_award", func() error {
		var applyErr error
		referrer, _, applyErr = s.applyAward(ctx, offer.ID, rec.CreatorID, false)
		return applyErr
	})
	if err != nil {
		slog.Error("referral award left for recovery", "saved_offer_id", offer.ID, "error", err)
		return domain.ClaimResult{}, fmt.Errorf("apply award: %w", err)
	}

	return domain.ClaimResult{
		SavedOfferID:     offer.ID,
		CoinsAwarded:     s.coins,
		NewReferralCount: referrer.ReferralCount,
	}, nil
}

// applyAward credits userID for one claimed saved offer. It is a no-op when
// the award was already recorded.
func (s *RewardService) applyAward(ctx context.Context, savedOfferID, userID string, recovered bool) (domain.User, bool, error) {
	var (
		user    domain.User
		applied bool
	)
	now := s.now()
	err := s.store.WithinTx(ctx, func(q ledger.Queries) error {
		inserted, err := q.InsertReferralAward(ctx, domain.ReferralAward{
			SavedOfferID: savedOfferID,
			UserID:       userID,
			Coins:        s.coins,
			AwardedAt:    now,
		})
		if err != nil {
			return err
		}
		if inserted {
			if _, err := q.Increment(ctx, ledger.UserCoins, userID, s.coins); err != nil {
				return err
			}
			if _, err := q.Increment(ctx, ledger.UserReferrals, userID, 1); err != nil {
				return err
			}
			if err := q.InsertCoinTransaction(ctx, domain.CoinTransaction{
				ID:          uuid.NewString(),
				UserID:      userID,
				Amount:      s.coins,
				Kind:        domain.TxKindReferralReward,
				Reference:   savedOfferID,
				Description: "Referral reward",
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}
		user, err = q.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		applied = inserted
		return nil
	})
	if err != nil {
		return domain.User{}, false, err
	}
	if applied {
		s.metrics.RecordAward(s.coins, recovered)
	}
	return user, applied, nil
}

// RecoverAwards applies awards for claimed offers that have none, such as
// after a crash between the claim and the award. It returns how many awards
// it applied.
func (s *RewardService) RecoverAwards(ctx context.Context) (int, error) {
	ctx, span := startSpan(ctx, "RewardService.RecoverAwards")
	var err error
	defer func() { endSpan(span, err) }()

	pending, err := s.store.ListUnawardedClaims(ctx, config.RecoveryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list unawarded claims: %w", err)
	}

	var errs []error
	applied := 0
	for _, offer := range pending {
		rec, recErr := s.store.GetRecommendation(ctx, offer.RecommendationID)
		if recErr != nil {
			errs = append(errs, fmt.Errorf("saved offer %s: %w", offer.ID, recErr))
			continue
		}
		var ok bool
		applyErr := s.retry.Do(ctx, "recover_award", func() error {
			var err error
			_, ok, err = s.applyAward(ctx, offer.ID, rec.CreatorID, true)
			return err
		})
		if applyErr != nil {
			if errors.Is(applyErr, context.Canceled) {
				return applied, applyErr
			}
			errs = append(errs, fmt.Errorf("saved offer %s: %w", offer.ID, applyErr))
			continue
		}
		if ok {
			applied++
			slog.Info("referral award recovered", "saved_offer_id", offer.ID, "user_id", rec.CreatorID, "coins", s.coins)
		}
	}
	err = errors.Join(errs...)
	span.SetAttributes(attribute.Int("awards.applied", applied))
	return applied, err
}
