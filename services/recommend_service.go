package services

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"badge-award-system/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recommendationTTL = 5 * time.Minute

type RecommendationService struct {
	DB    *gorm.DB
	Cache *redis.Client // optional; nil disables caching
	Log   *zap.SugaredLogger
}

func NewRecommendationService(db *gorm.DB, cache *redis.Client, log *zap.SugaredLogger) *RecommendationService {
	return &RecommendationService{DB: db, Cache: cache, Log: log}
}

// GetRecommendations proposes unearned badges for the user. Preference order:
// skip capstones, participation badges, categories whose capstone the user
// already earned, and anything outside categories the user is progressing
// toward. Falls back to a shuffle of all candidates when the filter empties
// the set. Offline-activity badges are never recommended.
func (s *RecommendationService) GetRecommendations(ctx context.Context, userID string) ([]models.Badge, error) {
	if cached, ok := s.cachedRecommendations(ctx, userID); ok {
		return cached, nil
	}

	var all []models.Badge
	if err := s.DB.Find(&all).Error; err != nil {
		return nil, err
	}
	owned, err := s.ownedBadges(userID)
	if err != nil {
		return nil, err
	}

	ownedIDs := make(map[string]bool, len(owned))
	earnedCapstoneCats := make(map[string]bool)
	progressingCats := make(map[string]bool)
	for _, b := range owned {
		ownedIDs[b.ID] = true
		if b.Role() == models.RoleCapstone {
			earnedCapstoneCats[b.CategoryAward] = true
		}
		if b.Role() == models.RoleContributor {
			for _, c := range b.Categories {
				progressingCats[c] = true
			}
		}
	}

	var candidates, preferred []models.Badge
	for _, b := range all {
		if ownedIDs[b.ID] || b.Type == "offline" {
			continue
		}
		candidates = append(candidates, b)
		if b.Role() == models.RoleCapstone || b.Type == "participation" {
			continue
		}
		if s.touchesEarnedCategory(&b, earnedCapstoneCats) {
			continue
		}
		if !s.touchesAny(&b, progressingCats) {
			continue
		}
		preferred = append(preferred, b)
	}

	result := preferred
	if len(result) == 0 {
		rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		result = candidates
	}
	s.storeRecommendations(ctx, userID, result)
	return result, nil
}

// GetSimilar returns badges sharing at least one category with the given
// badge, excluding itself. When userID is set, badges the user already holds
// are excluded too.
func (s *RecommendationService) GetSimilar(badge *models.Badge, userID string) ([]models.Badge, error) {
	var all []models.Badge
	if err := s.DB.Where("id <> ?", badge.ID).Find(&all).Error; err != nil {
		return nil, err
	}

	ownedIDs := make(map[string]bool)
	if userID != "" {
		owned, err := s.ownedBadges(userID)
		if err != nil {
			return nil, err
		}
		for _, b := range owned {
			ownedIDs[b.ID] = true
		}
	}

	var similar []models.Badge
	for _, b := range all {
		if ownedIDs[b.ID] {
			continue
		}
		for _, c := range b.Categories {
			if badge.HasCategory(c) {
				similar = append(similar, b)
				break
			}
		}
	}
	return similar, nil
}

func (s *RecommendationService) ownedBadges(userID string) ([]models.Badge, error) {
	var owned []models.Badge
	err := s.DB.
		Joins("JOIN badge_instances ON badge_instances.badge_id = badges.id").
		Where("badge_instances.user_id = ?", userID).
		Find(&owned).Error
	return owned, err
}

func (s *RecommendationService) touchesEarnedCategory(b *models.Badge, earned map[string]bool) bool {
	for _, c := range b.Categories {
		if earned[c] {
			return true
		}
	}
	return false
}

func (s *RecommendationService) touchesAny(b *models.Badge, cats map[string]bool) bool {
	for _, c := range b.Categories {
		if cats[c] {
			return true
		}
	}
	return false
}

func (s *RecommendationService) cachedRecommendations(ctx context.Context, userID string) ([]models.Badge, bool) {
	if s.Cache == nil {
		return nil, false
	}
	raw, err := s.Cache.Get(ctx, recommendationKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var badges []models.Badge
	if err := json.Unmarshal(raw, &badges); err != nil {
		return nil, false
	}
	return badges, true
}

func (s *RecommendationService) storeRecommendations(ctx context.Context, userID string, badges []models.Badge) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(badges)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, recommendationKey(userID), raw, recommendationTTL).Err(); err != nil {
		s.Log.Warnw("recommendation cache write failed", "user", userID, "err", err)
	}
}

func recommendationKey(userID string) string {
	return "recommendations:" + userID
}
