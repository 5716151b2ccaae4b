package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"badge-award-system/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier delivers award/reservation notices to an external channel
// (email gateway, webhook). Implementations must never block the award path;
// delivery failures are logged, not returned.
type Notifier interface {
	Notify(userID string, badge *models.Badge, instance *models.BadgeInstance)
}

// NopNotifier is used when no delivery channel is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(string, *models.Badge, *models.BadgeInstance) {}

type AwardService struct {
	DB       *gorm.DB
	Notifier Notifier
	Codes    *ClaimCodeService
	Log      *zap.SugaredLogger
}

func NewAwardService(db *gorm.DB, notifier Notifier, codes *ClaimCodeService, log *zap.SugaredLogger) *AwardService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AwardService{DB: db, Notifier: notifier, Codes: codes, Log: log}
}

// CreditTally returns the user's per-behavior credit counts.
func (s *AwardService) CreditTally(userID string) (map[string]int64, error) {
	var credits []models.Credit
	if err := s.DB.Where("user_id = ?", userID).Find(&credits).Error; err != nil {
		return nil, err
	}
	tally := make(map[string]int64, len(credits))
	for _, c := range credits {
		tally[c.Behavior] = c.Count
	}
	return tally, nil
}

// EarnableBy reports whether the user's credits satisfy every behavior
// threshold on the badge.
func (s *AwardService) EarnableBy(badge *models.Badge, userID string) (bool, error) {
	tally, err := s.CreditTally(userID)
	if err != nil {
		return false, err
	}
	return badge.EarnableBy(tally), nil
}

// CreditsUntilAward returns the remaining gap per unmet behavior.
func (s *AwardService) CreditsUntilAward(badge *models.Badge, userID string) (map[string]int64, error) {
	tally, err := s.CreditTally(userID)
	if err != nil {
		return nil, err
	}
	return badge.CreditsUntilAward(tally), nil
}

// HoldsBadge reports whether the user already owns an instance of the badge.
func (s *AwardService) HoldsBadge(badgeID, userID string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.BadgeInstance{}).
		Where("user_badge_key = ?", models.UserBadgeKey(userID, badgeID)).
		Count(&count).Error
	return count > 0, err
}

// Award issues the badge to the user and runs category cascades. A duplicate
// award is a silent no-op (nil instance, nil error). Cascaded capstone awards
// are returned flattened; a failure mid-cascade aborts the remaining
// worklist but never rolls back instances already written.
func (s *AwardService) Award(badge *models.Badge, userID string, sendEmail bool) (*models.BadgeInstance, []*models.BadgeInstance, error) {
	inst, fresh, err := s.createInstance(badge, userID)
	if err != nil {
		return nil, nil, err
	}
	if !fresh {
		return nil, nil, nil
	}
	s.Log.Infow("badge awarded", "badge", badge.ShortName, "user", userID)
	if sendEmail {
		s.Notifier.Notify(userID, badge, inst)
	}
	cascaded, err := s.cascade(badge, userID)
	return inst, cascaded, err
}

// cascade walks category fan-out iteratively: each newly awarded contributor
// badge is pushed onto the worklist, its categories are scored, and any
// unheld capstone whose requirement is met gets awarded (notification always
// on for cascades). Sequential per category to bound amplification.
func (s *AwardService) cascade(origin *models.Badge, userID string) ([]*models.BadgeInstance, error) {
	var out []*models.BadgeInstance
	queue := []*models.Badge{origin}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if b.CategoryWeight <= 0 || b.CategoryRequirement > 0 {
			continue // only contributors fan out
		}
		for _, category := range b.Categories {
			// requirement > 0 guards against malformed capstones that would
			// otherwise auto-award on any score
			var capstones []models.Badge
			if err := s.DB.Where("category_award = ? AND category_requirement > 0", category).Find(&capstones).Error; err != nil {
				return out, err
			}
			if len(capstones) == 0 {
				continue
			}
			score, err := s.CategoryScore(userID, category)
			if err != nil {
				return out, err
			}
			for i := range capstones {
				capstone := &capstones[i]
				if score < capstone.CategoryRequirement {
					continue
				}
				inst, fresh, err := s.createInstance(capstone, userID)
				if err != nil {
					return out, err
				}
				if !fresh {
					continue
				}
				s.Log.Infow("capstone badge cascaded", "badge", capstone.ShortName, "category", category, "user", userID, "score", score)
				s.Notifier.Notify(userID, capstone, inst)
				out = append(out, inst)
				queue = append(queue, capstone)
			}
		}
	}
	return out, nil
}

// CategoryScore sums the weights of the user's owned badges tagged with the
// category.
func (s *AwardService) CategoryScore(userID, category string) (int64, error) {
	var owned []models.Badge
	err := s.DB.
		Joins("JOIN badge_instances ON badge_instances.badge_id = badges.id").
		Where("badge_instances.user_id = ?", userID).
		Find(&owned).Error
	if err != nil {
		return 0, err
	}
	var score int64
	for _, b := range owned {
		if b.HasCategory(category) {
			score += b.CategoryWeight
		}
	}
	return score, nil
}

// AwardCredits bumps the user's tallies for the given behaviors, then awards
// every badge that just became earnable. Returns all instances created,
// cascades included.
func (s *AwardService) AwardCredits(userID string, behaviors ...string) ([]*models.BadgeInstance, error) {
	for _, behavior := range behaviors {
		var credit models.Credit
		err := s.DB.Where("user_id = ? AND behavior = ?", userID, behavior).First(&credit).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			credit = models.Credit{UserID: userID, Behavior: behavior, Count: 1}
			if err := s.DB.Create(&credit).Error; err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		credit.Count++
		if err := s.DB.Save(&credit).Error; err != nil {
			return nil, err
		}
	}

	tally, err := s.CreditTally(userID)
	if err != nil {
		return nil, err
	}
	var candidates []models.Badge
	if err := s.DB.Find(&candidates).Error; err != nil {
		return nil, err
	}

	var awarded []*models.BadgeInstance
	for i := range candidates {
		badge := &candidates[i]
		if len(badge.Behaviors) == 0 || !badge.EarnableBy(tally) {
			continue
		}
		inst, cascaded, err := s.Award(badge, userID, true)
		if err != nil {
			return awarded, err
		}
		if inst != nil {
			awarded = append(awarded, inst)
		}
		awarded = append(awarded, cascaded...)
	}
	return awarded, nil
}

// ReserveAndNotify generates one claim code reserved for the user and tells
// them a badge is waiting. No-op (empty code) when the badge is already held.
func (s *AwardService) ReserveAndNotify(badge *models.Badge, userID string) (string, error) {
	held, err := s.HoldsBadge(badge.ID, userID)
	if err != nil {
		return "", err
	}
	if held {
		return "", nil
	}
	codes, err := s.Codes.GenerateClaimCodes(badge, 1, userID)
	if err != nil {
		return "", err
	}
	s.Notifier.Notify(userID, badge, nil)
	return codes[0], nil
}

// MarkSeen flips the only mutable bit on an instance.
func (s *AwardService) MarkSeen(instanceID, userID string) (found bool, err error) {
	res := s.DB.Model(&models.BadgeInstance{}).
		Where("id = ? AND user_id = ?", instanceID, userID).
		Update("seen", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListInstances returns the user's earned badges, newest first.
func (s *AwardService) ListInstances(userID string) ([]models.BadgeInstance, error) {
	var instances []models.BadgeInstance
	err := s.DB.Where("user_id = ?", userID).Order("issued_on DESC").Find(&instances).Error
	return instances, err
}

// PurgeUserData deletes everything tied to a user account: instances,
// credits, and claims on their codes (codes themselves reopen).
func (s *AwardService) PurgeUserData(userID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.BadgeInstance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Credit{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.ClaimCode{}).Where("claimed_by = ?", userID).Update("claimed_by", "").Error
	})
}

// createInstance persists a new BadgeInstance with its assertion payload.
// fresh is false when the store reports the (user, badge) key already exists.
func (s *AwardService) createInstance(badge *models.Badge, userID string) (inst *models.BadgeInstance, fresh bool, err error) {
	assertion, hash := buildAssertion(badge, userID)
	inst = &models.BadgeInstance{
		UserID:    userID,
		BadgeID:   badge.ID,
		Assertion: assertion,
		Hash:      hash,
		IssuedOn:  time.Now(),
	}
	if err := s.DB.Create(inst).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return inst, true, nil
}

// buildAssertion serializes the award evidence: salted sha256 recipient,
// badge reference, issue time. The returned hash fingerprints the payload.
func buildAssertion(badge *models.Badge, userID string) (payload, hash string) {
	salt := uuid.NewString()[:8]
	recipient := sha256.Sum256([]byte(userID + salt))
	body, _ := json.Marshal(map[string]interface{}{
		"recipient": "sha256$" + hex.EncodeToString(recipient[:]),
		"salt":      salt,
		"badge":     badge.ShortName,
		"issued_on": time.Now().Unix(),
	})
	sum := sha256.Sum256(body)
	return string(body), hex.EncodeToString(sum[:])
}
