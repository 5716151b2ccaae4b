package services

import (
	"errors"
	"fmt"

	"badge-award-system/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PhraseGenerator produces n distinct human-readable tokens per call
// (lowercase, hyphen-joined, no spaces). Swappable; tests use a stub.
type PhraseGenerator interface {
	Generate(n int) []string
}

// generateMaxRounds bounds the retry loop in GenerateClaimCodes so a
// saturated code namespace fails fast instead of spinning forever.
const generateMaxRounds = 5

type ClaimCodeService struct {
	DB      *gorm.DB
	Phrases PhraseGenerator
	Log     *zap.SugaredLogger
}

func NewClaimCodeService(db *gorm.DB, phrases PhraseGenerator, log *zap.SugaredLogger) *ClaimCodeService {
	return &ClaimCodeService{DB: db, Phrases: phrases, Log: log}
}

// AddClaimCodes attaches candidate codes to a badge. Codes already in use on
// any badge are rejected, as is everything past limit accepted so far
// (limit < 0 means unlimited). reservedFor is only valid for a single code.
// Returned slices preserve input order. alreadyClean skips the in-batch
// dedup when the caller guarantees distinct input.
func (s *ClaimCodeService) AddClaimCodes(badge *models.Badge, codes []string, limit int, multi bool, reservedFor string, alreadyClean bool) (accepted, rejected []string, err error) {
	cleaned := make([]string, 0, len(codes))
	if alreadyClean {
		for _, c := range codes {
			cleaned = append(cleaned, models.NormalizeCode(c))
		}
	} else {
		seen := make(map[string]bool, len(codes))
		for _, c := range codes {
			norm := models.NormalizeCode(c)
			if norm == "" || seen[norm] {
				continue
			}
			seen[norm] = true
			cleaned = append(cleaned, norm)
		}
	}

	if reservedFor != "" && len(cleaned) != 1 {
		return nil, nil, fmt.Errorf("%w: reservedFor requires exactly one code, got %d", ErrInvalidArgument, len(cleaned))
	}

	// One indexed lookup against the global namespace. Best effort: a racing
	// insert between this read and ours surfaces as a duplicate-key rejection
	// below, never as corruption.
	var existing []string
	if len(cleaned) > 0 {
		if err := s.DB.Model(&models.ClaimCode{}).Where("code IN ?", cleaned).Pluck("code", &existing).Error; err != nil {
			return nil, nil, err
		}
	}
	taken := make(map[string]bool, len(existing))
	for _, c := range existing {
		taken[c] = true
	}

	accepted = make([]string, 0, len(cleaned))
	rejected = make([]string, 0)
	for _, code := range cleaned {
		if taken[code] || (limit >= 0 && len(accepted) >= limit) {
			rejected = append(rejected, code)
			continue
		}
		cc := models.ClaimCode{
			BadgeID:     badge.ID,
			Code:        code,
			Multi:       multi,
			ReservedFor: reservedFor,
		}
		if err := s.DB.Create(&cc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				s.Log.Debugw("claim code lost uniqueness race", "code", code, "badge", badge.ShortName)
				rejected = append(rejected, code)
				continue
			}
			return nil, nil, err
		}
		accepted = append(accepted, code)
	}
	return accepted, rejected, nil
}

// GenerateClaimCodes asks the phrase generator for candidates until exactly
// count codes have been accepted into the global namespace. Colliding
// candidates are discarded and regenerated. A reservedFor recipient forces
// count to 1.
func (s *ClaimCodeService) GenerateClaimCodes(badge *models.Badge, count int, reservedFor string) ([]string, error) {
	if reservedFor != "" {
		count = 1
	}
	if count <= 0 {
		return nil, nil
	}

	accepted := make([]string, 0, count)
	for round := 0; len(accepted) < count; round++ {
		if round >= generateMaxRounds {
			return nil, fmt.Errorf("%w: %d of %d codes unassigned after %d rounds",
				ErrGeneratorExhausted, count-len(accepted), count, generateMaxRounds)
		}
		batch := s.Phrases.Generate(count - len(accepted))
		got, dropped, err := s.AddClaimCodes(badge, batch, count-len(accepted), false, reservedFor, true)
		if err != nil {
			return nil, err
		}
		if len(dropped) > 0 {
			s.Log.Debugw("discarded colliding claim codes", "badge", badge.ShortName, "count", len(dropped))
		}
		accepted = append(accepted, got...)
	}
	return accepted, nil
}

// GetClaimCode looks up a code by raw user input; nil when absent.
func (s *ClaimCodeService) GetClaimCode(raw string) (*models.ClaimCode, error) {
	var cc models.ClaimCode
	err := s.DB.Where("code = ?", models.NormalizeCode(raw)).First(&cc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cc, nil
}

// ClaimCodeIsClaimed reports whether a single-use code has been redeemed.
// found is false when the code does not exist.
func (s *ClaimCodeService) ClaimCodeIsClaimed(raw string) (claimed, found bool, err error) {
	cc, err := s.GetClaimCode(raw)
	if err != nil || cc == nil {
		return false, false, err
	}
	return cc.Claimed(), true, nil
}

// RedeemClaimCode marks a code claimed by the user. ok is false when the code
// exists but someone else holds it (or it is reserved for someone else);
// found is false when the code does not exist. Redeeming a code you already
// hold succeeds again without changing state.
func (s *ClaimCodeService) RedeemClaimCode(raw, userID string) (ok, found bool, err error) {
	cc, err := s.GetClaimCode(raw)
	if err != nil || cc == nil {
		return false, false, err
	}
	if cc.ReservedFor != "" && cc.ReservedFor != userID {
		return false, true, nil
	}
	if !cc.Multi && cc.ClaimedBy != "" && cc.ClaimedBy != userID {
		return false, true, nil
	}
	if cc.ClaimedBy == userID {
		return true, true, nil
	}
	cc.ClaimedBy = userID
	if err := s.DB.Save(cc).Error; err != nil {
		return false, true, err
	}
	return true, true, nil
}

// ReleaseClaimCode reopens a code by clearing its claimant.
func (s *ClaimCodeService) ReleaseClaimCode(raw string) (found bool, err error) {
	cc, err := s.GetClaimCode(raw)
	if err != nil || cc == nil {
		return false, err
	}
	if err := s.DB.Model(cc).Update("claimed_by", "").Error; err != nil {
		return true, err
	}
	return true, nil
}

// RemoveClaimCode deletes a code outright, whatever its state.
func (s *ClaimCodeService) RemoveClaimCode(raw string) (found bool, err error) {
	cc, err := s.GetClaimCode(raw)
	if err != nil || cc == nil {
		return false, err
	}
	if err := s.DB.Delete(cc).Error; err != nil {
		return true, err
	}
	return true, nil
}

// ListClaimCodes returns every code attached to a badge.
func (s *ClaimCodeService) ListClaimCodes(badgeID string) ([]models.ClaimCode, error) {
	var codes []models.ClaimCode
	err := s.DB.Where("badge_id = ?", badgeID).Order("created_at ASC").Find(&codes).Error
	return codes, err
}
