package services

import (
	"testing"

	"badge-award-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodeService(t *testing.T, phrases PhraseGenerator) (*ClaimCodeService, *models.Badge) {
	t.Helper()
	db := newTestDB(t)
	svc := NewClaimCodeService(db, phrases, testLogger())
	badge := mustCreateBadge(t, db, &models.Badge{Name: "Link Crew", ShortName: "link-crew"})
	return svc, badge
}

func TestAddClaimCodesDedupsBatch(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})

	accepted, rejected, err := svc.AddClaimCodes(badge, []string{"a", "a", "b"}, -1, false, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, accepted)
	assert.Empty(t, rejected)
}

func TestAddClaimCodesLimit(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})

	accepted, rejected, err := svc.AddClaimCodes(badge, []string{"a"}, 0, false, "", false)
	require.NoError(t, err)
	assert.Empty(t, accepted)
	assert.Equal(t, []string{"a"}, rejected)

	accepted, rejected, err = svc.AddClaimCodes(badge, []string{"x", "y", "z"}, 2, false, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, accepted)
	assert.Equal(t, []string{"z"}, rejected)
}

func TestAddClaimCodesGlobalNamespace(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})
	other := mustCreateBadge(t, svc.DB, &models.Badge{Name: "Other", ShortName: "other"})

	_, _, err := svc.AddClaimCodes(badge, []string{"shared-token"}, -1, false, "", false)
	require.NoError(t, err)

	// same code on a different badge collides store-wide
	accepted, rejected, err := svc.AddClaimCodes(other, []string{"shared-token", "fresh"}, -1, false, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, accepted)
	assert.Equal(t, []string{"shared-token"}, rejected)
}

func TestAddClaimCodesReservedForRequiresSingleCode(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})

	_, _, err := svc.AddClaimCodes(badge, []string{"a", "b"}, -1, false, "someone@example.org", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	accepted, _, err := svc.AddClaimCodes(badge, []string{"a"}, -1, false, "someone@example.org", false)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, accepted)

	cc, err := svc.GetClaimCode("a")
	require.NoError(t, err)
	require.NotNil(t, cc)
	assert.Equal(t, "someone@example.org", cc.ReservedFor)
}

func TestAddClaimCodesNormalizesInput(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})

	accepted, _, err := svc.AddClaimCodes(badge, []string{"  My Code  "}, -1, false, "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-code"}, accepted)
}

func TestGenerateClaimCodesExactCount(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})

	// pre-claim the first two phrases the generator will produce
	_, _, err := svc.AddClaimCodes(badge, []string{"word-0", "word-1"}, -1, false, "", false)
	require.NoError(t, err)

	codes, err := svc.GenerateClaimCodes(badge, 3, "")
	require.NoError(t, err)
	require.Len(t, codes, 3)

	seen := map[string]bool{"word-0": true, "word-1": true}
	for _, code := range codes {
		assert.False(t, seen[code], "code %q not distinct", code)
		seen[code] = true
	}
}

func TestGenerateClaimCodesReservedForcesOne(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})

	codes, err := svc.GenerateClaimCodes(badge, 5, "vip@example.org")
	require.NoError(t, err)
	require.Len(t, codes, 1)

	cc, err := svc.GetClaimCode(codes[0])
	require.NoError(t, err)
	require.NotNil(t, cc)
	assert.Equal(t, "vip@example.org", cc.ReservedFor)
}

func TestGenerateClaimCodesExhaustion(t *testing.T) {
	svc, badge := newCodeService(t, stuckPhrases{})

	_, _, err := svc.AddClaimCodes(badge, []string{"stuck-token"}, -1, false, "", false)
	require.NoError(t, err)

	_, err = svc.GenerateClaimCodes(badge, 1, "")
	assert.ErrorIs(t, err, ErrGeneratorExhausted)
}

func TestGetClaimCodeNormalizesLookup(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})

	_, _, err := svc.AddClaimCodes(badge, []string{"my-code"}, -1, false, "", false)
	require.NoError(t, err)

	cc, err := svc.GetClaimCode("My Code")
	require.NoError(t, err)
	require.NotNil(t, cc)
	assert.Equal(t, "my-code", cc.Code)

	missing, err := svc.GetClaimCode("never-created")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRedeemClaimCodeIdempotentForSameUser(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})
	_, _, err := svc.AddClaimCodes(badge, []string{"solo"}, -1, false, "", false)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ok, found, err := svc.RedeemClaimCode("solo", "user-1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.True(t, ok)
	}

	cc, _ := svc.GetClaimCode("solo")
	assert.Equal(t, "user-1", cc.ClaimedBy)
}

func TestRedeemClaimCodeRejectsSecondUser(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})
	_, _, err := svc.AddClaimCodes(badge, []string{"solo"}, -1, false, "", false)
	require.NoError(t, err)

	_, _, err = svc.RedeemClaimCode("solo", "user-1")
	require.NoError(t, err)

	ok, found, err := svc.RedeemClaimCode("solo", "user-2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, ok)

	// state unchanged
	cc, _ := svc.GetClaimCode("solo")
	assert.Equal(t, "user-1", cc.ClaimedBy)
}

func TestRedeemClaimCodeUnknownCode(t *testing.T) {
	svc, _ := newCodeService(t, &seqPhrases{})

	ok, found, err := svc.RedeemClaimCode("ghost", "user-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, ok)
}

func TestMultiUseCodeNeverClaimed(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})
	_, _, err := svc.AddClaimCodes(badge, []string{"party"}, -1, true, "", false)
	require.NoError(t, err)

	ok, _, err := svc.RedeemClaimCode("party", "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = svc.RedeemClaimCode("party", "user-2")
	require.NoError(t, err)
	assert.True(t, ok)

	claimed, found, err := svc.ClaimCodeIsClaimed("party")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, claimed)

	// remembers the most recent claimant
	cc, _ := svc.GetClaimCode("party")
	assert.Equal(t, "user-2", cc.ClaimedBy)
}

func TestRedeemReservedCode(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})
	_, _, err := svc.AddClaimCodes(badge, []string{"held"}, -1, false, "vip@example.org", false)
	require.NoError(t, err)

	ok, found, err := svc.RedeemClaimCode("held", "someone-else")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, ok)

	ok, _, err = svc.RedeemClaimCode("held", "vip@example.org")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseClaimCode(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})
	_, _, err := svc.AddClaimCodes(badge, []string{"solo"}, -1, false, "", false)
	require.NoError(t, err)
	_, _, err = svc.RedeemClaimCode("solo", "user-1")
	require.NoError(t, err)

	found, err := svc.ReleaseClaimCode("solo")
	require.NoError(t, err)
	assert.True(t, found)

	claimed, _, err := svc.ClaimCodeIsClaimed("solo")
	require.NoError(t, err)
	assert.False(t, claimed)

	// released codes can be redeemed by someone new
	ok, _, err := svc.RedeemClaimCode("solo", "user-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveClaimCode(t *testing.T) {
	svc, badge := newCodeService(t, &seqPhrases{})
	_, _, err := svc.AddClaimCodes(badge, []string{"doomed"}, -1, false, "", false)
	require.NoError(t, err)

	found, err := svc.RemoveClaimCode("doomed")
	require.NoError(t, err)
	assert.True(t, found)

	cc, err := svc.GetClaimCode("doomed")
	require.NoError(t, err)
	assert.Nil(t, cc)

	found, err = svc.RemoveClaimCode("doomed")
	require.NoError(t, err)
	assert.False(t, found)
}
