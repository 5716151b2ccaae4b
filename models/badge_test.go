package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadgeRole(t *testing.T) {
	assert.Equal(t, RolePlain, (&Badge{}).Role())
	assert.Equal(t, RoleContributor, (&Badge{CategoryWeight: 3}).Role())
	assert.Equal(t, RoleCapstone, (&Badge{CategoryRequirement: 5}).Role())
	// capstone wins when both are set
	assert.Equal(t, RoleCapstone, (&Badge{CategoryWeight: 3, CategoryRequirement: 5}).Role())
}

func TestBadgeEarnableBy(t *testing.T) {
	badge := &Badge{Behaviors: map[string]int64{"link": 5, "comment": 2}}

	assert.False(t, badge.EarnableBy(map[string]int64{"link": 5}))
	assert.False(t, badge.EarnableBy(map[string]int64{"link": 4, "comment": 2}))
	assert.True(t, badge.EarnableBy(map[string]int64{"link": 5, "comment": 2}))
	assert.True(t, badge.EarnableBy(map[string]int64{"link": 9, "comment": 3, "vote": 1}))

	assert.True(t, (&Badge{}).EarnableBy(nil), "no behaviors means vacuously earnable")
}

func TestBadgeCreditsUntilAward(t *testing.T) {
	badge := &Badge{Behaviors: map[string]int64{"link": 5, "comment": 2}}

	gaps := badge.CreditsUntilAward(map[string]int64{"link": 3, "comment": 2})
	assert.Equal(t, map[string]int64{"link": 2}, gaps)

	assert.Empty(t, badge.CreditsUntilAward(map[string]int64{"link": 5, "comment": 4}))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "my-code", NormalizeCode("My Code"))
	assert.Equal(t, "my-code", NormalizeCode("  my   code  "))
	assert.Equal(t, "lucky-otter-42", NormalizeCode("lucky-otter-42"))
}

func TestClaimCodeClaimed(t *testing.T) {
	assert.False(t, (&ClaimCode{}).Claimed())
	assert.True(t, (&ClaimCode{ClaimedBy: "user-1"}).Claimed())
	// multi-use codes are never reported as claimed
	assert.False(t, (&ClaimCode{ClaimedBy: "user-1", Multi: true}).Claimed())
}

func TestUserBadgeKey(t *testing.T) {
	assert.Equal(t, "user-1.badge-9", UserBadgeKey("user-1", "badge-9"))
}
