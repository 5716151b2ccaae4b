package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRole(t *testing.T) {
	assert.NoError(t, validateRole(&BadgePayload{Name: "Plain"}))
	assert.NoError(t, validateRole(&BadgePayload{Name: "Contributor", CategoryWeight: 3}))
	assert.NoError(t, validateRole(&BadgePayload{Name: "Capstone", CategoryAward: "science", CategoryRequirement: 5}))

	// capstone and contributor are mutually exclusive
	assert.Error(t, validateRole(&BadgePayload{Name: "Both", CategoryWeight: 3, CategoryRequirement: 5, CategoryAward: "science"}))

	// a requirement without a category to award is meaningless
	assert.Error(t, validateRole(&BadgePayload{Name: "Aimless", CategoryRequirement: 5}))

	// an award with no positive requirement would match every score
	assert.Error(t, validateRole(&BadgePayload{Name: "Ghost", CategoryAward: "science"}))
}
