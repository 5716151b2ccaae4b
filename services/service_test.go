package services

import (
	"fmt"
	"sync"
	"testing"

	"badge-award-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Badge{},
		&models.ClaimCode{},
		&models.BadgeInstance{},
		&models.Credit{},
	))
	return db
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// seqPhrases hands out "word-0", "word-1", ... deterministically.
type seqPhrases struct {
	next int
}

func (p *seqPhrases) Generate(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("word-%d", p.next))
		p.next++
	}
	return out
}

// stuckPhrases returns the same token forever, simulating a saturated
// namespace.
type stuckPhrases struct{}

func (stuckPhrases) Generate(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "stuck-token"
	}
	return out
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	Events []string
}

func (r *recordingNotifier) Notify(userID string, badge *models.Badge, instance *models.BadgeInstance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, userID+":"+badge.ShortName)
}

func mustCreateBadge(t *testing.T, db *gorm.DB, badge *models.Badge) *models.Badge {
	t.Helper()
	require.NoError(t, db.Create(badge).Error)
	return badge
}
