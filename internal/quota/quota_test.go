package quota

import (
	"path/filepath"
	"testing"
	"websync/sync-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	d, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, d.AutoMigrate(&model.User{}))

	return d
}

func seedUser(t *testing.T, d *gorm.DB, limit, used int64) string {
	t.Helper()

	u := model.User{
		ID:           "u-quota",
		Email:        "quota@example.com",
		Role:         model.RoleUser,
		StorageLimit: limit,
		StorageUsed:  used,
	}
	require.NoError(t, d.Create(&u).Error)

	return u.ID
}

func usedBytes(t *testing.T, d *gorm.DB, id string) int64 {
	t.Helper()

	var u model.User
	require.NoError(t, d.First(&u, "id = ?", id).Error)

	return u.StorageUsed
}

func TestReserve(t *testing.T) {
	d := newTestDB(t)
	id := seedUser(t, d, 1000, 400)

	assert.NoError(t, Reserve(d, id, 600))
	assert.ErrorIs(t, Reserve(d, id, 601), ErrQuotaExceeded)
	assert.NoError(t, Reserve(d, id, 0))
}

func TestReserveUnknownUser(t *testing.T) {
	d := newTestDB(t)

	err := Reserve(d, "nope", 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCommitAppliesDelta(t *testing.T) {
	d := newTestDB(t)
	id := seedUser(t, d, 1000, 400)

	require.NoError(t, Commit(d, id, 250))
	assert.Equal(t, int64(650), usedBytes(t, d, id))

	require.NoError(t, Commit(d, id, -600))
	assert.Equal(t, int64(50), usedBytes(t, d, id))
}

func TestCommitClampsAtZero(t *testing.T) {
	d := newTestDB(t)
	id := seedUser(t, d, 1000, 100)

	// A delete larger than the ledger balance must not drive it negative
	require.NoError(t, Commit(d, id, -500))
	assert.Equal(t, int64(0), usedBytes(t, d, id))
}
