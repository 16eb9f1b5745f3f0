package addresses

import (
	"context"
	"testing"
	"time"

	"github.com/JhnOkall/avenuefashion-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAddressTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	addresses := `
CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  recipient_name TEXT NOT NULL,
  phone TEXT NOT NULL,
  street_address TEXT NOT NULL,
  country_id TEXT NOT NULL,
  county_id TEXT NOT NULL,
  city_id TEXT NOT NULL,
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	countries := `
CREATE TABLE IF NOT EXISTS countries (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	counties := `
CREATE TABLE IF NOT EXISTS counties (
  id TEXT PRIMARY KEY,
  country_id TEXT NOT NULL,
  name TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	cities := `
CREATE TABLE IF NOT EXISTS cities (
  id TEXT PRIMARY KEY,
  county_id TEXT NOT NULL,
  name TEXT NOT NULL,
  delivery_fee NUMERIC NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(addresses).Error)
	require.NoError(t, db.Exec(countries).Error)
	require.NoError(t, db.Exec(counties).Error)
	require.NoError(t, db.Exec(cities).Error)
	return db
}

func seedAddress(t *testing.T, db *gorm.DB, userID uuid.UUID, isDefault bool, createdAt time.Time) *models.Address {
	t.Helper()

	address := &models.Address{
		ID:            uuid.New(),
		UserID:        userID,
		RecipientName: "Test Recipient",
		Phone:         "+254700000000",
		StreetAddress: "Kenyatta Avenue 1",
		CountryID:     uuid.New(),
		CountyID:      uuid.New(),
		CityID:        uuid.New(),
		IsDefault:     isDefault,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	require.NoError(t, db.Create(address).Error)
	return address
}

func TestRepositoryListByUserOrdering(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	older := seedAddress(t, db, userID, false, base)
	newer := seedAddress(t, db, userID, false, base.Add(time.Hour))
	def := seedAddress(t, db, userID, true, base.Add(-time.Hour))
	seedAddress(t, db, uuid.New(), true, base)

	listed, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, def.ID, listed[0].ID)
	assert.Equal(t, newer.ID, listed[1].ID)
	assert.Equal(t, older.ID, listed[2].ID)
}

func TestRepositoryFindByIDNotFound(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryCountByUser(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	now := time.Now().UTC()
	seedAddress(t, db, userID, true, now)
	seedAddress(t, db, userID, false, now)
	seedAddress(t, db, uuid.New(), false, now)

	count, err := repo.CountByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepositoryDemoteDefaultsScopedToUser(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	otherID := uuid.New()
	now := time.Now().UTC()
	mine := seedAddress(t, db, userID, true, now)
	theirs := seedAddress(t, db, otherID, true, now)

	require.NoError(t, repo.DemoteDefaults(ctx, userID))

	demoted, err := repo.FindByID(ctx, mine.ID)
	require.NoError(t, err)
	assert.False(t, demoted.IsDefault)

	untouched, err := repo.FindByID(ctx, theirs.ID)
	require.NoError(t, err)
	assert.True(t, untouched.IsDefault)
}

func TestRepositoryMostRecentlyUpdated(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedAddress(t, db, userID, false, base)
	recent := seedAddress(t, db, userID, false, base.Add(2*time.Hour))
	seedAddress(t, db, userID, false, base.Add(time.Hour))

	found, err := repo.MostRecentlyUpdated(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, recent.ID, found.ID)

	_, err = repo.MostRecentlyUpdated(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryDelete(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	address := seedAddress(t, db, userID, false, time.Now().UTC())
	require.NoError(t, repo.Delete(ctx, address.ID))

	_, err := repo.FindByID(ctx, address.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
