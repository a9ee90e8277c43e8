package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/alder/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "alder.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestMigrateCreatesSchemaAndSeeds(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	m := NewMigrator(db)

	applied, err := m.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	for _, table := range []string{"interviews", "exams", "images", "modalities", "ratings", "users", "user_modalities"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	var modalities []models.Modality
	require.NoError(t, db.Order("id").Find(&modalities).Error)
	require.Len(t, modalities, 3)
	assert.Equal(t, models.ModalityUltrasound, modalities[0].Name)

	again, err := m.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestStatusAndRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	m := NewMigrator(db)

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.False(t, statuses[0].Applied)

	_, err = m.Migrate(ctx)
	require.NoError(t, err)

	rolled, err := m.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rolled.Version)

	var count int64
	require.NoError(t, db.Model(&models.Modality{}).Count(&count).Error)
	assert.Zero(t, count)

	statuses, err = m.Status(ctx)
	require.NoError(t, err)
	assert.True(t, statuses[0].Applied)
	assert.False(t, statuses[1].Applied)
}
