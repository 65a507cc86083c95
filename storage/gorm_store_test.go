package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tcm-diagnosis/models"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// jede neue Verbindung wäre eine eigene, leere In-Memory-Datenbank
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := NewGormStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestCreateHerbs_SkipsExistingAndBlank(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateHerbs(ctx, []string{"ginseng", " licorice ", ""})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "ginseng", first[0].Name)
	assert.Equal(t, "licorice", first[1].Name)

	second, err := store.CreateHerbs(ctx, []string{"licorice", "astragalus", "licorice"})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first[1].ID, second[0].ID, "existing herb keeps its id")

	all, err := store.ListHerbs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAssociate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateHerbs(ctx, []string{"licorice"})
	require.NoError(t, err)
	_, err = store.CreateDiseases(ctx, []string{"cough", "fatigue"})
	require.NoError(t, err)

	assocs, err := store.Associate(ctx, "licorice", []string{"cough", "fatigue"})
	require.NoError(t, err)
	assert.Len(t, assocs, 2)

	// doppelte Kanten sind erlaubt
	_, err = store.Associate(ctx, "licorice", []string{"cough"})
	require.NoError(t, err)

	_, err = store.Associate(ctx, "licorice", []string{"cough", "insomnia"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Associate(ctx, "unicorn horn", []string{"cough"})
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := store.ListAssociations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3, "failed bulk association must not write partial rows")
}

func TestDeleteAssociation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateHerbs(ctx, []string{"ginseng"})
	require.NoError(t, err)
	_, err = store.CreateDiseases(ctx, []string{"fatigue"})
	require.NoError(t, err)
	assocs, err := store.Associate(ctx, "ginseng", []string{"fatigue"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteAssociation(ctx, assocs[0].ID))
	assert.ErrorIs(t, store.DeleteAssociation(ctx, assocs[0].ID), ErrNotFound)
}

func TestLoadEntities(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateHerbs(ctx, []string{"ginseng", "licorice"})
	require.NoError(t, err)
	_, err = store.CreateDiseases(ctx, []string{"fatigue"})
	require.NoError(t, err)
	_, err = store.Associate(ctx, "ginseng", []string{"fatigue"})
	require.NoError(t, err)

	ents, err := store.LoadEntities(ctx)
	require.NoError(t, err)
	assert.Len(t, ents.Herbs, 2)
	assert.Len(t, ents.Diseases, 1)
	require.Len(t, ents.Associations, 1)
	assert.Equal(t, ents.Herbs[0].ID, ents.Associations[0].HerbID)
}

func TestDiagnosisLogs_MostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []models.DiagnosisLog{
		{UserID: 1, Prescription: "a", DiagnosisResult: "[]", Timestamp: base},
		{UserID: 1, Prescription: "b", DiagnosisResult: "[]", Timestamp: base.Add(time.Minute)},
		{UserID: 2, Prescription: "c", DiagnosisResult: "[]", Timestamp: base.Add(2 * time.Minute)},
		{UserID: 1, Prescription: "d", DiagnosisResult: "[]", Timestamp: base.Add(time.Minute)},
	}
	for i := range entries {
		require.NoError(t, store.AppendDiagnosisLog(ctx, &entries[i]))
	}

	logs, err := store.DiagnosisLogs(ctx, 1)
	require.NoError(t, err)
	var got []string
	for _, l := range logs {
		got = append(got, l.Prescription)
	}
	assert.Equal(t, []string{"d", "b", "a"}, got)

	all, err := store.AllDiagnosisLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"ginseng", "licorice"}, SplitLines("ginseng\r\n\n licorice \nginseng"))
	assert.Empty(t, SplitLines("  \n"))
}
