package repository

import (
	"context"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemedesk/district-kb/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: ":memory:"}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.DB.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func seedDocument(t *testing.T, db *DB, districtName, fileName, date string) (districtID, documentID int64) {
	t.Helper()
	ctx := context.Background()
	districts := NewDistrictRepository(db, testLogger())
	documents := NewDocumentRepository(db, testLogger())

	d, err := districts.GetOrCreate(ctx, districtName)
	require.NoError(t, err)
	docID, err := documents.Create(ctx, &entity.Document{
		DistrictID: d.ID,
		FileName:   fileName,
		FilePath:   "/tmp/" + fileName,
		UploadDate: date,
		UploadedBy: "tester",
		RawText:    "raw report text",
	})
	require.NoError(t, err)
	return d.ID, docID
}

func recordJSON(t *testing.T, actionName string, pct float64) []byte {
	t.Helper()
	rec := entity.NewSubCategoryRecord()
	rec.ActionPoints = append(rec.ActionPoints, entity.ActionPoint{
		ActionName:            actionName,
		AchievementPercentage: &pct,
	})
	data, err := entity.MarshalRecord(rec)
	require.NoError(t, err)
	return data
}

func TestStoreLatestKeepsSingleLatestRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	districtID, docID := seedDocument(t, db, "Papum Pare", "jan.txt", "2026-01-15")
	repo := NewExtractionRepository(db, testLogger())

	first := StoreLatestParams{
		DocumentID: docID, DistrictID: districtID,
		SectorName: "Health", SubCategory: "Immunization",
		DataJSON: recordJSON(t, "Measles drive", 50), VersionDate: "2026-01-15",
	}
	require.NoError(t, repo.StoreLatest(ctx, first))

	second := first
	second.DataJSON = recordJSON(t, "Measles drive", 80)
	second.VersionDate = "2026-02-20"
	require.NoError(t, repo.StoreLatest(ctx, second))

	// Exactly one is_latest row for the key.
	query, args, err := db.Builder().
		Select("COUNT(*)").From("extractions").
		Where(sq.Eq{"district_id": districtID, "sector_name": "Health",
			"sub_category": "Immunization", "is_latest": true}).ToSql()
	require.NoError(t, err)
	var latestCount int
	require.NoError(t, db.QueryRowContext(ctx, query, args...).Scan(&latestCount))
	assert.Equal(t, 1, latestCount)

	// Both versions retained.
	query, args, err = db.Builder().
		Select("COUNT(*)").From("extractions").
		Where(sq.Eq{"district_id": districtID, "sector_name": "Health", "sub_category": "Immunization"}).ToSql()
	require.NoError(t, err)
	var total int
	require.NoError(t, db.QueryRowContext(ctx, query, args...).Scan(&total))
	assert.Equal(t, 2, total)

	rec, err := repo.GetLatestRecord(ctx, districtID, "Health", "Immunization")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 80.0, *rec.ActionPoints[0].AchievementPercentage)
}

func TestGetLatestRecordMissingKeyReturnsNil(t *testing.T) {
	db := openTestDB(t)
	repo := NewExtractionRepository(db, testLogger())

	rec, err := repo.GetLatestRecord(context.Background(), 42, "Health", "Immunization")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestListLatestFilters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	districtID, docID := seedDocument(t, db, "Papum Pare", "jan.txt", "2026-01-15")
	repo := NewExtractionRepository(db, testLogger())

	for _, key := range []struct{ sector, sub string }{
		{"Health", "Immunization"},
		{"Health", "Infrastructure"},
		{"Education", "Enrollment"},
	} {
		require.NoError(t, repo.StoreLatest(ctx, StoreLatestParams{
			DocumentID: docID, DistrictID: districtID,
			SectorName: key.sector, SubCategory: key.sub,
			DataJSON: recordJSON(t, "some action", 10), VersionDate: "2026-01-15",
		}))
	}

	all, err := repo.ListLatest(ctx, districtID, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "jan.txt", all[0].FileName)

	health, err := repo.ListLatest(ctx, districtID, "Health", "")
	require.NoError(t, err)
	assert.Len(t, health, 2)

	one, err := repo.ListLatest(ctx, districtID, "Health", "Immunization")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.True(t, one[0].IsLatest)
}

func TestListHistoryNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	districtID, docJan := seedDocument(t, db, "Papum Pare", "jan.txt", "2026-01-15")
	_, docFeb := seedDocument(t, db, "Papum Pare", "feb.txt", "2026-02-20")
	repo := NewExtractionRepository(db, testLogger())

	require.NoError(t, repo.StoreLatest(ctx, StoreLatestParams{
		DocumentID: docJan, DistrictID: districtID,
		SectorName: "Health", SubCategory: "Immunization",
		DataJSON: recordJSON(t, "Measles drive", 50), VersionDate: "2026-01-15",
	}))
	require.NoError(t, repo.StoreLatest(ctx, StoreLatestParams{
		DocumentID: docFeb, DistrictID: districtID,
		SectorName: "Health", SubCategory: "Immunization",
		DataJSON: recordJSON(t, "Measles drive", 80), VersionDate: "2026-02-20",
	}))

	history, err := repo.ListHistory(ctx, districtID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2026-02-20", history[0].VersionDate)
	assert.True(t, history[0].IsLatest)
	assert.Equal(t, "2026-01-15", history[1].VersionDate)
	assert.False(t, history[1].IsLatest)
	assert.Equal(t, "tester", history[0].UploadedBy)
}

func TestCategoriesGroupsBySector(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	districtID, docID := seedDocument(t, db, "Papum Pare", "jan.txt", "2026-01-15")
	repo := NewExtractionRepository(db, testLogger())

	for _, key := range []struct{ sector, sub string }{
		{"Education", "Enrollment"},
		{"Health", "Immunization"},
		{"Health", "Infrastructure"},
	} {
		require.NoError(t, repo.StoreLatest(ctx, StoreLatestParams{
			DocumentID: docID, DistrictID: districtID,
			SectorName: key.sector, SubCategory: key.sub,
			DataJSON: recordJSON(t, "x", 1), VersionDate: "2026-01-15",
		}))
	}

	cats, err := repo.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Education", cats[0].SectorName)
	assert.Equal(t, []string{"Enrollment"}, cats[0].SubCategories)
	assert.Equal(t, "Health", cats[1].SectorName)
	assert.Equal(t, []string{"Immunization", "Infrastructure"}, cats[1].SubCategories)
}

func TestDeleteDistrictCascades(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	districtID, docID := seedDocument(t, db, "Papum Pare", "jan.txt", "2026-01-15")
	districts := NewDistrictRepository(db, testLogger())
	repo := NewExtractionRepository(db, testLogger())

	require.NoError(t, repo.StoreLatest(ctx, StoreLatestParams{
		DocumentID: docID, DistrictID: districtID,
		SectorName: "Health", SubCategory: "Immunization",
		DataJSON: recordJSON(t, "x", 1), VersionDate: "2026-01-15",
	}))

	res, err := districts.Delete(ctx, "Papum Pare")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DeletedDocuments)
	assert.Equal(t, int64(1), res.DeletedExtractions)
	assert.Equal(t, []string{"/tmp/jan.txt"}, res.FilePaths)

	_, err = districts.GetByName(ctx, "Papum Pare")
	assert.Error(t, err)
}
