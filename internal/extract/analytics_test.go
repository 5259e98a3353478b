package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemedesk/district-kb/internal/entity"
)

func latestRow(t *testing.T, sector, sub string, rec *entity.SubCategoryRecord) *entity.Extraction {
	t.Helper()
	data, err := entity.MarshalRecord(rec)
	require.NoError(t, err)
	return &entity.Extraction{
		SectorName:  sector,
		SubCategory: sub,
		DataJSON:    data,
		VersionDate: "2026-08-30",
		IsLatest:    true,
	}
}

func TestComputeSectorAnalytics(t *testing.T) {
	rows := []*entity.Extraction{
		latestRow(t, "Health", "Immunization", recordWith(
			entity.ActionPoint{ActionName: "Measles drive", AchievementPercentage: f64Ptr(80)},
			entity.ActionPoint{ActionName: "Polio rounds", AchievementPercentage: f64Ptr(40)},
		)),
		latestRow(t, "Health", "Infrastructure", recordWith(
			entity.ActionPoint{ActionName: "PHC upgrade"},
		)),
		latestRow(t, "Education", "Enrollment", recordWith(
			entity.ActionPoint{ActionName: "School mapping"},
		)),
	}

	out := ComputeSectorAnalytics(rows)
	require.Len(t, out, 2)

	health := out[0]
	assert.Equal(t, "Health", health.SectorName)
	assert.Equal(t, 2, health.SubCategoryCount)
	assert.Equal(t, 3, health.ActionPointCount)
	assert.Equal(t, 60.0, health.AverageAchievement, "only points with a percentage count")

	education := out[1]
	assert.Equal(t, "Education", education.SectorName)
	assert.Equal(t, 0.0, education.AverageAchievement, "no percentages reports zero")
}

func TestComputeSectorAnalyticsSkipsBadRows(t *testing.T) {
	rows := []*entity.Extraction{
		{SectorName: "Health", SubCategory: "Immunization", DataJSON: []byte("not json")},
		latestRow(t, "Health", "Infrastructure", recordWith(
			entity.ActionPoint{ActionName: "PHC upgrade", AchievementPercentage: f64Ptr(25)},
		)),
	}

	out := ComputeSectorAnalytics(rows)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].SubCategoryCount)
	assert.Equal(t, 25.0, out[0].AverageAchievement)
}
