package extract

import "github.com/schemedesk/district-kb/internal/entity"

// SectorAnalytics summarizes the latest knowledge for one sector.
type SectorAnalytics struct {
	SectorName         string  `json:"sector_name"`
	SubCategoryCount   int     `json:"sub_category_count"`
	ActionPointCount   int     `json:"action_point_count"`
	AverageAchievement float64 `json:"average_achievement"`
}

// ComputeSectorAnalytics aggregates latest extraction rows per sector.
// Achievement averages only count action points that carry a percentage;
// a sector with none reports 0. Rows that fail to decode are skipped.
func ComputeSectorAnalytics(rows []*entity.Extraction) []SectorAnalytics {
	type acc struct {
		subCategories int
		actionPoints  int
		pctSum        float64
		pctCount      int
	}
	totals := make(map[string]*acc)
	var order []string

	for _, row := range rows {
		rec, err := row.Record()
		if err != nil {
			continue
		}
		t, ok := totals[row.SectorName]
		if !ok {
			t = &acc{}
			totals[row.SectorName] = t
			order = append(order, row.SectorName)
		}
		t.subCategories++
		t.actionPoints += len(rec.ActionPoints)
		for _, ap := range rec.ActionPoints {
			if ap.AchievementPercentage != nil {
				t.pctSum += *ap.AchievementPercentage
				t.pctCount++
			}
		}
	}

	out := make([]SectorAnalytics, 0, len(order))
	for _, sector := range order {
		t := totals[sector]
		avg := 0.0
		if t.pctCount > 0 {
			avg = t.pctSum / float64(t.pctCount)
		}
		out = append(out, SectorAnalytics{
			SectorName:         sector,
			SubCategoryCount:   t.subCategories,
			ActionPointCount:   t.actionPoints,
			AverageAchievement: avg,
		})
	}
	return out
}
