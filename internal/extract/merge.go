package extract

import (
	"github.com/schemedesk/district-kb/internal/entity"
)

// MergeChunkResults merges per-chunk partial extractions of one document into
// a single extraction. Partials must be in chunk order: the tie-break below is
// last write wins within one document, defined over chunk sequence.
//
// Action points are deduplicated by action_name. A later occurrence fills any
// field the kept entry is missing, and overwrites fields both sides have.
// additional_details keys merge the same way. Sub-categories that end up with
// zero action points are dropped entirely.
func MergeChunkResults(partials []*entity.StructuredExtraction, district, date string) *entity.StructuredExtraction {
	merged := entity.NewStructuredExtraction(district, date)

	for _, partial := range partials {
		if partial == nil {
			continue
		}
		for sectorName, subs := range partial.Sectors {
			for subName, rec := range subs {
				target := merged.Record(sectorName, subName)
				for _, ap := range rec.ActionPoints {
					mergeActionPoint(target, ap)
				}
				for k, v := range rec.AdditionalDetails {
					target.AdditionalDetails[k] = v
				}
			}
		}
	}

	// Drop sub-categories with no action points, then empty sectors.
	for sectorName, subs := range merged.Sectors {
		for subName, rec := range subs {
			if len(rec.ActionPoints) == 0 {
				delete(subs, subName)
			}
		}
		if len(subs) == 0 {
			delete(merged.Sectors, sectorName)
		}
	}
	return merged
}

// mergeActionPoint folds one occurrence into the record, keyed by action_name.
// Non-nil incoming fields always win; nil incoming fields keep what is there.
// That single rule implements both "fill nulls from later data" and "later
// non-null beats earlier non-null".
func mergeActionPoint(rec *entity.SubCategoryRecord, incoming entity.ActionPoint) {
	for i := range rec.ActionPoints {
		if rec.ActionPoints[i].ActionName != incoming.ActionName {
			continue
		}
		existing := &rec.ActionPoints[i]
		if incoming.CurrentStatus != nil {
			existing.CurrentStatus = incoming.CurrentStatus
		}
		if incoming.AchievementPercentage != nil {
			existing.AchievementPercentage = incoming.AchievementPercentage
		}
		if incoming.DataSource != nil {
			existing.DataSource = incoming.DataSource
		}
		if incoming.Remarks != nil {
			existing.Remarks = incoming.Remarks
		}
		return
	}
	rec.ActionPoints = append(rec.ActionPoints, incoming.Clone())
}
