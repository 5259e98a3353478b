package extract

import (
	"github.com/schemedesk/district-kb/internal/entity"
)

// MergeIntoHistory merges a freshly extracted record into the prior latest
// record for the same (district, sector, sub-category). Across separate
// uploads the policy is "latest upload wins" per fact: an action point present
// in the new record replaces the prior one wholesale, nulls included. Prior
// points the new record does not mention are carried forward unchanged, so a
// re-upload about unrelated facts never drops information.
//
// This is deliberately different from the within-document merge in
// MergeChunkResults, which is null-aware; observed behavior, kept as is.
func MergeIntoHistory(newRec, prior *entity.SubCategoryRecord) *entity.SubCategoryRecord {
	if prior == nil {
		return newRec.Clone()
	}

	out := prior.Clone()
	index := make(map[string]int, len(out.ActionPoints))
	for i, ap := range out.ActionPoints {
		index[ap.ActionName] = i
	}

	for _, ap := range newRec.ActionPoints {
		if i, ok := index[ap.ActionName]; ok {
			out.ActionPoints[i] = ap.Clone()
		} else {
			index[ap.ActionName] = len(out.ActionPoints)
			out.ActionPoints = append(out.ActionPoints, ap.Clone())
		}
	}
	for k, v := range newRec.AdditionalDetails {
		out.AdditionalDetails[k] = v
	}
	return out
}
