package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemedesk/district-kb/internal/entity"
)

func recordWith(aps ...entity.ActionPoint) *entity.SubCategoryRecord {
	rec := entity.NewSubCategoryRecord()
	rec.ActionPoints = append(rec.ActionPoints, aps...)
	return rec
}

func TestMergeIntoHistoryNoPriorClonesNew(t *testing.T) {
	newRec := recordWith(entity.ActionPoint{ActionName: "Canal desilting", CurrentStatus: strPtr("ongoing")})

	out := MergeIntoHistory(newRec, nil)

	require.Len(t, out.ActionPoints, 1)
	assert.Equal(t, "Canal desilting", out.ActionPoints[0].ActionName)

	// Must be a copy, not an alias.
	*out.ActionPoints[0].CurrentStatus = "mutated"
	assert.Equal(t, "ongoing", *newRec.ActionPoints[0].CurrentStatus)
}

func TestMergeIntoHistoryAccumulatesAcrossDocuments(t *testing.T) {
	prior := recordWith(entity.ActionPoint{ActionName: "Action A", AchievementPercentage: f64Ptr(30)})
	newRec := recordWith(entity.ActionPoint{ActionName: "Action B", AchievementPercentage: f64Ptr(90)})

	out := MergeIntoHistory(newRec, prior)

	require.Len(t, out.ActionPoints, 2)
	assert.Equal(t, "Action A", out.ActionPoints[0].ActionName)
	assert.Equal(t, "Action B", out.ActionPoints[1].ActionName)
}

func TestMergeIntoHistoryNewReplacesWholesale(t *testing.T) {
	// Cross-document policy: the latest upload's view of a fact replaces the
	// prior one entirely, nulls included.
	prior := recordWith(entity.ActionPoint{
		ActionName:            "Measles drive",
		CurrentStatus:         strPtr("completed"),
		AchievementPercentage: f64Ptr(100),
		Remarks:               strPtr("closed out"),
	})
	newRec := recordWith(entity.ActionPoint{
		ActionName:    "Measles drive",
		CurrentStatus: strPtr("reopened"),
	})

	out := MergeIntoHistory(newRec, prior)

	require.Len(t, out.ActionPoints, 1)
	ap := out.ActionPoints[0]
	assert.Equal(t, "reopened", *ap.CurrentStatus)
	assert.Nil(t, ap.AchievementPercentage)
	assert.Nil(t, ap.Remarks)
}

func TestMergeIntoHistoryDetailsNewWins(t *testing.T) {
	prior := recordWith(entity.ActionPoint{ActionName: "Action A"})
	prior.AdditionalDetails["budget"] = "10L"
	prior.AdditionalDetails["officer"] = "DC office"
	newRec := recordWith(entity.ActionPoint{ActionName: "Action A"})
	newRec.AdditionalDetails["budget"] = "12L"

	out := MergeIntoHistory(newRec, prior)

	assert.Equal(t, "12L", out.AdditionalDetails["budget"])
	assert.Equal(t, "DC office", out.AdditionalDetails["officer"])
}

func TestMergeIntoHistoryDoesNotMutateInputs(t *testing.T) {
	prior := recordWith(entity.ActionPoint{ActionName: "Action A", CurrentStatus: strPtr("old")})
	newRec := recordWith(entity.ActionPoint{ActionName: "Action A", CurrentStatus: strPtr("new")})

	_ = MergeIntoHistory(newRec, prior)

	assert.Equal(t, "old", *prior.ActionPoints[0].CurrentStatus)
	assert.Equal(t, "new", *newRec.ActionPoints[0].CurrentStatus)
}
