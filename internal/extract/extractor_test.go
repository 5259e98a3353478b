package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemedesk/district-kb/constants"
	"github.com/schemedesk/district-kb/internal/llm"
)

type scriptedCompleter struct {
	response string
	err      error
	prompt   string
	opts     llm.CompletionOptions
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string, opts llm.CompletionOptions) (string, error) {
	s.prompt = prompt
	s.opts = opts
	return s.response, s.err
}

func TestChunkExtractorParsesWireShape(t *testing.T) {
	completer := &scriptedCompleter{response: "```json\n" + `{
		"district": "Papum Pare",
		"sectors": [{
			"sector_name": "Agriculture & Allied",
			"sub_categories": [{
				"sub_category_name": "Irrigation",
				"information": {
					"action_points": [{
						"action_name": "Canal desilting",
						"current_status": "ongoing",
						"achievement_percentage": "75%",
						"data_source": null,
						"remarks": null
					}],
					"additional_details": {"budget": "12L"}
				}
			}]
		}]
	}` + "\n```"}

	ex := NewChunkExtractor(completer, constants.DefaultTaxonomy(), 0.3, nil)
	out, err := ex.Extract(context.Background(), "chunk text", "Papum Pare", "2026-08-30", 1, 3)
	require.NoError(t, err)

	rec := out.Sectors["Agriculture & Allied"]["Irrigation"]
	require.NotNil(t, rec)
	require.Len(t, rec.ActionPoints, 1)
	ap := rec.ActionPoints[0]
	assert.Equal(t, "Canal desilting", ap.ActionName)
	assert.Equal(t, "ongoing", *ap.CurrentStatus)
	require.NotNil(t, ap.AchievementPercentage)
	assert.Equal(t, 75.0, *ap.AchievementPercentage)
	assert.Nil(t, ap.DataSource)
	assert.Equal(t, "12L", rec.AdditionalDetails["budget"])

	assert.InDelta(t, 0.3, completer.opts.Temperature, 1e-6)
	assert.Contains(t, completer.prompt, "chunk text")
	assert.Contains(t, completer.prompt, "Papum Pare")
}

func TestChunkExtractorAcceptsLegacyShape(t *testing.T) {
	completer := &scriptedCompleter{response: `{
		"sectors": [{
			"sector_name": "Health",
			"sub_categories": [{
				"sub_category_name": "Immunization",
				"action_points": [{"action_name": "Measles drive"}]
			}]
		}]
	}`}

	ex := NewChunkExtractor(completer, constants.DefaultTaxonomy(), 0.3, nil)
	out, err := ex.Extract(context.Background(), "c", "Papum Pare", "2026-08-30", 1, 1)
	require.NoError(t, err)
	require.Len(t, out.Sectors["Health"]["Immunization"].ActionPoints, 1)
}

func TestChunkExtractorSkipsEmptyNames(t *testing.T) {
	completer := &scriptedCompleter{response: `{
		"sectors": [
			{"sector_name": "", "sub_categories": [{"sub_category_name": "X", "action_points": [{"action_name": "a"}]}]},
			{"sector_name": "Health", "sub_categories": [
				{"sub_category_name": "", "action_points": [{"action_name": "a"}]},
				{"sub_category_name": "Immunization", "action_points": [{"action_name": ""}, {"action_name": "Measles drive"}]}
			]}
		]
	}`}

	ex := NewChunkExtractor(completer, constants.DefaultTaxonomy(), 0.3, nil)
	out, err := ex.Extract(context.Background(), "c", "Papum Pare", "2026-08-30", 1, 1)
	require.NoError(t, err)

	require.Len(t, out.Sectors, 1)
	rec := out.Sectors["Health"]["Immunization"]
	require.Len(t, rec.ActionPoints, 1)
	assert.Equal(t, "Measles drive", rec.ActionPoints[0].ActionName)
}

func TestChunkExtractorCompletionFailure(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("boom")}
	ex := NewChunkExtractor(completer, constants.DefaultTaxonomy(), 0.3, nil)

	_, err := ex.Extract(context.Background(), "c", "Papum Pare", "2026-08-30", 2, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 2/5")
}

func TestChunkExtractorUnparseableResponse(t *testing.T) {
	completer := &scriptedCompleter{response: "I could not find any structured data in this document."}
	ex := NewChunkExtractor(completer, constants.DefaultTaxonomy(), 0.3, nil)

	_, err := ex.Extract(context.Background(), "c", "Papum Pare", "2026-08-30", 1, 1)
	assert.Error(t, err)
}

func TestCoercePercent(t *testing.T) {
	require.NotNil(t, coercePercent(float64(42)))
	assert.Equal(t, 42.0, *coercePercent(float64(42)))

	require.NotNil(t, coercePercent("75"))
	assert.Equal(t, 75.0, *coercePercent("75"))

	require.NotNil(t, coercePercent(" 75% "))
	assert.Equal(t, 75.0, *coercePercent(" 75% "))

	assert.Nil(t, coercePercent(nil))
	assert.Nil(t, coercePercent("null"))
	assert.Nil(t, coercePercent("n/a"))
	assert.Nil(t, coercePercent(true))
}
