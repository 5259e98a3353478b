package llm

import (
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compiledRecordSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	schema, err := CompileSchema(BuildRecordJSONSchema())
	require.NoError(t, err)
	return schema
}

func TestRecordSchemaAcceptsValidPayload(t *testing.T) {
	schema := compiledRecordSchema(t)
	err := ValidateJSON(schema, []byte(`{
		"action_points": [{
			"action_name": "Canal desilting",
			"current_status": null,
			"achievement_percentage": 75,
			"data_source": "district report",
			"remarks": null
		}],
		"additional_details": {"budget": "12L"}
	}`))
	assert.NoError(t, err)
}

func TestRecordSchemaAcceptsEmptyRecord(t *testing.T) {
	schema := compiledRecordSchema(t)
	err := ValidateJSON(schema, []byte(`{"action_points": [], "additional_details": {}}`))
	assert.NoError(t, err)
}

func TestRecordSchemaRejectsBadPayloads(t *testing.T) {
	schema := compiledRecordSchema(t)

	// Missing required keys.
	assert.Error(t, ValidateJSON(schema, []byte(`{"action_points": []}`)))

	// Empty action name.
	assert.Error(t, ValidateJSON(schema,
		[]byte(`{"action_points": [{"action_name": ""}], "additional_details": {}}`)))

	// Percentage must be numeric after coercion, never a string.
	assert.Error(t, ValidateJSON(schema,
		[]byte(`{"action_points": [{"action_name": "x", "achievement_percentage": "75%"}], "additional_details": {}}`)))

	// Unknown fields on an action point.
	assert.Error(t, ValidateJSON(schema,
		[]byte(`{"action_points": [{"action_name": "x", "extra": 1}], "additional_details": {}}`)))

	// Not JSON at all.
	assert.Error(t, ValidateJSON(schema, []byte(`not json`)))
}
