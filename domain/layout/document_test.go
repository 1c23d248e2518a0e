package layout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailedBranch(t *testing.T) {
	assert.Equal(t, "Preview fetch failed: boom", FailedBranch(EnvironmentPreview, "boom").Error)
	assert.Equal(t, "Published fetch failed: timeout", FailedBranch(EnvironmentPublished, "timeout").Error)
}

func TestComparisonResult_Status(t *testing.T) {
	ok := Rendered("{}")
	bad := Failure("nope")

	assert.Equal(t, StatusComplete, ComparisonResult{Preview: ok, Published: ok}.Status())
	assert.Equal(t, StatusPartial, ComparisonResult{Preview: bad, Published: ok}.Status())
	assert.Equal(t, StatusPartial, ComparisonResult{Preview: ok, Published: bad}.Status())
	assert.Equal(t, StatusFailed, ComparisonResult{Preview: bad, Published: bad}.Status())
	assert.Equal(t, StatusFailed, NewPendingResult().Status())
}

func TestComparisonResult_Identical(t *testing.T) {
	a := Rendered("{\n  \"name\": \"Home\"\n}")
	b := Rendered(`{"name":"Home"}`)
	c := Rendered(`{"name":"About"}`)

	assert.True(t, ComparisonResult{Preview: a, Published: b}.Identical())
	assert.False(t, ComparisonResult{Preview: a, Published: c}.Identical())
	assert.False(t, ComparisonResult{Preview: a, Published: Failure("x")}.Identical())
}

func TestComparisonResult_JSONShape(t *testing.T) {
	result := ComparisonResult{
		Preview:   Rendered("{\n  \"name\": \"Home\"\n}"),
		Published: FailedBranch(EnvironmentPublished, "timeout"),
	}

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"preview": {"rendered": "{\n  \"name\": \"Home\"\n}"},
		"published": {"error": "Published fetch failed: timeout"}
	}`, string(raw))
}

func TestComparisonFailed(t *testing.T) {
	result := ComparisonFailed()

	assert.Equal(t, MessageComparisonFailed, result.Preview.Error)
	assert.Equal(t, MessageComparisonFailed, result.Published.Error)
	assert.Nil(t, result.ItemInfo)
}
