package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverityFilter(t *testing.T) {
	for in, want := range map[string]SeverityFilter{
		"":       SeverityAll,
		"all":    SeverityAll,
		" HIGH ": SeverityOnlyHigh,
		"medium": SeverityOnlyMed,
		"Low":    SeverityOnlyLow,
	} {
		got, err := ParseSeverityFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSeverityFilter("critical")
	assert.Error(t, err)
}

func TestSeverityFilter_Next(t *testing.T) {
	assert.Equal(t, SeverityOnlyHigh, SeverityAll.Next())
	assert.Equal(t, SeverityOnlyMed, SeverityOnlyHigh.Next())
	assert.Equal(t, SeverityOnlyLow, SeverityOnlyMed.Next())
	assert.Equal(t, SeverityAll, SeverityOnlyLow.Next())
	assert.Equal(t, SeverityAll, SeverityFilter("bogus").Next())
}

func TestFilterState(t *testing.T) {
	assert.False(t, FilterState{}.Active())
	assert.False(t, FilterState{Search: "   ", Severity: SeverityAll}.Active())
	assert.True(t, FilterState{Search: "Acme"}.Active())
	assert.Equal(t, "acme", FilterState{Search: "  Acme "}.Query())
	assert.True(t, FilterState{Severity: SeverityOnlyLow}.SeverityActive())
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}
