package meetings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Averytsai/meeting-ai-system/internal/models"
)

func TestParseAttendeeUpdateEmptyKeepsExisting(t *testing.T) {
	list, replace, err := parseAttendeeUpdate("")
	require.NoError(t, err)
	require.False(t, replace)
	require.Nil(t, list)
}

func TestParseAttendeeUpdateMalformedKeepsExisting(t *testing.T) {
	list, replace, err := parseAttendeeUpdate(`[{"email": "alice@`)
	require.Error(t, err)
	require.False(t, replace)
	require.Nil(t, list)
}

func TestParseAttendeeUpdateReplaces(t *testing.T) {
	list, replace, err := parseAttendeeUpdate(`[{"email": "Alice@Example.com", "name": "Alice"}, {"email": "bob@example.com"}]`)
	require.NoError(t, err)
	require.True(t, replace)
	require.Equal(t, []models.AttendeeCreate{
		{Email: "alice@example.com", Name: "Alice"},
		{Email: "bob@example.com"},
	}, list)
}

func TestParseAttendeeUpdateDropsInvalidEntries(t *testing.T) {
	list, replace, err := parseAttendeeUpdate(`[{"email": ""}, {"email": "not-an-email"}, {"email": "ok@example.com"}]`)
	require.NoError(t, err)
	require.True(t, replace)
	require.Equal(t, []models.AttendeeCreate{{Email: "ok@example.com"}}, list)
}

func TestParseAttendeeUpdateEmptyArrayClears(t *testing.T) {
	list, replace, err := parseAttendeeUpdate(`[]`)
	require.NoError(t, err)
	require.True(t, replace)
	require.Empty(t, list)
}
