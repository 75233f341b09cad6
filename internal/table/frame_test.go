package table

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racing-form/internal/models"
)

func TestFromRecordsDecodesPerformanceRows(t *testing.T) {
	raceTime := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)
	frame, err := FromRecords([]map[string]any{
		{
			"horse_id":           int64(101),
			"horse_name":         "Alpha",
			"race_id":            int64(9),
			"race_date":          time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			"race_time":          raceTime,
			"race_class":         4,
			"distance_yards":     2200.0,
			"finishing_position": "1",
			"rpr":                nil,
			"tfr":                55,
			"betfair_win_sp":     math.NaN(),
			"data_type":          "historical",
		},
		{
			"horse_id":   int64(102),
			"horse_name": "Bravo",
			"race_id":    int64(9),
			"race_date":  "2024-05-01",
			"data_type":  "today",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Len())

	rows, err := frame.PerformanceRows()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, int64(101), first.HorseID)
	assert.Equal(t, "Alpha", first.HorseName)
	assert.Equal(t, "2024-05-01", first.RaceDate)
	assert.True(t, raceTime.Equal(first.RaceTime))
	require.NotNil(t, first.RaceClass)
	assert.Equal(t, 4, *first.RaceClass)
	require.NotNil(t, first.DistanceYards)
	assert.Equal(t, 2200.0, *first.DistanceYards)
	assert.Nil(t, first.RPR)
	require.NotNil(t, first.TFR)
	assert.Equal(t, 55, *first.TFR)
	assert.Nil(t, first.BetfairWinSP)
	assert.Equal(t, models.DataTypeHistorical, first.DataType)

	second := rows[1]
	assert.True(t, second.IsToday())
	assert.Nil(t, second.RaceClass)
	assert.Nil(t, second.DistanceYards)
	assert.True(t, second.RaceTime.IsZero())
}

func TestFromRecordsEmpty(t *testing.T) {
	_, err := FromRecords(nil)
	assert.ErrorIs(t, err, models.ErrEmptyTable)
}

func TestFromCSV(t *testing.T) {
	csv := strings.Join([]string{
		"horse_id,horse_name,race_id,race_date,race_time,finishing_position,betfair_win_sp,data_type",
		"1,Alpha,10,2024-04-01,2024-04-01 13:00:00,2,4.5,historical",
		"1,Alpha,11,2024-05-01,2024-05-01 15:10:00,,,today",
	}, "\n")

	frame, err := FromCSV(strings.NewReader(csv))
	require.NoError(t, err)

	rows, err := frame.PerformanceRows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Position())
	require.NotNil(t, rows[0].BetfairWinSP)
	assert.Equal(t, 4.5, *rows[0].BetfairWinSP)
	assert.Nil(t, rows[1].BetfairWinSP)
	assert.Equal(t, "", rows[1].FinishingPosition)
	assert.Equal(t, 15, rows[1].RaceTime.Hour())

	today := frame.Where("data_type", "today")
	require.NoError(t, today.Err())
	assert.Equal(t, 1, today.Len())
}

func TestDecodeSettlementInputs(t *testing.T) {
	frame, err := FromRecords([]map[string]any{
		{
			"race_id":            int64(5),
			"horse_id":           int64(7),
			"bet_type":           "dutch_back",
			"session_id":         3,
			"placed_at":          "2024-05-01T12:00:00Z",
			"finishing_position": "1",
			"number_of_runners":  9,
			"betfair_win_sp":     2.0,
			"betfair_place_sp":   1.3,
		},
	})
	require.NoError(t, err)

	inputs, err := frame.SettlementInputs()
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, 3, inputs[0].SessionID)
	assert.Equal(t, 9, inputs[0].NumberOfRunners)
	assert.Equal(t, 2.0, *inputs[0].BetfairWinSP)
	assert.Equal(t, 12, inputs[0].PlacedAt.Hour())
}

func TestDecodeRejectsBadTimestamp(t *testing.T) {
	frame, err := FromRecords([]map[string]any{{"race_time": "yesterday"}})
	require.NoError(t, err)

	_, err = frame.PerformanceRows()
	assert.ErrorIs(t, err, models.ErrMalformedDate)
}

func TestParseTimeLayouts(t *testing.T) {
	for _, s := range []string{"2024-05-01", "2024-05-01 10:00:00", "2024-05-01T10:00:00Z"} {
		parsed, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2024, parsed.Year())
	}
}
