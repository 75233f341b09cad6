package settlement

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racing-form/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func selection(raceID, horseID int64, betType, position string, runners int, win, place float64, minute int) models.SettlementInput {
	in := models.SettlementInput{
		RaceID:            raceID,
		HorseID:           horseID,
		BetType:           betType,
		SessionID:         1,
		PlacedAt:          base.Add(time.Duration(minute) * time.Minute),
		FinishingPosition: position,
		NumberOfRunners:   runners,
	}
	if win > 0 {
		in.BetfairWinSP = floatPtr(win)
	}
	if place > 0 {
		in.BetfairPlaceSP = floatPtr(place)
	}
	return in
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		tag  string
		want Strategy
	}{
		{"back_mid_price", BackMidPrice},
		{"BACK_OUTSIDER", BackOutsider},
		{" back_outsider_place ", BackOutsiderPlace},
		{"lay_favourite", LayFavourite},
		{"Lay_Mid_Price_Place", LayMidPricePlace},
		{"dutch_back", DutchBack},
		{"dutch_lay", DutchLay},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParseStrategy(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := ParseStrategy("back_outsider_plac")
	assert.Equal(t, Unknown, got)
	assert.ErrorIs(t, err, models.ErrUnknownStrategy)
}

func TestStrategyNamesRoundTrip(t *testing.T) {
	for _, s := range Strategies() {
		parsed, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	assert.Equal(t, "unknown", Strategy(42).String())
}

func TestClassifyOutcome(t *testing.T) {
	assert.Equal(t, Outcome{Won: true, Placed: true}, ClassifyOutcome("1", 5))
	assert.Equal(t, Outcome{Placed: true}, ClassifyOutcome("2", 7))
	assert.Equal(t, Outcome{}, ClassifyOutcome("3", 7))
	assert.Equal(t, Outcome{Placed: true}, ClassifyOutcome("3", 8))
	assert.Equal(t, Outcome{}, ClassifyOutcome("4", 16))
	assert.Equal(t, Outcome{}, ClassifyOutcome("PU", 16))
}

func TestSettleRowTable(t *testing.T) {
	won := Outcome{Won: true, Placed: true}
	placed := Outcome{Placed: true}
	lost := Outcome{}
	final := floatPtr(5.0)
	place := floatPtr(2.0)

	tests := []struct {
		name     string
		strategy Strategy
		outcome  Outcome
		want     float64
	}{
		{"back mid won", BackMidPrice, won, 5*0.85 - 1},
		{"back mid lost", BackMidPrice, lost, -1},
		{"back outsider won", BackOutsider, won, 5*0.85 - 1},
		{"back outsider lost", BackOutsider, placed, -1},
		{"dutch back won", DutchBack, won, 5*0.85 - 1},
		{"dutch back lost", DutchBack, lost, -1},
		{"back place placed", BackOutsiderPlace, placed, 1},
		{"back place not placed", BackOutsiderPlace, lost, -1},
		{"lay fav won", LayFavourite, won, -(5*1.15 - 1)},
		{"lay fav lost", LayFavourite, placed, 0.9},
		{"dutch lay won", DutchLay, won, -(5*1.15 - 1)},
		{"dutch lay lost", DutchLay, lost, 0.9},
		{"lay place placed", LayMidPricePlace, placed, -1},
		{"lay place not placed", LayMidPricePlace, lost, 0.9},
		{"unknown won", Unknown, won, 0},
		{"unknown lost", Unknown, lost, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SettleRow(tt.strategy, tt.outcome, final, place)
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}

	assert.Nil(t, SettleRow(BackOutsiderPlace, placed, final, nil))
	assert.Nil(t, SettleRow(BackMidPrice, won, nil, place))
}

func TestDutchSumIdentity(t *testing.T) {
	prices := []float64{2.0, 4.0, 5.5, 9.0}
	sum, odds, ok := DutchSum(prices)
	require.True(t, ok)

	want := 0.0
	for _, p := range prices {
		want += 100 / p
	}
	assert.InDelta(t, want, sum, 1e-9)
	assert.InDelta(t, 100/want, odds, 1e-9)

	stakes := 0.0
	for _, p := range prices {
		stakes += odds / p
	}
	assert.InDelta(t, 1.0, stakes, 1e-9)

	_, _, ok = DutchSum([]float64{0, -1})
	assert.False(t, ok)
}

func TestSettleDutchBackScenario(t *testing.T) {
	engine := NewEngine(1)
	report, err := engine.Settle([]models.SettlementInput{
		selection(10, 1, "dutch_back", "1", 9, 2.0, 0, 0),
		selection(10, 2, "dutch_back", "3", 9, 4.0, 0, 1),
	})
	require.NoError(t, err)

	require.Len(t, report.ResultDict, 1)
	bet := report.ResultDict[0]
	assert.Equal(t, int64(1), bet.HorseID)
	assert.InDelta(t, 75.0, *bet.DutchSum, 1e-9)
	assert.InDelta(t, 1.3333, *bet.CalculatedOdds, 1e-4)
	assert.InDelta(t, 1.3333, *bet.FinalOdds, 1e-4)
	assert.InDelta(t, 1.3333*0.85, *bet.AdjustedFinalOdds, 1e-4)
	assert.InDelta(t, 0.1333, *bet.BetResult, 1e-4)
	assert.Equal(t, 1, report.NumberOfBets)
	assert.InDelta(t, 0.1333, report.OverallTotal, 1e-4)
}

func TestSettleDutchLayTakesWorstResult(t *testing.T) {
	report, err := NewEngine(1).Settle([]models.SettlementInput{
		selection(20, 1, "dutch_lay", "5", 9, 3.0, 0, 0),
		selection(20, 2, "dutch_lay", "1", 9, 6.0, 0, 1),
	})
	require.NoError(t, err)

	require.Len(t, report.ResultDict, 1)
	// pooled odds 2.0, lay loses on the winner
	assert.InDelta(t, -(2.0*1.15 - 1), *report.ResultDict[0].BetResult, 1e-9)
}

func TestSettleNonDutchRowsKeptPerSelection(t *testing.T) {
	report, err := NewEngine(1).Settle([]models.SettlementInput{
		selection(30, 1, "back_mid_price", "2", 10, 4.567, 0, 0),
		selection(30, 2, "back_mid_price", "1", 10, 3.0, 0, 1),
		selection(30, 3, "lay_favourite", "4", 10, 2.0, 0, 2),
	})
	require.NoError(t, err)
	require.Len(t, report.ResultDict, 3)

	first := report.ResultDict[0]
	assert.Equal(t, "back_mid_price", first.Strategy)
	assert.Nil(t, first.DutchSum)
	assert.Equal(t, 4.57, *first.CalculatedOdds)
	assert.Equal(t, 4.57, *first.FinalOdds)
	assert.Equal(t, -1.0, *first.BetResult)
}

func TestSettleRunningTotals(t *testing.T) {
	session := selection(40, 5, "lay_favourite", "3", 10, 2.0, 0, 5)
	session.SessionID = 2
	report, err := NewEngine(2).Settle([]models.SettlementInput{
		selection(40, 1, "back_mid_price", "1", 10, 3.0, 0, 3),
		selection(41, 2, "back_mid_price", "5", 10, 5.0, 0, 1),
		selection(40, 3, "lay_favourite", "1", 10, 2.0, 0, 2),
		session,
	})
	require.NoError(t, err)
	require.Len(t, report.ResultDict, 4)

	// sorted by strategy then placed time
	got := report.ResultDict
	assert.Equal(t, int64(2), got[0].HorseID)
	assert.Equal(t, int64(1), got[1].HorseID)
	assert.Equal(t, int64(3), got[2].HorseID)
	assert.Equal(t, int64(5), got[3].HorseID)

	assert.InDelta(t, -1.0, got[0].RunningTotal, 1e-9)
	assert.InDelta(t, -1+(3*0.85-1), got[1].RunningTotal, 1e-9)
	assert.InDelta(t, -(2*1.15 - 1), got[2].RunningTotal, 1e-9)
	assert.InDelta(t, -(2*1.15-1)+0.9, got[3].RunningTotal, 1e-9)

	overall := -1 + (3*0.85 - 1) - (2*1.15 - 1) + 0.9
	assert.InDelta(t, overall, got[3].OverallTotal, 1e-9)
	assert.InDelta(t, overall, report.OverallTotal, 1e-9)

	assert.Equal(t, 4, report.NumberOfBets)
	assert.Equal(t, 1, report.SessionNumberOfBets)
	assert.InDelta(t, 0.9, report.SessionOverallTotal, 1e-9)
	assert.Nil(t, got[0].SessionRunningTotal)
	require.NotNil(t, got[3].SessionRunningTotal)
	assert.InDelta(t, 0.9, *got[3].SessionRunningTotal, 1e-9)
}

func TestSettleUnknownStrategy(t *testing.T) {
	inputs := []models.SettlementInput{selection(50, 1, "back_the_grey", "1", 10, 3.0, 0, 0)}

	_, err := NewEngine(1).Settle(inputs)
	assert.ErrorIs(t, err, models.ErrUnknownStrategy)

	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	report, err := NewEngine(1, WithLenientStrategies(), WithLogger(log)).Settle(inputs)
	require.NoError(t, err)
	require.Len(t, report.ResultDict, 1)
	assert.Equal(t, 0.0, *report.ResultDict[0].BetResult)
	assert.Equal(t, "back_the_grey", report.ResultDict[0].Strategy)
	assert.InDelta(t, 3.0, *report.ResultDict[0].AdjustedFinalOdds, 1e-9)
	assert.Contains(t, buf.String(), "Unknown bet type")
}

func TestSettleMissingPlacePrice(t *testing.T) {
	report, err := NewEngine(1).Settle([]models.SettlementInput{
		selection(60, 1, "back_outsider_place", "2", 10, 8.0, 0, 0),
		selection(60, 2, "back_outsider_place", "2", 10, 8.0, 2.5, 1),
	})
	require.NoError(t, err)

	assert.Nil(t, report.ResultDict[0].BetResult)
	assert.InDelta(t, 1.5, *report.ResultDict[1].BetResult, 1e-9)
	assert.InDelta(t, 1.5, report.OverallTotal, 1e-9)
}

func TestSettleEmpty(t *testing.T) {
	report, err := NewEngine(3).Settle(nil)
	require.NoError(t, err)
	assert.Zero(t, report.NumberOfBets)
	assert.Empty(t, report.ResultDict)
	assert.Equal(t, 3, NewEngine(3).SessionID())
}
