package models

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestSanitizeNestedRaceForm(t *testing.T) {
	form := &RaceForm{
		RaceID:               1,
		FirstPlacePrizeMoney: floatPtr(math.NaN()),
		HorseData: []HorseForm{
			{
				HorseName:          "Alpha",
				TodaysBetfairWinSP: floatPtr(math.Inf(1)),
				PerformanceData: []FormRecord{
					{
						PerformanceRow: PerformanceRow{BetfairPlaceSP: floatPtr(math.NaN()), BetfairWinSP: floatPtr(3.5)},
						DistanceDiff:   floatPtr(math.Inf(-1)),
						SimulatedPrice: floatPtr(4.2),
					},
				},
			},
		},
	}

	Sanitize(form)

	assert.Nil(t, form.FirstPlacePrizeMoney)
	assert.Nil(t, form.HorseData[0].TodaysBetfairWinSP)
	rec := form.HorseData[0].PerformanceData[0]
	assert.Nil(t, rec.BetfairPlaceSP)
	assert.Nil(t, rec.DistanceDiff)
	require.NotNil(t, rec.BetfairWinSP)
	assert.Equal(t, 3.5, *rec.BetfairWinSP)
	require.NotNil(t, rec.SimulatedPrice)
	assert.Equal(t, 4.2, *rec.SimulatedPrice)
}

func TestSanitizeSettlementReport(t *testing.T) {
	report := &SettlementReport{
		OverallTotal: math.NaN(),
		ResultDict: []SettledBet{
			{DutchSum: floatPtr(math.Inf(1)), BetResult: floatPtr(-1)},
		},
	}

	Sanitize(report)

	assert.Equal(t, 0.0, report.OverallTotal)
	assert.Nil(t, report.ResultDict[0].DutchSum)
	assert.Equal(t, -1.0, *report.ResultDict[0].BetResult)
}

func TestSanitizePlainFloatsBecomeZero(t *testing.T) {
	bet := &SettledBet{RunningTotal: math.Inf(-1), OverallTotal: 2.5}
	values := []float64{1.5, math.NaN(), math.Inf(1)}

	Sanitize(bet)
	Sanitize(values)

	assert.Equal(t, 0.0, bet.RunningTotal)
	assert.Equal(t, 2.5, bet.OverallTotal)
	assert.Equal(t, []float64{1.5, 0, 0}, values)
}

func TestSanitizeGenericMaps(t *testing.T) {
	payload := map[string]any{
		"price": math.NaN(),
		"ok":    2.5,
		"nested": []any{
			map[string]any{"inner": math.Inf(1), "name": "x"},
			math.NaN(),
		},
	}

	Sanitize(payload)

	assert.Nil(t, payload["price"])
	assert.Equal(t, 2.5, payload["ok"])
	nested := payload["nested"].([]any)
	assert.Nil(t, nested[0].(map[string]any)["inner"])
	assert.Equal(t, "x", nested[0].(map[string]any)["name"])
	assert.Nil(t, nested[1])
}

func TestSanitizeNilInputs(t *testing.T) {
	assert.NotPanics(t, func() {
		Sanitize(nil)
		var form *RaceForm
		Sanitize(form)
		var m map[string]any
		Sanitize(m)
	})
}

func TestValidationErrorMatchesByCode(t *testing.T) {
	err := fmt.Errorf("failed to build race form: %w", NewValidationError(ErrNoTodayRow.Code, "race 42"))

	assert.True(t, errors.Is(err, ErrNoTodayRow))
	assert.False(t, errors.Is(err, ErrMalformedDate))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "no_today_row", vErr.Code)
}

func TestBettingSelectionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   BettingSelections
		wantErr error
	}{
		{
			name: "valid",
			input: BettingSelections{RaceDate: "2024-05-01", RaceID: 1, Selections: []Selection{
				{HorseID: 1, BetType: "back_mid_price"},
				{HorseID: 2, BetType: "back_mid_price"},
			}},
		},
		{
			name:    "bad date",
			input:   BettingSelections{RaceDate: "01/05/2024", RaceID: 1, Selections: []Selection{{HorseID: 1, BetType: "dutch_back"}}},
			wantErr: ErrMalformedDate,
		},
		{
			name: "duplicate",
			input: BettingSelections{RaceDate: "2024-05-01", RaceID: 1, Selections: []Selection{
				{HorseID: 1, BetType: "dutch_back"},
				{HorseID: 1, BetType: "dutch_back"},
			}},
			wantErr: ErrInvalidSelection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPerformanceRowHelpers(t *testing.T) {
	runners := 9
	class := 4
	row := PerformanceRow{FinishingPosition: " 2 ", NumberOfRunners: &runners, RaceClass: &class}
	assert.Equal(t, 2, row.Position())
	assert.Equal(t, 9, row.Runners())
	assert.Equal(t, "4", row.ClassKey())

	pulledUp := PerformanceRow{FinishingPosition: "PU"}
	assert.Equal(t, 0, pulledUp.Position())
	assert.Equal(t, 0, pulledUp.Runners())
	assert.Equal(t, "", pulledUp.ClassKey())

	_, err := TodayRow([]PerformanceRow{{DataType: DataTypeHistorical}})
	assert.ErrorIs(t, err, ErrNoTodayRow)
}
