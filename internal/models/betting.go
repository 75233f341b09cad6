package models

import (
	"time"
)

// Selection is a single runner picked under a strategy tag
type Selection struct {
	HorseID int64  `json:"horse_id" validate:"required,gt=0"`
	BetType string `json:"bet_type" validate:"required"`
}

// BettingSelections is one race's batch of selections
type BettingSelections struct {
	RaceDate   string      `json:"race_date" validate:"required"`
	RaceID     int64       `json:"race_id" validate:"required,gt=0"`
	Selections []Selection `json:"selections" validate:"required,min=1,dive"`
}

// Validate checks the fields struct tags cannot express
func (b *BettingSelections) Validate() error {
	if _, err := time.Parse("2006-01-02", b.RaceDate); err != nil {
		return NewValidationError(ErrMalformedDate.Code, "race_date must be YYYY-MM-DD")
	}
	seen := make(map[Selection]struct{}, len(b.Selections))
	for _, s := range b.Selections {
		if _, ok := seen[s]; ok {
			return NewValidationError(ErrInvalidSelection.Code, "duplicate selection for horse and bet type")
		}
		seen[s] = struct{}{}
	}
	return nil
}

// SettlementInput is a stored selection joined with its realized result
type SettlementInput struct {
	RaceID            int64     `json:"race_id"`
	RaceDate          string    `json:"race_date"`
	RaceTime          time.Time `json:"race_time"`
	HorseID           int64     `json:"horse_id"`
	HorseName         string    `json:"horse_name"`
	BetType           string    `json:"bet_type"`
	SessionID         int       `json:"session_id"`
	PlacedAt          time.Time `json:"placed_at"`
	FinishingPosition string    `json:"finishing_position"`
	NumberOfRunners   int       `json:"number_of_runners"`
	BetfairWinSP      *float64  `json:"betfair_win_sp"`
	BetfairPlaceSP    *float64  `json:"betfair_place_sp"`
}

// SettledBet is a settlement input with its computed odds and P&L
type SettledBet struct {
	SettlementInput

	Strategy            string   `json:"strategy"`
	DutchSum            *float64 `json:"dutch_sum"`
	CalculatedOdds      *float64 `json:"calculated_odds"`
	FinalOdds           *float64 `json:"final_odds"`
	AdjustedFinalOdds   *float64 `json:"adjusted_final_odds"`
	BetResult           *float64 `json:"bet_result"`
	RunningTotal        float64  `json:"running_total"`
	OverallTotal        float64  `json:"overall_total"`
	SessionRunningTotal *float64 `json:"session_running_total"`
}

// SettlementReport summarises a settled ledger
type SettlementReport struct {
	NumberOfBets        int          `json:"number_of_bets"`
	OverallTotal        float64      `json:"overall_total"`
	SessionNumberOfBets int          `json:"session_number_of_bets"`
	SessionOverallTotal float64      `json:"session_overall_total"`
	ResultDict          []SettledBet `json:"result_dict"`
}
