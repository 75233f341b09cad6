package models

import (
	"strconv"
	"strings"
	"time"
)

// DataType discriminates the race under evaluation from prior form
type DataType string

const (
	DataTypeToday      DataType = "today"
	DataTypeHistorical DataType = "historical"
)

// PerformanceRow represents one horse's recorded run as supplied by storage.
// Nullable columns are pointers; RaceDate stays a raw string until the
// feature pipeline parses it.
type PerformanceRow struct {
	HorseID              int64     `json:"horse_id"`
	HorseName            string    `json:"horse_name"`
	Age                  *int      `json:"age"`
	RaceID               int64     `json:"race_id"`
	UniqueID             string    `json:"unique_id"`
	RaceDate             string    `json:"race_date"`
	RaceTime             time.Time `json:"race_time"`
	Course               string    `json:"course"`
	CourseID             int64     `json:"course_id"`
	RaceTitle            string    `json:"race_title"`
	RaceType             string    `json:"race_type"`
	RaceClass            *int      `json:"race_class"`
	Distance             string    `json:"distance"`
	DistanceYards        *float64  `json:"distance_yards"`
	DistanceMeters       *float64  `json:"distance_meters"`
	Going                string    `json:"going"`
	Surface              string    `json:"surface"`
	Conditions           string    `json:"conditions"`
	HcapRange            string    `json:"hcap_range"`
	AgeRange             string    `json:"age_range"`
	FirstPlacePrizeMoney *float64  `json:"first_place_prize_money"`
	NumberOfRunners      *int      `json:"number_of_runners"`
	FinishingPosition    string    `json:"finishing_position"`
	TotalDistanceBeaten  *float64  `json:"total_distance_beaten"`
	OfficialRating       *int      `json:"official_rating"`
	RPR                  *int      `json:"rpr"`
	TFR                  *int      `json:"tfr"`
	TS                   *int      `json:"ts"`
	TFIG                 *int      `json:"tfig"`
	BetfairWinSP         *float64  `json:"betfair_win_sp"`
	BetfairPlaceSP       *float64  `json:"betfair_place_sp"`
	PriceChange          *float64  `json:"price_change"`
	Headgear             string    `json:"headgear"`
	TFComment            string    `json:"tf_comment"`
	DataType             DataType  `json:"data_type"`
}

// IsToday reports whether the row is the race being evaluated
func (p *PerformanceRow) IsToday() bool {
	return p.DataType == DataTypeToday
}

// Position returns the numeric finishing position, or 0 for non-finishers
// ("PU", "F", "UR", ...) and rows without a result.
func (p *PerformanceRow) Position() int {
	pos, err := strconv.Atoi(strings.TrimSpace(p.FinishingPosition))
	if err != nil || pos < 0 {
		return 0
	}
	return pos
}

// Runners returns the field size or 0 when unknown
func (p *PerformanceRow) Runners() int {
	if p.NumberOfRunners == nil {
		return 0
	}
	return *p.NumberOfRunners
}

// ClassKey returns the race class as the string key used by class-keyed
// lookups; unknown classes yield an empty key.
func (p *PerformanceRow) ClassKey() string {
	if p.RaceClass == nil || *p.RaceClass <= 0 {
		return ""
	}
	return strconv.Itoa(*p.RaceClass)
}

// TodayRow returns the first row flagged as today's race
func TodayRow(rows []PerformanceRow) (*PerformanceRow, error) {
	for i := range rows {
		if rows[i].IsToday() {
			return &rows[i], nil
		}
	}
	return nil, ErrNoTodayRow
}
