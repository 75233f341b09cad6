package models

import "time"

// FormRecord is a performance row enriched by the feature pipeline.
// Derived fields stay nil where a value is undefined (first run of a horse,
// missing price) so they serialize as null.
type FormRecord struct {
	PerformanceRow

	DaysSincePerformance  int      `json:"days_since_performance"`
	WeeksSincePerformance int      `json:"weeks_since_performance"`
	DaysSinceLastRan      *int     `json:"days_since_last_ran"`
	WeeksSinceLastRan     *int     `json:"weeks_since_last_ran"`
	NumberOfRuns          int      `json:"number_of_runs"`
	FirstPlaces           int      `json:"first_places"`
	SecondPlaces          int      `json:"second_places"`
	ThirdPlaces           int      `json:"third_places"`
	FourthPlaces          int      `json:"fourth_places"`
	DistanceDiff          *float64 `json:"distance_diff"`
	Rating                int      `json:"rating"`
	SpeedFigure           int      `json:"speed_figure"`
	RatingDiff            int      `json:"rating_diff"`
	SpeedRatingDiff       int      `json:"speed_rating_diff"`
	OfficialRatingDiff    int      `json:"official_rating_diff"`
	SimulatedPrice        *float64 `json:"simulated_price,omitempty"`
}

// HorseForm groups one runner's performances, today's race fields
// broadcast from its "today" row.
type HorseForm struct {
	HorseID                 int64        `json:"horse_id"`
	HorseName               string       `json:"horse_name"`
	TodaysHorseNumber       int          `json:"todays_horse_number"`
	TodaysHorseAge          *int         `json:"todays_horse_age"`
	TodaysFirstPlaces       int          `json:"todays_first_places"`
	TodaysSecondPlaces      int          `json:"todays_second_places"`
	TodaysThirdPlaces       int          `json:"todays_third_places"`
	TodaysFourthPlaces      int          `json:"todays_fourth_places"`
	NumberOfRuns            int          `json:"number_of_runs"`
	TodaysBetfairWinSP      *float64     `json:"todays_betfair_win_sp"`
	TodaysBetfairPlaceSP    *float64     `json:"todays_betfair_place_sp"`
	TodaysPriceChange       *float64     `json:"todays_price_change"`
	TodaysOfficialRating    *int         `json:"todays_official_rating"`
	TodaysDaysSinceLastRan  *int         `json:"todays_days_since_last_ran"`
	TodaysSimulatedPrice    *float64     `json:"todays_simulated_price,omitempty"`
	PerformanceData         []FormRecord `json:"performance_data"`
}

// RaceForm is the race header plus every runner's form, ordered by
// today's win price.
type RaceForm struct {
	RaceID               int64       `json:"race_id"`
	Course               string      `json:"course"`
	Distance             string      `json:"distance"`
	Going                string      `json:"going"`
	Surface              string      `json:"surface"`
	RaceClass            *int        `json:"race_class"`
	HcapRange            string      `json:"hcap_range"`
	AgeRange             string      `json:"age_range"`
	Conditions           string      `json:"conditions"`
	FirstPlacePrizeMoney *float64    `json:"first_place_prize_money"`
	RaceType             string      `json:"race_type"`
	RaceTitle            string      `json:"race_title"`
	RaceTime             time.Time   `json:"race_time"`
	RaceDate             string      `json:"race_date"`
	HorseData            []HorseForm `json:"horse_data"`
}

// TodaysRace is a single race card entry
type TodaysRace struct {
	RaceID    int64     `json:"race_id"`
	RaceTime  time.Time `json:"race_time"`
	RaceTitle string    `json:"race_title"`
	RaceType  string    `json:"race_type"`
	RaceClass *int      `json:"race_class"`
	Distance  string    `json:"distance"`
	Going     string    `json:"going"`
	Surface   string    `json:"surface"`
	Course    string    `json:"course"`
	CourseID  int64     `json:"course_id"`
}

// CourseRaces is one course's races for the day
type CourseRaces struct {
	Course   string       `json:"course"`
	CourseID int64        `json:"course_id"`
	Races    []TodaysRace `json:"races"`
}

// TodaysRaces is the day's race cards grouped by course
type TodaysRaces struct {
	RaceDate string        `json:"race_date"`
	Courses  []CourseRaces `json:"courses"`
}
