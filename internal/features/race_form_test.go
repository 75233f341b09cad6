package features

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racing-form/internal/models"
)

func raceRows() []models.PerformanceRow {
	alphaToday := todayRun(1, "Alpha", "2024-06-01", 6.0)
	alphaToday.OfficialRating = intPtr(40)
	alphaToday.PriceChange = floatPtr(-1.6)
	alphaToday.RaceTitle = "Handicap"
	alphaToday.FirstPlacePrizeMoney = floatPtr(math.NaN())

	bravoToday := todayRun(2, "Bravo", "2024-06-01", 2.5)
	bravoToday.Age = intPtr(5)

	charlieToday := todayRun(3, "Charlie", "2024-06-01", 0)
	charlieToday.BetfairWinSP = nil

	return []models.PerformanceRow{
		alphaToday,
		historicalRun(1, "Alpha", "2024-05-01", "1", 50, 50, 10),
		historicalRun(1, "Alpha", "2024-05-20", "2", 52, 52, 10),
		// older than three years, filtered before the pipeline runs
		historicalRun(1, "Alpha", "2020-01-01", "1", 90, 90, 10),
		bravoToday,
		historicalRun(2, "Bravo", "2024-04-01", "5", 70, 70, 10),
		charlieToday,
		// horse without a today row is not part of the race
		historicalRun(4, "Delta", "2024-04-01", "1", 70, 70, 10),
	}
}

func fixedPrices(prices map[string]float64) PriceFunc {
	return func([]models.FormRecord) (map[string]float64, error) { return prices, nil }
}

func TestBuildRaceForm(t *testing.T) {
	form, err := BuildRaceForm(raceRows(), FormOptions{})
	require.NoError(t, err)

	assert.Equal(t, int64(999), form.RaceID)
	assert.Equal(t, "Ascot", form.Course)
	assert.Equal(t, "2024-06-01", form.RaceDate)
	require.Len(t, form.HorseData, 3)

	names := []string{form.HorseData[0].HorseName, form.HorseData[1].HorseName, form.HorseData[2].HorseName}
	assert.Equal(t, []string{"Bravo", "Alpha", "Charlie"}, names)

	bravo := form.HorseData[0]
	assert.Equal(t, 1, bravo.TodaysHorseNumber)
	assert.Equal(t, 5, *bravo.TodaysHorseAge)
	assert.Equal(t, 1, bravo.NumberOfRuns)
	require.NotNil(t, bravo.TodaysOfficialRating)
	assert.Equal(t, 0, *bravo.TodaysOfficialRating)

	alpha := form.HorseData[1]
	assert.Equal(t, 2, alpha.TodaysHorseNumber)
	assert.Equal(t, 1, alpha.TodaysFirstPlaces)
	assert.Equal(t, 1, alpha.TodaysSecondPlaces)
	assert.Equal(t, -2.0, *alpha.TodaysPriceChange)
	require.Len(t, alpha.PerformanceData, 3)
	assert.Equal(t, "2024-06-01", alpha.PerformanceData[0].RaceDate)
	assert.Equal(t, "2024-05-20", alpha.PerformanceData[1].RaceDate)
	assert.Equal(t, "2024-05-01", alpha.PerformanceData[2].RaceDate)
	// today rating 51 against an official rating of 40
	assert.Equal(t, 51, alpha.PerformanceData[0].Rating)
	assert.Equal(t, 11, alpha.PerformanceData[0].OfficialRatingDiff)
	assert.Equal(t, 0, alpha.PerformanceData[1].OfficialRatingDiff)

	charlie := form.HorseData[2]
	assert.Equal(t, 3, charlie.TodaysHorseNumber)
	assert.Nil(t, charlie.TodaysBetfairWinSP)
	assert.Equal(t, 0, charlie.NumberOfRuns)
	assert.Nil(t, charlie.TodaysDaysSinceLastRan)
}

func TestBuildRaceFormSanitizesHeader(t *testing.T) {
	rows := raceRows()
	rows = []models.PerformanceRow{rows[0], rows[1]}

	form, err := BuildRaceForm(rows, FormOptions{})
	require.NoError(t, err)
	assert.Nil(t, form.FirstPlacePrizeMoney)
}

func TestBuildRaceFormAttachesSimulatedPrices(t *testing.T) {
	form, err := BuildRaceForm(raceRows(), FormOptions{Pricer: fixedPrices(map[string]float64{"Alpha": 4.2})})
	require.NoError(t, err)

	for _, h := range form.HorseData {
		if h.HorseName == "Alpha" {
			require.NotNil(t, h.TodaysSimulatedPrice)
			assert.Equal(t, 4.2, *h.TodaysSimulatedPrice)
			for _, p := range h.PerformanceData {
				assert.Equal(t, 4.2, *p.SimulatedPrice)
			}
			continue
		}
		assert.Nil(t, h.TodaysSimulatedPrice)
	}
}

func TestBuildRaceFormRejectsPriceForAbsentRunner(t *testing.T) {
	// Delta has form but is not declared in today's race
	_, err := BuildRaceForm(raceRows(), FormOptions{Pricer: fixedPrices(map[string]float64{"Delta": 3.0})})
	assert.ErrorIs(t, err, models.ErrHorseNotFound)
}

func TestBuildRaceFormRequiresTodayRow(t *testing.T) {
	rows := []models.PerformanceRow{historicalRun(1, "Alpha", "2024-05-01", "1", 50, 50, 10)}
	_, err := BuildRaceForm(rows, FormOptions{})
	assert.ErrorIs(t, err, models.ErrNoTodayRow)
}

func TestGroupRacesByCourse(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 6, 1, h, 0, 0, 0, time.UTC) }
	rows := []models.PerformanceRow{
		{RaceID: 3, Course: "York", CourseID: 20, RaceTime: at(15), RaceDate: "2024-06-01", RaceClass: intPtr(2)},
		{RaceID: 1, Course: "York", CourseID: 20, RaceTime: at(13), RaceDate: "2024-06-01", RaceClass: intPtr(0)},
		{RaceID: 1, Course: "York", CourseID: 20, RaceTime: at(13), RaceDate: "2024-06-01"},
		{RaceID: 2, Course: "Ascot", CourseID: 5, RaceTime: at(14), RaceDate: "2024-06-01"},
		{RaceID: 4, Course: "Galway", CourseID: 30, RaceTime: at(16), RaceDate: "2024-06-01"},
	}

	got := GroupRacesByCourse(rows, "", []string{"Galway"}, time.Time{})
	assert.Equal(t, "2024-06-01", got.RaceDate)
	require.Len(t, got.Courses, 2)

	assert.Equal(t, "Ascot", got.Courses[0].Course)
	require.Len(t, got.Courses[0].Races, 1)

	york := got.Courses[1]
	assert.Equal(t, int64(20), york.CourseID)
	require.Len(t, york.Races, 2)
	assert.Equal(t, int64(1), york.Races[0].RaceID)
	assert.Nil(t, york.Races[0].RaceClass)
	assert.Equal(t, 2, *york.Races[1].RaceClass)
}

func TestGroupRacesByCourseSkipsStartedRaces(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 6, 1, h, 0, 0, 0, time.UTC) }
	rows := []models.PerformanceRow{
		{RaceID: 1, Course: "York", CourseID: 20, RaceTime: at(12), RaceDate: "2024-06-01"},
		{RaceID: 2, Course: "York", CourseID: 20, RaceTime: at(15), RaceDate: "2024-06-01"},
		{RaceID: 3, Course: "Ascot", CourseID: 5, RaceTime: at(14), RaceDate: "2024-06-01"},
		{RaceID: 4, Course: "Ascot", CourseID: 5, RaceDate: "2024-06-01"},
	}

	got := GroupRacesByCourse(rows, "2024-06-01", nil, at(14))
	require.Len(t, got.Courses, 2)

	ascot := got.Courses[0]
	require.Len(t, ascot.Races, 2)
	// a race off at exactly now is still listed
	assert.Equal(t, int64(4), ascot.Races[0].RaceID)
	assert.Equal(t, int64(3), ascot.Races[1].RaceID)

	york := got.Courses[1]
	require.Len(t, york.Races, 1)
	assert.Equal(t, int64(2), york.Races[0].RaceID)

	empty := GroupRacesByCourse(rows[:1], "2024-06-01", nil, at(13))
	assert.Empty(t, empty.Courses)
}

func TestBuildRaceFormUsesPricer(t *testing.T) {
	var priced []string
	form, err := BuildRaceForm(raceRows(), FormOptions{
		Pricer: func(records []models.FormRecord) (map[string]float64, error) {
			for _, r := range records {
				if r.IsToday() {
					priced = append(priced, r.HorseName)
				}
			}
			return map[string]float64{"Bravo": 3.4}, nil
		},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alpha", "Bravo", "Charlie"}, priced)
	assert.Equal(t, 3.4, *form.HorseData[0].TodaysSimulatedPrice)

	_, err = BuildRaceForm(raceRows(), FormOptions{
		Pricer: func([]models.FormRecord) (map[string]float64, error) {
			return nil, context.DeadlineExceeded
		},
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
