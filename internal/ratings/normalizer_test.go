package ratings

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reference = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return reference.AddDate(0, 0, -n)
}

func TestComputeUsesMostRecentFiveQualifyingRuns(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	runs := []Run{
		{HorseID: 1, RaceDate: daysAgo(10), Rating: 60, SpeedFigure: 50},
		{HorseID: 1, RaceDate: daysAgo(20), Rating: 40, SpeedFigure: 40},
		{HorseID: 1, RaceDate: daysAgo(30), Rating: 50, SpeedFigure: 45},
		{HorseID: 1, RaceDate: daysAgo(40), Rating: 10, SpeedFigure: 30},
		{HorseID: 1, RaceDate: daysAgo(50), Rating: 70, SpeedFigure: 70},
		// sixth most recent falls outside the window
		{HorseID: 1, RaceDate: daysAgo(60), Rating: 100, SpeedFigure: 100},
		{HorseID: 1, RaceDate: reference, Today: true},
	}

	stats := n.Compute(runs, reference)
	s, ok := stats[1]
	require.True(t, ok)

	// window is 60,40,50,70 after the sub-15 run drops out
	assert.Equal(t, 4, s.Runs)
	assert.Equal(t, 55.0, s.MedianRating)
	assert.Equal(t, 55.0, s.MeanRating)
	assert.Equal(t, 47.5, s.MedianSpeed)
	assert.InDelta(t, 51.25, s.MeanSpeed, 1e-9)

	rating, speed := s.Backfill()
	assert.Equal(t, 55, rating)
	assert.Equal(t, 49, speed)
}

func TestComputeIgnoresRunsOlderThanWindowYears(t *testing.T) {
	n := NewNormalizer(DefaultConfig())
	runs := []Run{
		{HorseID: 2, RaceDate: reference.AddDate(-3, 0, 0), Rating: 80, SpeedFigure: 80},
		{HorseID: 2, RaceDate: reference, Today: true},
	}

	s := n.Compute(runs, reference)[2]
	assert.False(t, s.HasWindow())

	rating, speed := s.Backfill()
	assert.Zero(t, rating)
	assert.Zero(t, speed)
	assert.Zero(t, s.RatingDiff(70))
	assert.Zero(t, s.SpeedRatingDiff(70))
}

func TestRatingDiffAgainstMedian(t *testing.T) {
	s := Stats{Runs: 3, MedianRating: 45, MedianSpeed: 40}
	assert.Equal(t, 5, s.RatingDiff(50))
	assert.Equal(t, -10, s.SpeedRatingDiff(30))
}

func TestNewNormalizerDefaults(t *testing.T) {
	n := NewNormalizer(Config{MinRating: -1})
	assert.Equal(t, DefaultConfig(), n.cfg)
}

func TestMedian(t *testing.T) {
	assert.True(t, math.IsNaN(Median(nil)))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
}
