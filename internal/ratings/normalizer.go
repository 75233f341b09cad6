// Package ratings estimates today's rating and speed figure for each runner
// from its recent form.
package ratings

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Config controls the recent-form window
type Config struct {
	WindowSize  int
	WindowYears int
	MinRating   int
}

// DefaultConfig returns the standard five runs over two years, ignoring
// figures below 15.
func DefaultConfig() Config {
	return Config{
		WindowSize:  5,
		WindowYears: 2,
		MinRating:   15,
	}
}

// Run is the slice of a performance the normalizer reads
type Run struct {
	HorseID     int64
	RaceDate    time.Time
	Rating      int
	SpeedFigure int
	Today       bool
}

// Stats is one horse's recent-form summary
type Stats struct {
	HorseID      int64
	Runs         int
	MedianRating float64
	MeanRating   float64
	MedianSpeed  float64
	MeanSpeed    float64
}

// HasWindow reports whether any run qualified for the window
func (s Stats) HasWindow() bool {
	return s.Runs > 0
}

// Backfill returns the midpoint of median and mean for rating and speed
// figure, or zeros when the horse has no qualifying runs.
func (s Stats) Backfill() (rating, speedFigure int) {
	if !s.HasWindow() {
		return 0, 0
	}
	return int(math.RoundToEven((s.MedianRating + s.MeanRating) / 2)),
		int(math.RoundToEven((s.MedianSpeed + s.MeanSpeed) / 2))
}

// RatingDiff returns rating minus the window median, 0 without a window
func (s Stats) RatingDiff(rating int) int {
	if !s.HasWindow() {
		return 0
	}
	return int(math.RoundToEven(float64(rating) - s.MedianRating))
}

// SpeedRatingDiff returns speed figure minus the window median, 0 without a window
func (s Stats) SpeedRatingDiff(speedFigure int) int {
	if !s.HasWindow() {
		return 0
	}
	return int(math.RoundToEven(float64(speedFigure) - s.MedianSpeed))
}

// Normalizer computes recent-form statistics
type Normalizer struct {
	cfg Config
}

// NewNormalizer creates a new Normalizer, filling unset limits with defaults
func NewNormalizer(cfg Config) *Normalizer {
	def := DefaultConfig()
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.WindowYears <= 0 {
		cfg.WindowYears = def.WindowYears
	}
	if cfg.MinRating < 0 {
		cfg.MinRating = def.MinRating
	}
	return &Normalizer{cfg: cfg}
}

// Compute returns the stats of every horse seen in runs. Horses without a
// qualifying historical run are present with Runs == 0.
func (n *Normalizer) Compute(runs []Run, reference time.Time) map[int64]Stats {
	cutoff := reference.AddDate(-n.cfg.WindowYears, 0, 0)

	byHorse := make(map[int64][]Run)
	for _, r := range runs {
		if _, ok := byHorse[r.HorseID]; !ok {
			byHorse[r.HorseID] = nil
		}
		if r.Today || r.RaceDate.Before(cutoff) || r.RaceDate.After(reference) {
			continue
		}
		byHorse[r.HorseID] = append(byHorse[r.HorseID], r)
	}

	out := make(map[int64]Stats, len(byHorse))
	for horseID, hist := range byHorse {
		sort.SliceStable(hist, func(i, j int) bool {
			return hist[i].RaceDate.After(hist[j].RaceDate)
		})
		if len(hist) > n.cfg.WindowSize {
			hist = hist[:n.cfg.WindowSize]
		}

		ratings := make([]float64, 0, len(hist))
		speeds := make([]float64, 0, len(hist))
		for _, r := range hist {
			if r.Rating < n.cfg.MinRating || r.SpeedFigure < n.cfg.MinRating {
				continue
			}
			ratings = append(ratings, float64(r.Rating))
			speeds = append(speeds, float64(r.SpeedFigure))
		}

		stats := Stats{HorseID: horseID, Runs: len(ratings)}
		if stats.Runs > 0 {
			stats.MedianRating = Median(ratings)
			stats.MeanRating = stat.Mean(ratings, nil)
			stats.MedianSpeed = Median(speeds)
			stats.MeanSpeed = stat.Mean(speeds, nil)
		}
		out[horseID] = stats
	}
	return out
}

// Median returns the middle value, averaging the middle pair for even
// lengths. NaN for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
