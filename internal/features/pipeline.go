// Package features derives the per-run form columns used to rank runners.
//
// Each stage is a method on the previous stage's result type, so the chain
// parse -> sort -> recency -> lastRan -> runCount -> placements -> distance ->
// rating -> backfill -> diff -> prices -> cleanup can only be called in order.
package features

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/racing-form/internal/models"
	"github.com/yourusername/racing-form/internal/ratings"
)

const (
	dateLayout = "2006-01-02"

	// thirds count only in fields larger than this, fourths in fields
	// larger than fourthPlaceMinRunners
	thirdPlaceMinRunners  = 7
	fourthPlaceMinRunners = 12
)

var dateLayouts = []string{
	dateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// Run executes every stage over rows for one race and returns the enriched
// records in (horse_id, race_date) order. rows is not modified.
func Run(rows []models.PerformanceRow, reference string, normalizer *ratings.Normalizer) ([]models.FormRecord, error) {
	if normalizer == nil {
		normalizer = ratings.NewNormalizer(ratings.DefaultConfig())
	}

	parsed, err := parse(rows, reference)
	if err != nil {
		return nil, err
	}
	distanced, err := parsed.
		sort().
		recency().
		lastRan().
		runCount().
		placements().
		distance()
	if err != nil {
		return nil, err
	}
	return distanced.
		rating().
		backfill(normalizer).
		diff().
		prices().
		cleanup(), nil
}

// ParseDate parses a race or reference date to midnight UTC
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", models.ErrMalformedDate, s)
}

// workRow carries a record plus the parsed date stage 12 drops
type workRow struct {
	models.FormRecord
	raceDate time.Time
}

type frame struct {
	rows      []workRow
	reference time.Time
	stats     map[int64]ratings.Stats
}

type (
	parsedForm     struct{ frame }
	sortedForm     struct{ frame }
	recencyForm    struct{ frame }
	lastRanForm    struct{ frame }
	countedForm    struct{ frame }
	placedForm     struct{ frame }
	distancedForm  struct{ frame }
	ratedForm      struct{ frame }
	backfilledForm struct{ frame }
	diffedForm     struct{ frame }
	pricedForm     struct{ frame }
)

// parse copies rows and parses race_date and the reference date
func parse(rows []models.PerformanceRow, reference string) (parsedForm, error) {
	ref, err := ParseDate(reference)
	if err != nil {
		return parsedForm{}, fmt.Errorf("failed to parse reference date: %w", err)
	}

	work := make([]workRow, len(rows))
	for i, r := range rows {
		d, err := ParseDate(r.RaceDate)
		if err != nil {
			return parsedForm{}, fmt.Errorf("failed to parse race_date for horse %d: %w", r.HorseID, err)
		}
		work[i] = workRow{FormRecord: models.FormRecord{PerformanceRow: r}, raceDate: d}
	}
	return parsedForm{frame{rows: work, reference: ref}}, nil
}

// sort orders rows by horse then race date, race time breaking ties
func (p parsedForm) sort() sortedForm {
	rows := p.rows
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].HorseID != rows[j].HorseID {
			return rows[i].HorseID < rows[j].HorseID
		}
		if !rows[i].raceDate.Equal(rows[j].raceDate) {
			return rows[i].raceDate.Before(rows[j].raceDate)
		}
		return rows[i].RaceTime.Before(rows[j].RaceTime)
	})
	return sortedForm{p.frame}
}

func (s sortedForm) recency() recencyForm {
	for i := range s.rows {
		days := daysBetween(s.rows[i].raceDate, s.reference)
		s.rows[i].DaysSincePerformance = days
		s.rows[i].WeeksSincePerformance = floorDiv(days, 7)
	}
	return recencyForm{s.frame}
}

func (r recencyForm) lastRan() lastRanForm {
	forEachHorse(r.rows, func(group []workRow) {
		for i := 1; i < len(group); i++ {
			days := daysBetween(group[i-1].raceDate, group[i].raceDate)
			weeks := floorDiv(days, 7)
			group[i].DaysSinceLastRan = &days
			group[i].WeeksSinceLastRan = &weeks
		}
	})
	return lastRanForm{r.frame}
}

// runCount numbers each horse's historical runs in time order; a today row
// carries the number of runs completed before it.
func (l lastRanForm) runCount() countedForm {
	forEachHorse(l.rows, func(group []workRow) {
		completed := 0
		for i := range group {
			if group[i].IsToday() {
				group[i].NumberOfRuns = completed
				continue
			}
			completed++
			group[i].NumberOfRuns = completed
		}
	})
	return countedForm{l.frame}
}

func (c countedForm) placements() placedForm {
	forEachHorse(c.rows, func(group []workRow) {
		var first, second, third, fourth int
		for i := range group {
			group[i].FirstPlaces = first
			group[i].SecondPlaces = second
			group[i].ThirdPlaces = third
			group[i].FourthPlaces = fourth

			switch group[i].Position() {
			case 1:
				first++
			case 2:
				second++
			case 3:
				if group[i].Runners() > thirdPlaceMinRunners {
					third++
				}
			case 4:
				if group[i].Runners() > fourthPlaceMinRunners {
					fourth++
				}
			}
		}
	})
	return placedForm{c.frame}
}

func (p placedForm) distance() (distancedForm, error) {
	var today *workRow
	for i := range p.rows {
		if p.rows[i].IsToday() {
			today = &p.rows[i]
			break
		}
	}
	if today == nil {
		return distancedForm{}, fmt.Errorf("failed to compute distance_diff: %w", models.ErrNoTodayRow)
	}

	todayYards := today.DistanceYards
	for i := range p.rows {
		if p.rows[i].DistanceYards == nil || todayYards == nil {
			p.rows[i].DistanceDiff = nil
			continue
		}
		diff := math.RoundToEven((*p.rows[i].DistanceYards-*todayYards)/100) * 100
		p.rows[i].DistanceDiff = &diff
	}
	return distancedForm{p.frame}, nil
}

func (d distancedForm) rating() ratedForm {
	for i := range d.rows {
		d.rows[i].Rating = combine(d.rows[i].TFR, d.rows[i].RPR)
		d.rows[i].SpeedFigure = combine(d.rows[i].TS, d.rows[i].TFIG)
	}
	return ratedForm{d.frame}
}

func (r ratedForm) backfill(normalizer *ratings.Normalizer) backfilledForm {
	runs := make([]ratings.Run, len(r.rows))
	for i, row := range r.rows {
		runs[i] = ratings.Run{
			HorseID:     row.HorseID,
			RaceDate:    row.raceDate,
			Rating:      row.Rating,
			SpeedFigure: row.SpeedFigure,
			Today:       row.IsToday(),
		}
	}
	r.stats = normalizer.Compute(runs, r.reference)

	for i := range r.rows {
		if !r.rows[i].IsToday() {
			continue
		}
		r.rows[i].Rating, r.rows[i].SpeedFigure = r.stats[r.rows[i].HorseID].Backfill()
	}
	return backfilledForm{r.frame}
}

func (b backfilledForm) diff() diffedForm {
	for i := range b.rows {
		s := b.stats[b.rows[i].HorseID]
		b.rows[i].RatingDiff = s.RatingDiff(b.rows[i].Rating)
		b.rows[i].SpeedRatingDiff = s.SpeedRatingDiff(b.rows[i].SpeedFigure)
	}
	return diffedForm{b.frame}
}

func (d diffedForm) prices() pricedForm {
	for i := range d.rows {
		d.rows[i].BetfairWinSP = CustomRound(d.rows[i].BetfairWinSP)
		d.rows[i].BetfairPlaceSP = CustomRound(d.rows[i].BetfairPlaceSP)
	}
	return pricedForm{d.frame}
}

// cleanup drops the parsed dates, normalising race_date to YYYY-MM-DD
func (p pricedForm) cleanup() []models.FormRecord {
	out := make([]models.FormRecord, len(p.rows))
	for i, row := range p.rows {
		out[i] = row.FormRecord
		out[i].RaceDate = row.raceDate.Format(dateLayout)
	}
	return out
}

// CustomRound rounds a decimal price the way prices are quoted: one decimal
// place below 10, whole numbers from 10 up. nil passes through.
func CustomRound(price *float64) *float64 {
	if price == nil {
		return nil
	}
	v := *price
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &v
	}
	if v < 10 {
		v = math.Round(v*10) / 10
	} else {
		v = math.Round(v)
	}
	return &v
}

// combine averages a rating pair, using a lone value as is and 0 when
// neither is recorded.
func combine(a, b *int) int {
	switch {
	case a != nil && b != nil:
		return int(math.RoundToEven(float64(*a+*b) / 2))
	case a != nil:
		return *a
	case b != nil:
		return *b
	default:
		return 0
	}
}

// forEachHorse calls fn with each contiguous run of rows for one horse.
// rows must already be sorted by horse.
func forEachHorse(rows []workRow, fn func([]workRow)) {
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].HorseID != rows[start].HorseID {
			fn(rows[start:i])
			start = i
		}
	}
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
