package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yourusername/racing-form/internal/models"
	"github.com/yourusername/racing-form/internal/ratings"
)

// DefaultLookbackWeeks is three racing years of form
const DefaultLookbackWeeks = 52 * 3

// PriceFunc prices a race's prepared form, keyed by horse name
type PriceFunc func(records []models.FormRecord) (map[string]float64, error)

// FormOptions tunes BuildRaceForm
type FormOptions struct {
	Normalizer    *ratings.Normalizer
	LookbackWeeks int
	// Pricer attaches simulated prices; nil leaves the column unset
	Pricer PriceFunc
}

// Prepare keeps the rows raced within the lookback window of the today row's
// race date and runs the pipeline over them. The returned reference is the
// today row's race date.
func Prepare(rows []models.PerformanceRow, opts FormOptions) ([]models.FormRecord, string, error) {
	today, err := models.TodayRow(rows)
	if err != nil {
		return nil, "", fmt.Errorf("failed to prepare race form: %w", err)
	}
	todayDate, err := ParseDate(today.RaceDate)
	if err != nil {
		return nil, "", fmt.Errorf("failed to prepare race form: %w", err)
	}

	weeks := opts.LookbackWeeks
	if weeks <= 0 {
		weeks = DefaultLookbackWeeks
	}
	cutoff := todayDate.AddDate(0, 0, -7*weeks)

	kept := make([]models.PerformanceRow, 0, len(rows))
	for _, r := range rows {
		d, err := ParseDate(r.RaceDate)
		if err != nil {
			return nil, "", fmt.Errorf("failed to prepare race form for horse %d: %w", r.HorseID, err)
		}
		if d.After(cutoff) {
			kept = append(kept, r)
		}
	}

	reference := todayDate.Format(dateLayout)
	records, err := Run(kept, reference, opts.Normalizer)
	if err != nil {
		return nil, "", err
	}
	return records, reference, nil
}

// BuildRaceForm turns one race's rows into the race header and per-runner
// form tree. Runners are numbered and ordered by today's win price; each
// runner's performances run newest first.
func BuildRaceForm(rows []models.PerformanceRow, opts FormOptions) (*models.RaceForm, error) {
	records, _, err := Prepare(rows, opts)
	if err != nil {
		return nil, err
	}
	var prices map[string]float64
	if opts.Pricer != nil {
		if prices, err = opts.Pricer(records); err != nil {
			return nil, err
		}
	}
	form, err := AssembleRaceForm(records, prices)
	if err != nil {
		return nil, err
	}
	models.Sanitize(form)
	return form, nil
}

// AssembleRaceForm groups pipeline output into the race form tree
func AssembleRaceForm(records []models.FormRecord, prices map[string]float64) (*models.RaceForm, error) {
	for i := range records {
		rec := &records[i]
		if rec.OfficialRating == nil {
			zero := 0
			rec.OfficialRating = &zero
		}
		if *rec.OfficialRating != 0 {
			rec.OfficialRatingDiff = rec.Rating - *rec.OfficialRating
		}
		change := 0.0
		if rec.PriceChange != nil && !math.IsNaN(*rec.PriceChange) {
			change = math.RoundToEven(*rec.PriceChange)
		}
		rec.PriceChange = &change
		if prices != nil {
			if p, ok := prices[rec.HorseName]; ok {
				price := p
				rec.SimulatedPrice = &price
			}
		}
	}

	var today []*models.FormRecord
	for i := range records {
		if records[i].IsToday() {
			today = append(today, &records[i])
		}
	}
	if len(today) == 0 {
		return nil, fmt.Errorf("failed to assemble race form: %w", models.ErrNoTodayRow)
	}
	runners := make(map[string]bool, len(today))
	for _, t := range today {
		runners[t.HorseName] = true
	}
	for name := range prices {
		if !runners[name] {
			return nil, fmt.Errorf("failed to assemble race form: %w: %q", models.ErrHorseNotFound, name)
		}
	}
	sort.SliceStable(today, func(i, j int) bool {
		return priceLess(today[i].BetfairWinSP, today[j].BetfairWinSP)
	})

	header := today[0]
	form := &models.RaceForm{
		RaceID:               header.RaceID,
		Course:               header.Course,
		Distance:             header.Distance,
		Going:                header.Going,
		Surface:              header.Surface,
		RaceClass:            header.RaceClass,
		HcapRange:            header.HcapRange,
		AgeRange:             header.AgeRange,
		Conditions:           header.Conditions,
		FirstPlacePrizeMoney: header.FirstPlacePrizeMoney,
		RaceType:             header.RaceType,
		RaceTitle:            header.RaceTitle,
		RaceTime:             header.RaceTime,
		RaceDate:             header.RaceDate,
	}

	byHorse := make(map[int64][]models.FormRecord)
	for _, rec := range records {
		byHorse[rec.HorseID] = append(byHorse[rec.HorseID], rec)
	}

	seen := make(map[int64]bool, len(today))
	number := 0
	for _, t := range today {
		number++
		if seen[t.HorseID] {
			continue
		}
		seen[t.HorseID] = true

		perfs := byHorse[t.HorseID]
		sort.SliceStable(perfs, func(i, j int) bool {
			return perfs[i].RaceDate > perfs[j].RaceDate
		})

		horse := models.HorseForm{
			HorseID:                t.HorseID,
			HorseName:              t.HorseName,
			TodaysHorseNumber:      number,
			TodaysHorseAge:         t.Age,
			TodaysFirstPlaces:      t.FirstPlaces,
			TodaysSecondPlaces:     t.SecondPlaces,
			TodaysThirdPlaces:      t.ThirdPlaces,
			TodaysFourthPlaces:     t.FourthPlaces,
			NumberOfRuns:           t.NumberOfRuns,
			TodaysBetfairWinSP:     t.BetfairWinSP,
			TodaysBetfairPlaceSP:   t.BetfairPlaceSP,
			TodaysPriceChange:      t.PriceChange,
			TodaysOfficialRating:   t.OfficialRating,
			TodaysDaysSinceLastRan: t.DaysSinceLastRan,
			TodaysSimulatedPrice:   t.SimulatedPrice,
			PerformanceData:        perfs,
		}
		form.HorseData = append(form.HorseData, horse)
	}
	return form, nil
}

// GroupRacesByCourse builds the day's race cards, one entry per race grouped
// by course in course id order, skipping excluded courses and races that
// started before now. A zero now or a row without a race time is not filtered.
func GroupRacesByCourse(rows []models.PerformanceRow, raceDate string, excluded []string, now time.Time) models.TodaysRaces {
	skip := make(map[string]bool, len(excluded))
	for _, c := range excluded {
		skip[c] = true
	}

	out := models.TodaysRaces{RaceDate: raceDate}
	if len(rows) > 0 && raceDate == "" {
		if d, err := ParseDate(rows[0].RaceDate); err == nil {
			out.RaceDate = d.Format(dateLayout)
		}
	}

	index := make(map[int64]int)
	seenRace := make(map[int64]bool)
	for _, r := range rows {
		if skip[r.Course] || seenRace[r.RaceID] {
			continue
		}
		if !now.IsZero() && !r.RaceTime.IsZero() && r.RaceTime.Before(now) {
			continue
		}
		seenRace[r.RaceID] = true

		i, ok := index[r.CourseID]
		if !ok {
			i = len(out.Courses)
			index[r.CourseID] = i
			out.Courses = append(out.Courses, models.CourseRaces{Course: r.Course, CourseID: r.CourseID})
		}
		out.Courses[i].Races = append(out.Courses[i].Races, models.TodaysRace{
			RaceID:    r.RaceID,
			RaceTime:  r.RaceTime,
			RaceTitle: r.RaceTitle,
			RaceType:  r.RaceType,
			RaceClass: positiveOrNil(r.RaceClass),
			Distance:  r.Distance,
			Going:     r.Going,
			Surface:   r.Surface,
			Course:    r.Course,
			CourseID:  r.CourseID,
		})
	}

	sort.SliceStable(out.Courses, func(i, j int) bool {
		return out.Courses[i].CourseID < out.Courses[j].CourseID
	})
	for i := range out.Courses {
		races := out.Courses[i].Races
		sort.SliceStable(races, func(a, b int) bool {
			return races[a].RaceTime.Before(races[b].RaceTime)
		})
	}
	return out
}

// priceLess orders prices ascending with missing prices last
func priceLess(a, b *float64) bool {
	switch {
	case a == nil || math.IsNaN(*a):
		return false
	case b == nil || math.IsNaN(*b):
		return true
	default:
		return *a < *b
	}
}

func positiveOrNil(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// ReferenceDate is today's date in the pipeline's date layout
func ReferenceDate(now time.Time) string {
	return now.UTC().Format(dateLayout)
}
