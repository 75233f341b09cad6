// Package service composes the repositories with the form pipeline, the
// simulator and the settlement engine.
package service

import (
	"context"
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/racing-form/internal/config"
	"github.com/yourusername/racing-form/internal/features"
	"github.com/yourusername/racing-form/internal/logger"
	"github.com/yourusername/racing-form/internal/metrics"
	"github.com/yourusername/racing-form/internal/models"
	"github.com/yourusername/racing-form/internal/ratings"
	"github.com/yourusername/racing-form/internal/repository"
	"github.com/yourusername/racing-form/internal/simulator"
)

const (
	raceFormCache   = "race_form"
	todaysRaceCache = "todays_races"
)

// FormService serves race forms and race cards
type FormService struct {
	repo            repository.FormRepository
	normalizer      *ratings.Normalizer
	simulator       *simulator.Simulator
	simulateEnabled bool
	lookbackWeeks   int
	excludedCourses []string
	cache           *cache.Cache
	formLogger      *logger.FormLogger
	now             func() time.Time
}

// NewFormService creates a new form service. A zero cache TTL disables caching.
func NewFormService(repo repository.FormRepository, cfg *config.Config, log *logrus.Logger) *FormService {
	s := &FormService{
		repo: repo,
		normalizer: ratings.NewNormalizer(ratings.Config{
			WindowSize:  cfg.Form.WindowSize,
			WindowYears: cfg.Form.WindowYears,
			MinRating:   cfg.Form.MinRating,
		}),
		simulator: simulator.NewSimulator(simulator.Config{
			Trials:       cfg.Simulation.Trials,
			Workers:      cfg.Simulation.Workers,
			Seed:         cfg.Simulation.Seed,
			TargetRuns:   cfg.Simulation.TargetRuns,
			PriceCeiling: cfg.Simulation.PriceCeiling,
		}, log),
		simulateEnabled: cfg.Simulation.Enabled,
		lookbackWeeks:   cfg.Form.LookbackWeeks,
		excludedCourses: cfg.Form.ExcludedCourses,
		formLogger:      logger.NewFormLogger(log),
		now:             time.Now,
	}
	if ttl := cfg.CacheTTL(); ttl > 0 {
		s.cache = cache.New(ttl, ttl*2)
	}
	return s
}

// GetRaceForm builds the form tree for a race, optionally with simulated prices
func (s *FormService) GetRaceForm(ctx context.Context, raceDate string, raceID int64, simulate bool) (*models.RaceForm, error) {
	simulate = simulate && s.simulateEnabled
	key := fmt.Sprintf("%s:%d:%t", raceDate, raceID, simulate)
	if form, ok := s.lookup(raceFormCache, key); ok {
		return form.(*models.RaceForm), nil
	}

	start := time.Now()
	form, rowsIn, err := s.buildRaceForm(ctx, raceDate, raceID, simulate)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordRaceForm("error", rowsIn, duration.Seconds())
		s.formLogger.LogPipelineFailure(raceID, raceDate, err)
		return nil, err
	}

	metrics.RecordRaceForm("success", rowsIn, duration.Seconds())
	s.formLogger.LogRaceFormBuilt(raceID, raceDate, rowsIn, len(form.HorseData), simulate, float64(duration.Microseconds())/1000)
	s.store(raceFormCache, key, form)
	return form, nil
}

func (s *FormService) buildRaceForm(ctx context.Context, raceDate string, raceID int64, simulate bool) (*models.RaceForm, int, error) {
	rows, err := s.repo.GetRaceForm(ctx, raceDate, raceID)
	if err != nil {
		return nil, 0, err
	}

	opts := s.formOptions()
	if simulate {
		opts.Pricer = func(records []models.FormRecord) (map[string]float64, error) {
			result, err := s.simulate(ctx, raceID, records)
			if err != nil {
				return nil, err
			}
			return result.Prices(), nil
		}
	}
	form, err := features.BuildRaceForm(rows, opts)
	return form, len(rows), err
}

// SimulateRace runs the Monte-Carlo simulator over a race's prepared form
func (s *FormService) SimulateRace(ctx context.Context, raceDate string, raceID int64) (*simulator.Result, error) {
	rows, err := s.repo.GetRaceForm(ctx, raceDate, raceID)
	if err != nil {
		return nil, err
	}
	records, _, err := features.Prepare(rows, s.formOptions())
	if err != nil {
		return nil, err
	}
	return s.simulate(ctx, raceID, records)
}

func (s *FormService) formOptions() features.FormOptions {
	return features.FormOptions{
		Normalizer:    s.normalizer,
		LookbackWeeks: s.lookbackWeeks,
	}
}

func (s *FormService) simulate(ctx context.Context, raceID int64, records []models.FormRecord) (*simulator.Result, error) {
	start := time.Now()
	result, err := s.simulator.Run(ctx, records)
	if err != nil {
		metrics.RecordSimulation("error", time.Since(start).Seconds(), 0)
		return nil, err
	}

	var favourite simulator.RunnerOdds
	if len(result.Runners) > 0 {
		favourite = result.Runners[0]
	}
	metrics.RecordSimulation("success", time.Since(start).Seconds(), favourite.WinPercentage)
	s.formLogger.LogSimulation(raceID, result.Trials, result.Seed, favourite.HorseName, favourite.WinPercentage)
	return result, nil
}

// GetTodaysRaces lists the race cards for raceDate, today when empty
func (s *FormService) GetTodaysRaces(ctx context.Context, raceDate string) (models.TodaysRaces, error) {
	if raceDate == "" {
		raceDate = features.ReferenceDate(s.now())
	}
	if races, ok := s.lookup(todaysRaceCache, raceDate); ok {
		out := races.(models.TodaysRaces)
		s.formLogger.LogTodaysRaces(raceDate, len(out.Courses), countRaces(out), true)
		return out, nil
	}

	out, err := s.loadTodaysRaces(ctx, raceDate)
	if err != nil {
		return models.TodaysRaces{}, err
	}
	s.formLogger.LogTodaysRaces(raceDate, len(out.Courses), countRaces(out), false)
	return out, nil
}

// WarmTodaysRaces reloads today's race cards into the cache
func (s *FormService) WarmTodaysRaces(ctx context.Context) (int, error) {
	raceDate := features.ReferenceDate(s.now())
	out, err := s.loadTodaysRaces(ctx, raceDate)
	if err != nil {
		return 0, err
	}
	return countRaces(out), nil
}

func (s *FormService) loadTodaysRaces(ctx context.Context, raceDate string) (models.TodaysRaces, error) {
	rows, err := s.repo.GetTodaysRaces(ctx, raceDate)
	if err != nil {
		return models.TodaysRaces{}, fmt.Errorf("failed to load races for %s: %w", raceDate, err)
	}
	out := features.GroupRacesByCourse(rows, raceDate, s.excludedCourses, s.now())
	s.store(todaysRaceCache, raceDate, out)
	return out, nil
}

func (s *FormService) lookup(name, key string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok := s.cache.Get(name + ":" + key)
	metrics.RecordCacheLookup(name, ok)
	return v, ok
}

func (s *FormService) store(name, key string, v any) {
	if s.cache != nil {
		s.cache.SetDefault(name+":"+key, v)
	}
}

func countRaces(t models.TodaysRaces) int {
	n := 0
	for _, c := range t.Courses {
		n += len(c.Races)
	}
	return n
}
