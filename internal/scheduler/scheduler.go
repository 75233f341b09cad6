// Package scheduler runs the periodic settlement refresh and race card warm-up.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/racing-form/internal/metrics"
	"github.com/yourusername/racing-form/internal/models"
)

const (
	jobSettlementRefresh = "settlement_refresh"
	jobRaceCacheWarm     = "race_cache_warm"
)

// SettlementReporter recomputes the settlement report
type SettlementReporter interface {
	GetSettlementReport(ctx context.Context) (*models.SettlementReport, error)
}

// RaceCacheWarmer reloads today's race cards
type RaceCacheWarmer interface {
	WarmTodaysRaces(ctx context.Context) (int, error)
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron       *cron.Cron
	settlement SettlementReporter
	races      RaceCacheWarmer
	logger     *logrus.Entry
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
	jobTimeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(settlement SettlementReporter, races RaceCacheWarmer, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		settlement: settlement,
		races:      races,
		logger:     logger.WithField("component", "scheduler"),
		jobIDs:     make([]cron.EntryID, 0),
		jobTimeout: 5 * time.Minute,
	}
}

// ScheduleSettlementRefresh recomputes the settlement report on cronExpression
func (s *Scheduler) ScheduleSettlementRefresh(cronExpression string) error {
	return s.schedule(jobSettlementRefresh, cronExpression, s.refreshSettlement)
}

// ScheduleRaceCacheWarm reloads today's race cards on cronExpression
func (s *Scheduler) ScheduleRaceCacheWarm(cronExpression string) error {
	return s.schedule(jobRaceCacheWarm, cronExpression, s.warmRaceCache)
}

func (s *Scheduler) schedule(name, cronExpression string, job func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		s.run(ctx, name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to add %s job: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"job":  name,
		"cron": cronExpression,
	}).Info("Scheduled job")
	return nil
}

func (s *Scheduler) run(ctx context.Context, name string, job func(context.Context) error) {
	start := time.Now()
	if err := job(ctx); err != nil {
		metrics.RecordScheduledJob(name, "error")
		s.logger.WithField("job", name).WithError(err).Error("Scheduled job failed")
		return
	}
	metrics.RecordScheduledJob(name, "success")
	s.logger.WithFields(logrus.Fields{
		"job":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Scheduled job completed")
}

func (s *Scheduler) refreshSettlement(ctx context.Context) error {
	report, err := s.settlement.GetSettlementReport(ctx)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"bets":          report.NumberOfBets,
		"overall_total": report.OverallTotal,
	}).Info("Settlement refreshed")
	return nil
}

func (s *Scheduler) warmRaceCache(ctx context.Context) error {
	races, err := s.races.WarmTodaysRaces(ctx)
	if err != nil {
		return err
	}
	s.logger.WithField("races", races).Info("Race cards warmed")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop stops new runs and waits for running jobs to finish. The scheduler
// reports as stopped as soon as Stop is called.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	done := s.cron.Stop().Done()
	s.isRunning = false
	s.mu.Unlock()

	<-done
	s.logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// JobCount returns the number of scheduled jobs
func (s *Scheduler) JobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobIDs)
}
