package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/racing-form/internal/logger"
	"github.com/yourusername/racing-form/internal/metrics"
	"github.com/yourusername/racing-form/internal/models"
	"github.com/yourusername/racing-form/internal/repository"
	"github.com/yourusername/racing-form/internal/settlement"
)

// BettingService stores selections and settles the ledger
type BettingService struct {
	repo             repository.BettingRepository
	validate         *validator.Validate
	lenient          bool
	logger           *logrus.Logger
	settlementLogger *logger.SettlementLogger
}

// NewBettingService creates a new betting service. Lenient mode accepts and
// voids unknown bet types instead of rejecting them.
func NewBettingService(repo repository.BettingRepository, lenient bool, log *logrus.Logger) *BettingService {
	return &BettingService{
		repo:             repo,
		validate:         validator.New(),
		lenient:          lenient,
		logger:           log,
		settlementLogger: logger.NewSettlementLogger(log),
	}
}

// StoreSelections validates a race's selections and stores them under the
// current session. The returned id tags the stored batch.
func (s *BettingService) StoreSelections(ctx context.Context, selections *models.BettingSelections) (uuid.UUID, error) {
	if err := s.validate.Struct(selections); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", models.ErrInvalidSelection, err)
	}
	if err := selections.Validate(); err != nil {
		return uuid.Nil, err
	}
	if !s.lenient {
		for _, sel := range selections.Selections {
			if _, err := settlement.ParseStrategy(sel.BetType); err != nil {
				return uuid.Nil, err
			}
		}
	}

	sessionID, err := s.repo.GetCurrentSession(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	batchID := uuid.New()
	if err := s.repo.StoreSelections(ctx, selections, sessionID, batchID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to store selections for race %d: %w", selections.RaceID, err)
	}

	metrics.RecordSelectionsStored(len(selections.Selections))
	s.settlementLogger.LogSelectionsStored(selections.RaceID, selections.RaceDate, sessionID, len(selections.Selections))
	return batchID, nil
}

// GetSettlementReport settles every stored selection against its result
func (s *BettingService) GetSettlementReport(ctx context.Context) (*models.SettlementReport, error) {
	start := time.Now()

	sessionID, err := s.repo.GetCurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	inputs, err := s.repo.GetSelectionsAnalysis(ctx)
	if err != nil {
		return nil, err
	}

	opts := []settlement.Option{settlement.WithLogger(s.logger)}
	if s.lenient {
		opts = append(opts, settlement.WithLenientStrategies())
	}
	report, err := settlement.NewEngine(sessionID, opts...).Settle(inputs)
	if err != nil {
		return nil, err
	}

	s.recordSettlement(report)
	duration := time.Since(start)
	metrics.RecordSettlementDuration(duration.Seconds())
	s.settlementLogger.LogSettlement(sessionID, report.NumberOfBets, report.SessionNumberOfBets,
		report.OverallTotal, report.SessionOverallTotal, float64(duration.Microseconds())/1000)
	return report, nil
}

// recordSettlement publishes per-strategy counts and closing totals
func (s *BettingService) recordSettlement(report *models.SettlementReport) {
	counts := make(map[string]int)
	closing := make(map[string]float64)
	for _, bet := range report.ResultDict {
		counts[bet.Strategy]++
		closing[bet.Strategy] = bet.RunningTotal
	}
	for strategy, n := range counts {
		metrics.RecordBetsSettled(strategy, n)
		metrics.UpdateStrategyRunningTotal(strategy, closing[strategy])
		s.settlementLogger.LogStrategyTotal(strategy, n, closing[strategy])
	}
	metrics.UpdateSessionRunningTotal(report.SessionOverallTotal)
}
