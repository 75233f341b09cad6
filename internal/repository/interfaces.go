package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/racing-form/internal/models"
)

// FormRepository reads performance record sets for the feature pipeline
type FormRepository interface {
	// GetRaceForm returns today's and historical rows for every runner in a race
	GetRaceForm(ctx context.Context, raceDate string, raceID int64) ([]models.PerformanceRow, error)
	// GetTodaysRaces returns one row per race scheduled on raceDate
	GetTodaysRaces(ctx context.Context, raceDate string) ([]models.PerformanceRow, error)
}

// BettingRepository stores selections and reads them back joined with results
type BettingRepository interface {
	StoreSelections(ctx context.Context, selections *models.BettingSelections, sessionID int, batchID uuid.UUID) error
	GetSelectionsAnalysis(ctx context.Context) ([]models.SettlementInput, error)
	GetCurrentSession(ctx context.Context) (int, error)
}
