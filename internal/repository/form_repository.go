package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/racing-form/internal/database"
	"github.com/yourusername/racing-form/internal/models"
)

// PostgresFormRepository implements FormRepository for PostgreSQL
type PostgresFormRepository struct {
	db database.Querier
}

// NewPostgresFormRepository creates a new form repository
func NewPostgresFormRepository(db database.Querier) FormRepository {
	return &PostgresFormRepository{db: db}
}

// GetRaceForm returns the form record set for a race. No rows is reported as
// models.ErrRaceNotFound.
func (r *PostgresFormRepository) GetRaceForm(ctx context.Context, raceDate string, raceID int64) ([]models.PerformanceRow, error) {
	rows, err := r.db.Query(ctx,
		"SELECT * FROM public.select_graph_form_data_by_race_id($1::date, $2)", raceDate, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query race form: %w", err)
	}

	frame, err := collectFrame(rows)
	if errors.Is(err, models.ErrEmptyTable) {
		return nil, fmt.Errorf("%w: race %d on %s", models.ErrRaceNotFound, raceID, raceDate)
	}
	if err != nil {
		return nil, err
	}

	return frame.PerformanceRows()
}

// GetTodaysRaces returns the race card for raceDate
func (r *PostgresFormRepository) GetTodaysRaces(ctx context.Context, raceDate string) ([]models.PerformanceRow, error) {
	rows, err := r.db.Query(ctx, "SELECT * FROM public.select_race_date_race_times($1::date)", raceDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query todays races: %w", err)
	}

	frame, err := collectFrame(rows)
	if errors.Is(err, models.ErrEmptyTable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return frame.PerformanceRows()
}
