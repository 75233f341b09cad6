package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/racing-form/internal/database"
	"github.com/yourusername/racing-form/internal/models"
)

// PostgresBettingRepository implements BettingRepository for PostgreSQL
type PostgresBettingRepository struct {
	db *database.DB
}

// NewPostgresBettingRepository creates a new betting repository
func NewPostgresBettingRepository(db *database.DB) BettingRepository {
	return &PostgresBettingRepository{db: db}
}

// StoreSelections replaces the selections held for the same race and session
// and refreshes the selections_info view.
func (r *PostgresBettingRepository) StoreSelections(ctx context.Context, selections *models.BettingSelections, sessionID int, batchID uuid.UUID) error {
	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx database.Querier) error {
		return replaceSelections(ctx, tx, selections, sessionID, batchID, time.Now().UTC())
	})
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, "CALL betting.update_selections_info()"); err != nil {
		return fmt.Errorf("failed to refresh selections info: %w", err)
	}
	return nil
}

func replaceSelections(ctx context.Context, q database.Querier, selections *models.BettingSelections, sessionID int, batchID uuid.UUID, createdAt time.Time) error {
	_, err := q.Exec(ctx,
		"DELETE FROM betting.selections WHERE race_id = $1 AND session_id = $2",
		selections.RaceID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear selections for race %d: %w", selections.RaceID, err)
	}

	query := `
		INSERT INTO betting.selections (race_date, race_id, horse_id, betting_type, session_id, batch_id, created_at)
		VALUES ($1::date, $2, $3, $4, $5, $6, $7)
	`
	for _, s := range selections.Selections {
		_, err := q.Exec(ctx, query,
			selections.RaceDate, selections.RaceID, s.HorseID, s.BetType, sessionID, batchID, createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert selection for horse %d: %w", s.HorseID, err)
		}
	}
	return nil
}

// GetSelectionsAnalysis returns every stored selection joined with its result
func (r *PostgresBettingRepository) GetSelectionsAnalysis(ctx context.Context) ([]models.SettlementInput, error) {
	rows, err := r.db.Query(ctx, `
		SELECT race_id, race_date, race_time, horse_id, horse_name, betting_type AS bet_type,
		       session_id, created_at AS placed_at, finishing_position, number_of_runners,
		       betfair_win_sp, betfair_place_sp
		FROM betting.selections_info
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query selections info: %w", err)
	}

	frame, err := collectFrame(rows)
	if errors.Is(err, models.ErrEmptyTable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return frame.SettlementInputs()
}

// GetCurrentSession returns the latest betting session id, 0 when none exist
func (r *PostgresBettingRepository) GetCurrentSession(ctx context.Context) (int, error) {
	var sessionID int
	err := r.db.QueryRow(ctx, "SELECT session_id FROM betting.sessions ORDER BY session_id DESC LIMIT 1").Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read current session: %w", err)
	}
	return sessionID, nil
}
