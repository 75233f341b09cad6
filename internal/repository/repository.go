// Package repository reads and writes the racing database through pgx and
// hands record sets to the table layer.
package repository

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/yourusername/racing-form/internal/database"
	"github.com/yourusername/racing-form/internal/table"
)

// Repositories holds all repository implementations
type Repositories struct {
	Form    FormRepository
	Betting BettingRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Form:    NewPostgresFormRepository(db),
		Betting: NewPostgresBettingRepository(db),
	}, nil
}

// collectFrame drains rows into a table.Frame keyed by column name. An empty
// result returns models.ErrEmptyTable.
func collectFrame(rows pgx.Rows) (*table.Frame, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var records []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		rec := make(map[string]any, len(fields))
		for i, fd := range fields {
			rec[fd.Name] = normalizeValue(values[i])
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return table.FromRecords(records)
}

// normalizeValue turns pgx composite values into plain scalars the table
// layer can format.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Date:
		if !val.Valid {
			return nil
		}
		return val.Time
	case pgtype.Timestamp:
		if !val.Valid {
			return nil
		}
		return val.Time
	case pgtype.Timestamptz:
		if !val.Valid {
			return nil
		}
		return val.Time
	case [16]byte:
		return uuid.UUID(val).String()
	default:
		return v
	}
}
