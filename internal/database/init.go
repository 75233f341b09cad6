package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racing-form/internal/config"
)

// requiredSchemas hold the form views and the betting ledger
var requiredSchemas = []string{"public", "betting"}

// Initialize creates a database connection pool and verifies the schemas the
// repositories read from are present.
func Initialize(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	for _, schema := range requiredSchemas {
		var found bool
		err := db.pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)", schema,
		).Scan(&found)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to check schema %s: %w", schema, err)
		}
		if !found {
			db.Close()
			return nil, fmt.Errorf("schema %s not found, run the database migrations first", schema)
		}
	}

	logger.WithFields(logrus.Fields{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Name,
	}).Info("Database connection established")

	return db, nil
}
