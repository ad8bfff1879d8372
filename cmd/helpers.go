package cmd

import (
	"database/sql"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/licenced/internal/config"
	"github.com/licenced/internal/database"
)

// loadConfig loads and validates configuration for a command, honouring
// the global --config flag.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStoreDB resolves the database URL, opens the connection and makes
// sure the licences schema exists. The resolved URL is returned as well
// so the job queue can open its own pool against the same database.
func openStoreDB(cfg *config.Config) (*sql.DB, string, error) {
	dbURL, err := database.ResolveURL(cfg.Database.URL)
	if err != nil {
		return nil, "", err
	}

	db, err := database.NewDB(dbURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(db); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ensure schema: %w", err)
	}
	return db, dbURL, nil
}
