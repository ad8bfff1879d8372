package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/licenced/internal/licence"
)

// SweepCommand returns the CLI command for running one decay sweep by
// hand. The sweep reconciles by elapsed days, so running it repeatedly
// or alongside the scheduler is harmless.
func SweepCommand() *cli.Command {
	return &cli.Command{
		Name:   "sweep",
		Usage:  "Run one licence decay sweep immediately",
		Action: runSweep,
	}
}

func runSweep(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	db, _, err := openStoreDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := licence.NewService(licence.NewPostgresStore(db))
	affected, err := svc.RunDecay(c.Context, time.Now())
	if err != nil {
		return fmt.Errorf("decay sweep failed: %w", err)
	}

	fmt.Printf("Decay sweep complete, %d grant(s) decremented\n", affected)
	return nil
}
