package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/licenced/internal/licence"
)

// GrantCommand returns the CLI command for creating a licence grant
// directly against the database, bypassing the HTTP admin gate.
func GrantCommand() *cli.Command {
	return &cli.Command{
		Name:  "grant",
		Usage: "Record a licence grant for a user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "User the grant is for (defaults to the shared default user)",
				Value:   licence.DefaultUserID,
			},
			&cli.StringFlag{
				Name:     "type",
				Aliases:  []string{"t"},
				Usage:    "Licence type: timed or unlimited",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Usage:   "Days of validity (timed licences only)",
			},
		},
		Action: runGrant,
	}
}

func runGrant(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	kind := licence.Kind(c.String("type"))
	if kind == licence.KindTimed && !c.IsSet("days") {
		return fmt.Errorf("--days is required for timed licences")
	}

	db, _, err := openStoreDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := licence.NewService(licence.NewPostgresStore(db))
	g, err := svc.Grant(c.Context, c.String("user"), kind, c.Int("days"))
	if err != nil {
		return fmt.Errorf("failed to record grant: %w", err)
	}

	if g.Kind == licence.KindUnlimited {
		fmt.Printf("Granted unlimited licence to %s (grant #%d)\n", g.UserID, g.ID)
	} else {
		fmt.Printf("Granted %d-day licence to %s (grant #%d)\n", g.DaysRemaining, g.UserID, g.ID)
	}
	return nil
}
