package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/licenced/internal/licence"
)

// StatusCommand returns the CLI command for querying licence status.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current licence status for a user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "User to look up (defaults to the shared default user)",
				Value:   licence.DefaultUserID,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the status as JSON",
			},
		},
		Action: runStatus,
	}
}

func runStatus(c *cli.Context) error {
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
	st, err := svc.Status(c.Context, c.String("user"))
	if err != nil {
		return fmt.Errorf("failed to query status: %w", err)
	}

	if c.Bool("json") {
		out, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	switch {
	case st.Unbounded:
		fmt.Printf("%s: unlimited licence, active\n", c.String("user"))
	case st.Active:
		fmt.Printf("%s: timed licence, %d day(s) remaining\n", c.String("user"), st.Days)
	default:
		fmt.Printf("%s: no active licence\n", c.String("user"))
	}
	return nil
}
