package main

import (
	"fmt"
	"os"

	"github.com/AlexTo8319/ukraine-event-intelligence/internal/verify"
	"github.com/urfave/cli/v2"
)

func main() {
	sharedFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to the pipeline config YAML (defaults apply when missing)",
		},
		&cli.StringFlag{
			Name:  "policy",
			Usage: "Path to the content policy YAML (overrides the config's policy_file)",
		},
		&cli.StringFlag{
			Name:  "db",
			Value: "events.db",
			Usage: "Path to the SQLite events database",
		},
		&cli.StringFlag{
			Name:  "format",
			Value: "json",
			Usage: "Output format: json or yaml",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Only log errors",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log per-record debug detail",
		},
	}

	app := &cli.App{
		Name:  "event-intel",
		Usage: "Verify, correct and deduplicate civic event records",
		Commands: []*cli.Command{
			{
				Name:   "verify",
				Usage:  "Run the verification pipeline over stored or supplied records",
				Action: verify.VerifyAction,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "input",
						Usage: "Verify records from a JSON/YAML file instead of the database",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent verification workers (overrides config)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: 100,
						Usage: "Maximum records to load from the database",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report decisions without writing to the database",
					},
				}, sharedFlags...),
			},
			{
				Name:   "list",
				Usage:  "Print stored records",
				Action: verify.ListAction,
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 100,
						Usage: "Maximum records to print",
					},
				}, sharedFlags...),
			},
			{
				Name:   "purge",
				Usage:  "Delete stored records the current content policy rejects",
				Action: verify.PurgeAction,
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 1000,
						Usage: "Maximum records to scan",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would be purged without deleting",
					},
				}, sharedFlags...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
