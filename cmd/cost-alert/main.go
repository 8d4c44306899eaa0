// Command cost-alert writes the daily DigitalOcean cost report and keeps the
// monthly cost ledger up to date.
//
// Usage:
//
//	cost-alert [run] [--date YYYY-MM-DD]
//	cost-alert ledger show [--month YYYY-MM]
//	cost-alert ledger rebuild [--month YYYY-MM]
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"costalert/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "cost-alert",
		Usage:   "Daily DigitalOcean cost report and monthly cost ledger",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   config.DefaultConfigFile,
				Usage:   "Optional YAML configuration file",
				EnvVars: []string{"COST_ALERT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "reports-dir",
				Usage:   "Directory the YYYY/MM report tree is written under",
				EnvVars: []string{"REPORTS_DIR"},
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Ledger backend (sqlite, markdown)",
				EnvVars: []string{"LEDGER_BACKEND"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},

		Action: runAction,

		Commands: []*cli.Command{
			runCommand(),
			ledgerCommand(),
		},
	}
}
