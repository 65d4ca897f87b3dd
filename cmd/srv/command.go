package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	configFlag := &cli.StringFlag{
		Name:  "config",
		Usage: "Path of the TOML configuration file",
		Value: "config.toml",
	}

	s.app = cli.NewApp()
	s.app.Action = cli.ShowAppHelp
	s.app.Name = "swapd"
	s.app.Usage = "Track the lifecycle of cross-chain atomic swaps"
	s.app.Commands = []*cli.Command{
		{
			Action:   server.startNursery,
			Before:   server.loadConfig,
			Name:     "nursery",
			Usage:    "Start swap nursery",
			Flags:    []cli.Flag{configFlag},
			Category: "Worker",
			Description: `Used to watch the swap contracts of every configured chain, apply ` +
				`the lifecycle of swaps to the ledger and publish their status updates.`,
		},
		{
			Action: server.startMigrate,
			Before: server.loadConfig,
			Name:   "migrate",
			Usage:  "Migrate database",
			Flags: []cli.Flag{
				configFlag,
				&cli.StringFlag{
					Name:     "version",
					Usage:    "Version of the migration, eg. 0001",
					Required: true,
				},
			},
			Category:    "Database",
			Description: `Used to run a versioned migration of the ledger schema.`,
		},
	}
}
