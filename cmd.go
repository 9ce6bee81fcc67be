package main

import (
	stdlog "log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/crewhub/workspace/consts"
	"github.com/crewhub/workspace/version"
)

func App() {
	var opts serveOptions

	app := &cli.App{
		Name:    "workspace",
		Usage:   "CrewHub agent workspace dashboard",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "log-level",
				Value:       4,
				DefaultText: "4 (Info)",
				Usage:       "log verbosity level: 2 (Error), 3 (Warning), 4 (Info), 5 (Debug), 6 (Trace)",
				Destination: &opts.logLevel,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the dashboard server",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        consts.FlagServerPort,
						Usage:       "Port the server binds",
						Value:       consts.DefaultServerPort,
						Destination: &opts.port,
						EnvVars:     []string{"WORKSPACE_SERVER_PORT"},
					},
					&cli.StringFlag{
						Name:        consts.FlagServerAddress,
						Usage:       "Address the server binds",
						Value:       consts.DefaultServerAddress,
						Destination: &opts.address,
						EnvVars:     []string{"WORKSPACE_SERVER_ADDRESS"},
					},
					&cli.BoolFlag{
						Name:        consts.FlagServerHeadless,
						Usage:       "Do not open a browser after binding",
						Destination: &opts.headless,
						EnvVars:     []string{"WORKSPACE_SERVER_HEADLESS"},
					},
					&cli.BoolFlag{
						Name:        consts.FlagEnableCORS,
						Usage:       "Enable the cross-origin guard",
						Value:       true,
						Destination: &opts.enableCORS,
					},
					&cli.BoolFlag{
						Name:        consts.FlagEnableXsrf,
						Usage:       "Enable the XSRF guard on mutating requests",
						Value:       true,
						Destination: &opts.enableXsrf,
					},
					&cli.StringSliceFlag{
						Name:  "allowed-origin",
						Usage: "Additional origin allowed by the CORS guard (repeatable)",
					},
					&cli.PathFlag{
						Name:        "state-dir",
						Usage:       "Persist the session to a SQLite database in this directory",
						Destination: &opts.stateDir,
						EnvVars:     []string{"WORKSPACE_STATE_DIR"},
					},
					&cli.StringFlag{
						Name:        "hf-token",
						Usage:       "Hugging Face Inference API token",
						Destination: &opts.hfToken,
						EnvVars:     []string{"HUGGINGFACE_API_TOKEN"},
					},
				},
				Action: func(c *cli.Context) error {
					opts.allowedOrigins = c.StringSlice("allowed-origin")
					serve(opts)
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		stdlog.Fatal(err)
	}
}
