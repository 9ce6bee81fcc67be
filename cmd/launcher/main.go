package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/crewhub/workspace/internal/launcher"
	"github.com/crewhub/workspace/internal/log"
	"github.com/crewhub/workspace/version"
)

func main() {
	var specPath string
	var logLevel int

	app := &cli.App{
		Name:    "workspace-launcher",
		Usage:   "Build and run the dashboard container from a launch spec",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:        "spec",
				Usage:       "Path to the launch spec file",
				Value:       "launch.yaml",
				Destination: &specPath,
				EnvVars:     []string{"WORKSPACE_LAUNCH_SPEC"},
			},
			&cli.IntFlag{
				Name:        "log-level",
				Value:       4,
				DefaultText: "4 (Info)",
				Usage:       "log verbosity level: 2 (Error), 3 (Warning), 4 (Info), 5 (Debug), 6 (Trace)",
				Destination: &logLevel,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "render",
				Usage: "Emit the Dockerfile for the launch spec",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:  "output",
						Usage: "Write the Dockerfile here instead of stdout",
					},
				},
				Action: func(c *cli.Context) error {
					spec, err := loadSpec(specPath)
					if err != nil {
						return cli.Exit(err, 1)
					}
					dockerfile := spec.RenderDockerfile()
					if output := c.Path("output"); output != "" {
						if err := os.WriteFile(output, []byte(dockerfile), 0o644); err != nil {
							return cli.Exit(err, 1)
						}
						return nil
					}
					fmt.Print(dockerfile)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "Check the launch spec's invariants",
				Action: func(c *cli.Context) error {
					ctx := makeContext(logLevel)
					spec, err := loadSpec(specPath)
					if err != nil {
						return cli.Exit(err, 1)
					}
					if err := spec.CheckContext(); err != nil {
						return cli.Exit(err, 1)
					}
					reportPosture(ctx, spec)
					log.Info(ctx, "Launch spec is valid", "image", spec.Image)
					return nil
				},
			},
			{
				Name:  "build",
				Usage: "Build the container image",
				Action: func(c *cli.Context) error {
					ctx := makeContext(logLevel)
					spec, err := loadSpec(specPath)
					if err != nil {
						return cli.Exit(err, 1)
					}
					engine, err := launcher.NewEngine()
					if err != nil {
						return cli.Exit(err, 1)
					}
					if _, err := engine.Build(ctx, spec, os.Stdout); err != nil {
						return cli.Exit(err, 1)
					}
					return nil
				},
			},
			{
				Name:  "up",
				Usage: "Build the image and run the container in the foreground",
				Action: func(c *cli.Context) error {
					ctx := makeContext(logLevel)
					spec, err := loadSpec(specPath)
					if err != nil {
						return cli.Exit(err, 1)
					}
					reportPosture(ctx, spec)
					engine, err := launcher.NewEngine()
					if err != nil {
						return cli.Exit(err, 1)
					}
					if _, err := engine.Build(ctx, spec, os.Stdout); err != nil {
						return cli.Exit(err, 1)
					}
					if err := engine.Run(ctx, spec, os.Stdout); err != nil {
						return cli.Exit(err, 1)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		stdlog.Fatal(err)
	}
}

func makeContext(logLevel int) context.Context {
	log.DefaultEntry.Logger.SetLevel(logrus.Level(logLevel))
	return log.WithLogger(context.Background(), log.DefaultEntry)
}

func loadSpec(path string) (*launcher.Spec, error) {
	spec, err := launcher.Load(path)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func reportPosture(ctx context.Context, spec *launcher.Spec) {
	for _, warning := range spec.PostureWarnings() {
		log.Warning(ctx, warning)
	}
}
