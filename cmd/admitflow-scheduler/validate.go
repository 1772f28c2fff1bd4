package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/enrollhq/admitflow/pkg/registry"
)

// NewValidateCommand validates workflow template documents without starting
// the scheduler. Templates that fail validation are refused for activation.
func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate workflow template documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "templates-dir",
				Usage:    "Directory of workflow template JSON documents",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := slog.With(
				"module", "admitflow-scheduler",
				"action", "validate",
			)

			templateRegistry := registry.NewRegistry()

			entries, err := templateRegistry.LoadDir(command.String("templates-dir"))
			if err != nil {
				return err
			}

			for _, entry := range entries {
				logger.InfoContext(ctx, "Template valid",
					"template_id", entry.Template.ID,
					"version", entry.Template.Version,
					"stages", len(entry.Template.Stages),
					"transitions", len(entry.Template.Transitions))
			}

			fmt.Printf("%d template(s) validated successfully\n", len(entries))

			return nil
		},
	}
}
