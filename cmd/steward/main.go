// Package main is the steward console entry point.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "steward",
		Usage: "Admin console for riders, the dental clinic, leadership and the website",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the console and metrics servers",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runServe(ctx)
				},
			},
			{
				Name:  "rights",
				Usage: "List the capabilities an account can be granted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runRights(os.Stdout, cmd.String("format"))
				},
			},
			{
				Name:  "issue-token",
				Usage: "Issue a development session token signed with DEV_SIGNING_KEY",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Required: true, Usage: "Account id"},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Value: "Developer", Usage: "Display name"},
					&cli.StringFlag{Name: "position", Aliases: []string{"p"}, Value: "Administrator", Usage: "Role label"},
					&cli.StringSliceFlag{Name: "right", Aliases: []string{"r"}, Usage: "Capability to grant (repeatable)"},
					&cli.BoolFlag{Name: "must-change-password", Usage: "Require a password change after sign-in"},
					&cli.DurationFlag{Name: "ttl", Value: defaultTokenTTL, Usage: "Token lifetime"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runIssueToken(os.Stdout, issueTokenInput{
						Subject:            cmd.String("subject"),
						Name:               cmd.String("name"),
						Position:           cmd.String("position"),
						Rights:             cmd.StringSlice("right"),
						MustChangePassword: cmd.Bool("must-change-password"),
						TTL:                cmd.Duration("ttl"),
					})
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
