// Command gridclient talks to a running gridshare server from the terminal.
// It reads the grid over REST, edits it over the WebSocket protocol like a
// browser would, and can stream every change as it happens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "gridclient: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "gridclient",
		Usage: "inspect and edit a gridshare server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8000",
				Usage:   "server base URL",
				Sources: cli.EnvVars("GRIDSHARE_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "snapshot",
				Usage: "print the grid",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					view, err := newClient(cmd.String("server")).Grid(ctx)
					if err != nil {
						return err
					}
					return renderGrid(cmd.Root().Writer, view)
				},
			},
			{
				Name:  "analyze",
				Usage: "summarize filled cells, densest rows and columns, and clusters",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					view, err := newClient(cmd.String("server")).Grid(ctx)
					if err != nil {
						return err
					}
					printAnalysis(cmd.Root().Writer, analyze(view))
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "set a cell over the WebSocket protocol",
				ArgsUsage: "<index> <value>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 2 {
						return fmt.Errorf("usage: set <index> <value>")
					}
					index, value, err := parseSetArgs(cmd.Args().Get(0), cmd.Args().Get(1))
					if err != nil {
						return err
					}
					if err := newClient(cmd.String("server")).Set(ctx, index, value); err != nil {
						return err
					}
					fmt.Fprintf(cmd.Root().Writer, "sent update: cell %d = %d\n", index, value)
					return nil
				},
			},
			{
				Name:  "reset",
				Usage: "clear the grid for everyone",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := newClient(cmd.String("server")).Reset(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.Root().Writer, "grid reset")
					return nil
				},
			},
			{
				Name:  "watch",
				Usage: "stream every message the server sends",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return newClient(cmd.String("server")).Watch(ctx, cmd.Root().Writer)
				},
			},
		},
	}
}
