package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

func browseAction(_ context.Context, cmd *cli.Command) error {
	runs, err := FindRuns(cmd.String("results"))
	if err != nil {
		return fmt.Errorf("failed to scan results: %w", err)
	}

	p := tea.NewProgram(NewModel(runs, LoadTrades), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}

	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "Browse backtest runs and their trades",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Usage:   "Results directory written by backtest",
				Value:   "results",
			},
		},
		Action: browseAction,
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
