package main

import (
	"context"
	"log"
	"os"

	"github.com/JZJJake/AkBack/internal/strategy"
	"github.com/urfave/cli/v3"
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Directory holding one `<symbol>.parquet` file per symbol",
			Required: true,
		},
		&cli.TimestampFlag{
			Name:    "start",
			Aliases: []string{"s"},
			Usage:   "First day in `YYYY-MM-DD` format. Defaults to the first bar.",
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02"},
			},
		},
		&cli.TimestampFlag{
			Name:    "end",
			Aliases: []string{"e"},
			Usage:   "Last day in `YYYY-MM-DD` format. Defaults to the last bar.",
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02"},
			},
		},
		&cli.FloatFlag{
			Name:  "capital",
			Usage: "Initial capital in CNY, overrides the config file",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Backtest engine config (YAML)",
		},
		&cli.StringFlag{
			Name:    "results",
			Aliases: []string{"r"},
			Usage:   "Results directory",
			Value:   "results",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Also write logs to this file, rotated by size",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Log at debug level",
		},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Backtest A-share strategies over daily bars",
		Commands: []*cli.Command{
			{
				Name:  "rotation",
				Usage: "Hold at most one symbol and switch between symbols daily",
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  "signals",
						Usage: "Precomputed signals (YAML list of date/symbol). Uses the sniper selector when unset.",
					},
					&cli.StringFlag{
						Name:  "stock-info",
						Usage: "Total shares and ST names for the sniper selector (YAML)",
					},
					&cli.IntFlag{
						Name:  "lookback",
						Usage: "Calendar days a signal stays valid, overrides the config file",
						Value: -1,
					},
					&cli.StringFlag{
						Name:  "save-signals",
						Usage: "Precompute the sniper selector over --start..--end and write the signals here before running",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Symbols the sniper selector evaluates in parallel, 0 uses every CPU",
					},
				),
				Action: rotationAction,
			},
			{
				Name:  "single",
				Usage: "Trade one symbol with a moving average crossover",
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "symbol",
						Usage:    "Symbol to trade",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "fast",
						Usage: "Fast moving average period",
						Value: strategy.DefaultSMACrossoverConfig().FastPeriod,
					},
					&cli.IntFlag{
						Name:  "slow",
						Usage: "Slow moving average period",
						Value: strategy.DefaultSMACrossoverConfig().SlowPeriod,
					},
				),
				Action: singleAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
