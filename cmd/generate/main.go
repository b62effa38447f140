package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	engine "github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1"
	"github.com/JZJJake/AkBack/internal/strategy"
	"github.com/JZJJake/AkBack/mocks"
	"github.com/JZJJake/AkBack/pkg/marketdata/writer"
	"github.com/JZJJake/AkBack/pkg/utils"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"
)

const (
	schemaName       = "backtest-engine-v1-config.json"
	sampleConfigName = "backtest-engine-v1-config.yaml"
)

// strategySchemas are written next to the engine schema, one file per strategy config.
var strategySchemas = map[string]any{
	"sniper-config.json":        strategy.DefaultSniperConfig(),
	"sma-crossover-config.json": strategy.DefaultSMACrossoverConfig(),
}

func validatePaths(schemaPath, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

func validateSchemaName(name string) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if filepath.Ext(name) != ".json" {
		return fmt.Errorf("schema name %q must have .json extension", name)
	}

	return nil
}

func getSchemaReference(name string) string {
	return "# yaml-language-server: $schema=" + name + "\n"
}

func generateSchemaFile(config engine.BacktestEngineV1Config, schemaPath string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	return writeFile(schemaPath, []byte(schemaJSON))
}

// generateSampleConfig writes config as YAML unless samplePath already exists.
func generateSampleConfig(config engine.BacktestEngineV1Config, samplePath string, schemaName string) error {
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	return writeFile(samplePath, append([]byte(getSchemaReference(schemaName)), yamlBytes...))
}

func generateStrategySchemas(dir string) error {
	for name, config := range strategySchemas {
		schema, err := utils.GetSchemaFromConfig(config, strings.TrimSuffix(name, filepath.Ext(name)))
		if err != nil {
			return fmt.Errorf("failed to generate schema %s: %w", name, err)
		}

		if err := writeFile(filepath.Join(dir, name), []byte(schema)); err != nil {
			return err
		}
	}

	return nil
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	dir := cmd.String("output")
	schemaPath := filepath.Join(dir, schemaName)
	sampleConfigPath := filepath.Join(dir, sampleConfigName)

	if err := validatePaths(schemaPath, sampleConfigPath); err != nil {
		return err
	}

	if err := validateSchemaName(schemaName); err != nil {
		return err
	}

	config := engine.EmptyConfig()

	if err := generateSchemaFile(config, schemaPath); err != nil {
		return err
	}

	if err := generateSampleConfig(config, sampleConfigPath, schemaName); err != nil {
		return err
	}

	if err := generateStrategySchemas(dir); err != nil {
		return err
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	return nil
}

func dataAction(_ context.Context, cmd *cli.Command) error {
	symbols := strings.Split(cmd.String("symbols"), ",")
	for i := range symbols {
		symbols[i] = strings.TrimSpace(symbols[i])
	}

	config := mocks.DefaultConfig()
	config.Count = cmd.Int("days")
	config.WithFlow = !cmd.Bool("no-flow")

	if cmd.IsSet("start") {
		config.StartDate = cmd.Timestamp("start")
	}

	bars := mocks.NewDataGenerator(cmd.Int64("seed")).GenerateMultiSymbol(symbols, config)

	if err := writer.WriteAll(cmd.String("output"), config.WithFlow, bars); err != nil {
		return fmt.Errorf("failed to write bars: %w", err)
	}

	log.Printf("Wrote %d bars for %d symbols to %s", len(bars), len(symbols), cmd.String("output"))

	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate config schemas and synthetic data",
		Commands: []*cli.Command{
			{
				Name:  "schema",
				Usage: "Write the engine and strategy config schemas and a sample config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
						Value:   "./config",
					},
				},
				Action: schemaAction,
			},
			{
				Name:  "data",
				Usage: "Write synthetic daily bars, one parquet file per symbol",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
						Value:   "./data",
					},
					&cli.StringFlag{
						Name:  "symbols",
						Usage: "Comma separated symbols",
						Value: "000001,000002,600000",
					},
					&cli.IntFlag{
						Name:  "days",
						Usage: "Trading days per symbol",
						Value: 250,
					},
					&cli.TimestampFlag{
						Name:  "start",
						Usage: "First calendar day in `YYYY-MM-DD` format",
						Value: mocks.DefaultConfig().StartDate,
						Config: cli.TimestampConfig{
							Layouts: []string{time.DateOnly},
						},
					},
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "Random seed",
						Value: 42,
					},
					&cli.BoolFlag{
						Name:  "no-flow",
						Usage: "Leave out the active buy/sell volume columns",
					},
				},
				Action: dataAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
