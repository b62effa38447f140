package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/JZJJake/AkBack/internal/backtest/engine"
	"github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

const (
	DefaultInitialCapital = 100000.0
	DefaultLookbackDays   = 7
	DefaultFlowScale      = 100.0
)

type BacktestEngineV1Config struct {
	InitialCapital        float64                    `yaml:"initial_capital" json:"initial_capital" validate:"gt=0" jsonschema:"title=Initial Capital,description=Starting cash of the account in CNY,minimum=0,default=100000"`
	Broker                commission_fee.Broker      `yaml:"broker" json:"broker" validate:"required,oneof=a_share zero_commission" jsonschema:"title=Broker,description=The fee model used for commission calculations"`
	CommissionRate        float64                    `yaml:"commission_rate" json:"commission_rate" validate:"gte=0,lt=1" jsonschema:"title=Commission Rate,description=Proportional commission charged on both sides,minimum=0,default=0.0003"`
	MinCommission         float64                    `yaml:"min_commission" json:"min_commission" validate:"gte=0" jsonschema:"title=Minimum Commission,description=Per-trade commission floor in CNY,minimum=0,default=5"`
	StampDutyRate         float64                    `yaml:"stamp_duty_rate" json:"stamp_duty_rate" validate:"gte=0,lt=1" jsonschema:"title=Stamp Duty Rate,description=Sell-side transaction tax,minimum=0,default=0.0005"`
	LotSize               int64                      `yaml:"lot_size" json:"lot_size" validate:"gt=0" jsonschema:"title=Lot Size,description=Round lot in shares,minimum=1,default=100"`
	FullPositionThreshold float64                    `yaml:"full_position_threshold" json:"full_position_threshold" validate:"gt=0,lte=1" jsonschema:"title=Full Position Threshold,description=Fractions at or above this value buy with all cash or sell every sellable share,default=0.99"`
	StartTime             optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional first day of the backtest"`
	EndTime               optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional last day of the backtest"`
	Mode                  engine.RunMode             `yaml:"mode" json:"mode" validate:"required,oneof=single rotation" jsonschema:"title=Mode,description=single trades one symbol; rotation holds at most one symbol and switches daily"`
	Symbol                string                     `yaml:"symbol" json:"symbol" validate:"required_if=Mode single" jsonschema:"title=Symbol,description=Symbol traded in single mode"`
	LookbackDays          int                        `yaml:"lookback_days" json:"lookback_days" validate:"gte=0" jsonschema:"title=Lookback Days,description=Calendar days the lookup selector searches back for the latest signal,minimum=0,default=7"`
	FlowScale             float64                    `yaml:"flow_scale" json:"flow_scale" validate:"gt=0" jsonschema:"title=Flow Scale,description=Scaling constant of the flow divergence indicator,default=100"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config.
// Missing keys keep their default values.
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	defaults := EmptyConfig()
	config := yamlConfig{
		InitialCapital:        defaults.InitialCapital,
		Broker:                defaults.Broker,
		CommissionRate:        defaults.CommissionRate,
		MinCommission:         defaults.MinCommission,
		StampDutyRate:         defaults.StampDutyRate,
		LotSize:               defaults.LotSize,
		FullPositionThreshold: defaults.FullPositionThreshold,
		Mode:                  defaults.Mode,
		LookbackDays:          defaults.LookbackDays,
		FlowScale:             defaults.FlowScale,
	}

	if err := unmarshal(&config); err != nil {
		return err
	}

	c.InitialCapital = config.InitialCapital
	c.Broker = config.Broker
	c.CommissionRate = config.CommissionRate
	c.MinCommission = config.MinCommission
	c.StampDutyRate = config.StampDutyRate
	c.LotSize = config.LotSize
	c.FullPositionThreshold = config.FullPositionThreshold
	c.Mode = config.Mode
	c.Symbol = config.Symbol
	c.LookbackDays = config.LookbackDays
	c.FlowScale = config.FlowScale
	c.StartTime = optional.FromNillable(config.StartTime)
	c.EndTime = optional.FromNillable(config.EndTime)

	return nil
}

type yamlConfig struct {
	InitialCapital        float64               `yaml:"initial_capital"`
	Broker                commission_fee.Broker `yaml:"broker"`
	CommissionRate        float64               `yaml:"commission_rate"`
	MinCommission         float64               `yaml:"min_commission"`
	StampDutyRate         float64               `yaml:"stamp_duty_rate"`
	LotSize               int64                 `yaml:"lot_size"`
	FullPositionThreshold float64               `yaml:"full_position_threshold"`
	StartTime             *time.Time            `yaml:"start_time,omitempty"`
	EndTime               *time.Time            `yaml:"end_time,omitempty"`
	Mode                  engine.RunMode        `yaml:"mode"`
	Symbol                string                `yaml:"symbol,omitempty"`
	LookbackDays          int                   `yaml:"lookback_days"`
	FlowScale             float64               `yaml:"flow_scale"`
}

// MarshalYAML writes unset times as missing keys so the output reads back through UnmarshalYAML.
func (c BacktestEngineV1Config) MarshalYAML() (interface{}, error) {
	return yamlConfig{
		InitialCapital:        c.InitialCapital,
		Broker:                c.Broker,
		CommissionRate:        c.CommissionRate,
		MinCommission:         c.MinCommission,
		StampDutyRate:         c.StampDutyRate,
		LotSize:               c.LotSize,
		FullPositionThreshold: c.FullPositionThreshold,
		StartTime:             c.StartTime.UnwrapAsPtr(),
		EndTime:               c.EndTime.UnwrapAsPtr(),
		Mode:                  c.Mode,
		Symbol:                c.Symbol,
		LookbackDays:          c.LookbackDays,
		FlowScale:             c.FlowScale,
	}, nil
}

// Validate checks field ranges and that the date range is not inverted.
func (c BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest configuration", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "end_time %s is before start_time %s",
			c.EndTime.Unwrap().Format(time.DateOnly), c.StartTime.Unwrap().Format(time.DateOnly))
	}

	return nil
}

// AccountConfig returns the endowment and fee schedule described by the config.
func (c BacktestEngineV1Config) AccountConfig() AccountConfig {
	return AccountConfig{
		InitialCash: decimal.NewFromFloat(c.InitialCapital),
		Commission:  commission_fee.GetCommissionFeeHandler(c.Broker, c.CommissionRate, c.MinCommission),
		StampDuty:   commission_fee.NewStampDuty(c.StampDutyRate),
		LotSize:     c.LotSize,
	}
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			if strings.Contains(t.String(), "engine.RunMode") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: []any{engine.RunModeSingle, engine.RunModeRotation},
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a rotation config over the given range with 100000 of capital.
func TestConfig(startTime time.Time, endTime time.Time, broker commission_fee.Broker) BacktestEngineV1Config {
	config := EmptyConfig()
	config.Broker = broker
	config.StartTime = optional.Some(startTime)
	config.EndTime = optional.Some(endTime)

	return config
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital:        DefaultInitialCapital,
		Broker:                commission_fee.BrokerAShare,
		CommissionRate:        commission_fee.DefaultCommissionRate,
		MinCommission:         commission_fee.DefaultMinCommission,
		StampDutyRate:         commission_fee.DefaultStampDutyRate,
		LotSize:               DefaultLotSize,
		FullPositionThreshold: DefaultFullPositionThreshold,
		StartTime:             optional.None[time.Time](),
		EndTime:               optional.None[time.Time](),
		Mode:                  engine.RunModeRotation,
		Symbol:                "",
		LookbackDays:          DefaultLookbackDays,
		FlowScale:             DefaultFlowScale,
	}
}
