package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/JZJJake/AkBack/internal/types"
	"github.com/moznion/go-optional"
)

// DataGenerator generates deterministic daily A-share bars for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Symbol is the stock code (e.g., "000001", "600000")
	Symbol string
	// StartDate is the first calendar day considered
	StartDate time.Time
	// Count is the number of trading days to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.02 = 2% typical daily volatility)
	Volatility float64
	// Trend is the total drift over the series (-0.5 to 0.5 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
	// Holidays are weekdays without trading
	Holidays []time.Time
	// WithFlow fills OutVol and InVol
	WithFlow bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "000001",
		StartDate:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Count:          250,
		InitialPrice:   10.0,
		Volatility:     0.02,
		Trend:          0.0,
		VolumeBase:     1_000_000,
		VolumeVariance: 0.3,
		WithFlow:       true,
	}
}

// Generate creates daily bars on weekdays that are not holidays.
// Prices follow a geometric Brownian motion and are rounded to the 0.01 tick.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketData {
	holidays := make(map[int64]bool, len(config.Holidays))
	for _, h := range config.Holidays {
		holidays[types.NormalizeDate(h).Unix()] = true
	}

	data := make([]types.MarketData, 0, config.Count)
	currentPrice := config.InitialPrice
	currentDate := types.NormalizeDate(config.StartDate)

	for len(data) < config.Count {
		if !isTradingDay(currentDate, holidays) {
			currentDate = currentDate.AddDate(0, 0, 1)

			continue
		}

		open := currentPrice

		// Box-Muller transform for a normal draw
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		close := open * (1 + config.Volatility*z + drift)
		if close <= 0.01 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := math.Round(config.VolumeBase * volumeVariation)
		if volume <= 0 {
			volume = math.Round(config.VolumeBase * 0.1)
		}

		bar := types.MarketData{
			Symbol: config.Symbol,
			Time:   currentDate,
			Open:   roundToDecimals(open, 2),
			High:   roundToDecimals(high, 2),
			Low:    roundToDecimals(low, 2),
			Close:  roundToDecimals(close, 2),
			Volume: volume,
			OutVol: optional.None[float64](),
			InVol:  optional.None[float64](),
		}

		if config.WithFlow {
			outShare := 0.3 + g.rng.Float64()*0.4
			outVol := math.Round(volume * outShare)
			bar.OutVol = optional.Some(outVol)
			bar.InVol = optional.Some(volume - outVol)
		}

		data = append(data, bar)

		currentPrice = bar.Close
		currentDate = currentDate.AddDate(0, 0, 1)
	}

	return data
}

// GenerateMultiSymbol generates data for multiple symbols over the same calendar.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) []types.MarketData {
	var allData []types.MarketData

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		// Vary initial price and volatility slightly per symbol
		config.InitialPrice = roundToDecimals(baseConfig.InitialPrice*(0.8+g.rng.Float64()*0.4), 2)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		allData = append(allData, g.Generate(config)...)
	}

	return allData
}

// GenerateYear is a convenience function for one year of daily bars with default settings.
func GenerateYear(symbol string) []types.MarketData {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Symbol = symbol

	return gen.Generate(config)
}

func isTradingDay(date time.Time, holidays map[int64]bool) bool {
	if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		return false
	}

	return !holidays[date.Unix()]
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
