package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/JZJJake/AkBack/internal/backtest/engine"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

// UtilsTestSuite is a test suite for utils package
type UtilsTestSuite struct {
	suite.Suite
}

// TestUtilsSuite runs the test suite
func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestGetResultFolder() {
	tests := []struct {
		name          string
		mode          engine.RunMode
		strategyName  string
		resultsFolder string
		startTime     optional.Option[time.Time]
		endTime       optional.Option[time.Time]
		expectedPath  string
	}{
		{
			name:          "Basic case without time range",
			mode:          engine.RunModeSingle,
			strategyName:  "sma_crossover",
			resultsFolder: "/results",
			startTime:     optional.None[time.Time](),
			endTime:       optional.None[time.Time](),
			expectedPath:  "/results/single/sma_crossover/all_all/run",
		},
		{
			name:          "Case with time range",
			mode:          engine.RunModeRotation,
			strategyName:  "lookup",
			resultsFolder: "/results",
			startTime:     optional.Some(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)),
			endTime:       optional.Some(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)),
			expectedPath:  "/results/rotation/lookup/20230101_20231231/run",
		},
		{
			name:          "Case with only start time",
			mode:          engine.RunModeRotation,
			strategyName:  "sniper",
			resultsFolder: "results",
			startTime:     optional.Some(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
			endTime:       optional.None[time.Time](),
			expectedPath:  "results/rotation/sniper/20240301_all/run",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			path := getResultFolder(tc.resultsFolder, tc.mode, tc.strategyName, tc.startTime, tc.endTime, "run")
			suite.Equal(filepath.FromSlash(tc.expectedPath), path)
		})
	}
}

func (suite *UtilsTestSuite) TestSnapshot() {
	account := NewAccount(DefaultAccountConfig(100000))

	flat := snapshot(account, day(2), "000001", 10)
	suite.Empty(flat.Symbol)
	suite.Zero(flat.Quantity)
	suite.Equal("100000", flat.TotalAssets.String())

	_, err := account.Buy("000001", 10, 1000)
	suite.Require().NoError(err)

	held := snapshot(account, day(2).Add(9*time.Hour), "000001", 10.5)
	suite.Equal(day(2), held.Date)
	suite.Equal("000001", held.Symbol)
	suite.Equal(int64(1000), held.Quantity)
	suite.Equal("10500", held.PositionValue.String())
	suite.Equal("100495", held.TotalAssets.String())
}

func (suite *UtilsTestSuite) TestNotifyWithoutCallbacks() {
	suite.NoError(notifyProgress(engine.LifecycleCallbacks{}, 1, 1))
}
