package engine

import (
	"testing"
	"time"

	"github.com/JZJJake/AkBack/internal/types"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) TestRunModeConstants() {
	suite.Equal(RunMode("single"), RunModeSingle)
	suite.Equal(RunMode("rotation"), RunModeRotation)
}

func (suite *EngineTestSuite) TestStrategyFunc() {
	var strategy Strategy = StrategyFunc(func(bar types.MarketData) (optional.Option[types.Order], error) {
		if bar.Close > bar.Open {
			return optional.Some(types.BuyFraction(1)), nil
		}

		return optional.None[types.Order](), nil
	})

	order, err := strategy.OnBar(types.MarketData{Open: 10, Close: 11})
	suite.NoError(err)
	suite.True(order.IsSome())
	suite.Equal(types.PurchaseTypeBuy, order.Unwrap().Side)

	order, err = strategy.OnBar(types.MarketData{Open: 11, Close: 10})
	suite.NoError(err)
	suite.True(order.IsNone())
}

func (suite *EngineTestSuite) TestSelectorFunc() {
	pivot := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var selector Selector = SelectorFunc(func(date time.Time) (optional.Option[string], error) {
		if date.Before(pivot) {
			return optional.None[string](), nil
		}

		return optional.Some("000001"), nil
	})

	symbol, err := selector.Select(pivot.AddDate(0, 0, -1))
	suite.NoError(err)
	suite.True(symbol.IsNone())

	symbol, err = selector.Select(pivot)
	suite.NoError(err)
	suite.Equal("000001", symbol.Unwrap())
}

func (suite *EngineTestSuite) TestOnProcessDataCallbackWithProgress() {
	var progress []int
	callback := OnProcessDataCallback(func(current int, total int) error {
		progress = append(progress, current)
		return nil
	})

	for i := 1; i <= 5; i++ {
		err := callback(i, 5)
		suite.NoError(err)
	}

	suite.Equal([]int{1, 2, 3, 4, 5}, progress)
}
