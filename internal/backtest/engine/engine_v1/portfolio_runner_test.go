package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/JZJJake/AkBack/internal/backtest/engine"
	"github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1/datasource"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/mocks"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type PortfolioRunnerTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	selector *mocks.MockSelector
}

func TestPortfolioRunnerSuite(t *testing.T) {
	suite.Run(t, new(PortfolioRunnerTestSuite))
}

func (suite *PortfolioRunnerTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.selector = mocks.NewMockSelector(suite.ctrl)
}

func (suite *PortfolioRunnerTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *PortfolioRunnerTestSuite) runner(bars ...types.MarketData) *PortfolioRunner {
	series := datasource.NewSeriesCache(datasource.NewInMemoryDataSource(bars))

	return NewPortfolioRunner(DefaultAccountConfig(100000), series, suite.selector, nil)
}

func pick(symbol string) optional.Option[string] {
	return optional.Some(symbol)
}

func (suite *PortfolioRunnerTestSuite) TestBuyWithAllCash() {
	r := suite.runner(testBar("A", 2, 10, 10.5))
	suite.selector.EXPECT().Select(day(2)).Return(pick("A"), nil)

	suite.Require().NoError(r.Step(day(2), engine.LifecycleCallbacks{}))

	result := r.Result()
	suite.Require().Len(result.Trades, 1)
	suite.Equal(int64(9900), result.Trades[0].Quantity)
	suite.Equal(day(2), result.Trades[0].Date)
	suite.Equal("A", r.Holding().Unwrap())

	suite.Require().Len(result.Curve, 1)
	snap := result.Curve[0]
	suite.Equal("A", snap.Symbol)
	suite.Equal(int64(9900), snap.Quantity)
	suite.Equal("103950", snap.PositionValue.String())
	suite.Equal(snap.Cash.Add(snap.PositionValue).String(), snap.TotalAssets.String())
}

func (suite *PortfolioRunnerTestSuite) TestTargetWithoutBarIsSkipped() {
	r := suite.runner(testBar("A", 2, 10, 10))
	suite.selector.EXPECT().Select(day(2)).Return(pick("X"), nil)

	suite.Require().NoError(r.Step(day(2), engine.LifecycleCallbacks{}))

	result := r.Result()
	suite.Empty(result.Trades)
	suite.True(r.Holding().IsNone())
	suite.Require().Len(result.Curve, 1)
	suite.Equal("100000", result.Curve[0].Cash.String())
	suite.Equal("100000", result.Curve[0].TotalAssets.String())
	suite.Empty(result.Curve[0].Symbol)
}

func (suite *PortfolioRunnerTestSuite) TestRotationBlockedBeforeSettlement() {
	r := suite.runner(
		testBar("A", 2, 10, 10),
		testBar("A", 3, 10, 10),
		testBar("B", 3, 20, 20),
	)
	suite.selector.EXPECT().Select(day(2)).Return(pick("A"), nil)
	suite.Require().NoError(r.Step(day(2), engine.LifecycleCallbacks{}))
	suite.Require().Len(r.Result().Trades, 1)

	cash := r.Account().Cash()

	suite.Require().NoError(r.rotate(day(3), pick("B"), engine.LifecycleCallbacks{}))

	suite.Equal("A", r.Holding().Unwrap())
	suite.Len(r.Result().Trades, 1)
	suite.True(cash.Equal(r.Account().Cash()))
	suite.True(r.Account().Position("B").IsNone())
}

func (suite *PortfolioRunnerTestSuite) TestRotateNextDay() {
	r := suite.runner(
		testBar("A", 2, 10, 10),
		testBar("A", 3, 11, 11),
		testBar("B", 3, 20, 20),
	)
	gomock.InOrder(
		suite.selector.EXPECT().Select(day(2)).Return(pick("A"), nil),
		suite.selector.EXPECT().Select(day(3)).Return(pick("B"), nil),
	)

	result, err := r.Run(context.Background(), day(2), day(3), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 3)
	suite.Equal(types.PurchaseTypeBuy, result.Trades[0].Side)
	suite.Equal("A", result.Trades[1].Symbol)
	suite.Equal(types.PurchaseTypeSell, result.Trades[1].Side)
	suite.Equal(day(3), result.Trades[1].Date)
	suite.Equal("B", result.Trades[2].Symbol)
	suite.Equal(types.PurchaseTypeBuy, result.Trades[2].Side)
	suite.Equal("B", r.Holding().Unwrap())

	suite.Require().Len(result.Curve, 2)
	suite.Equal("B", result.Curve[1].Symbol)
}

func (suite *PortfolioRunnerTestSuite) TestSameTargetKeepsHolding() {
	r := suite.runner(
		testBar("A", 2, 10, 10),
		testBar("A", 3, 11, 11),
	)
	suite.selector.EXPECT().Select(gomock.Any()).Return(pick("A"), nil).Times(2)

	result, err := r.Run(context.Background(), day(2), day(3), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Len(result.Trades, 1)
	suite.Equal("A", r.Holding().Unwrap())
}

func (suite *PortfolioRunnerTestSuite) TestEmptySelectionLiquidates() {
	r := suite.runner(
		testBar("A", 2, 10, 10),
		testBar("A", 3, 11, 11),
	)
	gomock.InOrder(
		suite.selector.EXPECT().Select(day(2)).Return(pick("A"), nil),
		suite.selector.EXPECT().Select(day(3)).Return(optional.None[string](), nil),
	)

	result, err := r.Run(context.Background(), day(2), day(3), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 2)
	suite.Equal(types.PurchaseTypeSell, result.Trades[1].Side)
	suite.True(r.Holding().IsNone())
	suite.Empty(r.Account().Positions())
	suite.Equal(result.Curve[1].Cash.String(), result.Curve[1].TotalAssets.String())
}

func (suite *PortfolioRunnerTestSuite) TestHolidayCarriesForward() {
	// A does not trade on the 3rd
	r := suite.runner(
		testBar("A", 2, 10, 10),
		testBar("A", 4, 12, 12),
	)
	gomock.InOrder(
		suite.selector.EXPECT().Select(day(2)).Return(pick("A"), nil),
		suite.selector.EXPECT().Select(day(4)).Return(pick("A"), nil),
	)

	result, err := r.Run(context.Background(), day(2), day(4), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Require().Len(result.Curve, 3)
	suite.Equal(day(3), result.Curve[1].Date)
	suite.True(result.Curve[1].CarriedForward)
	suite.True(result.Curve[0].TotalAssets.Equal(result.Curve[1].TotalAssets))
	suite.False(result.Curve[2].CarriedForward)
	suite.Equal("A", result.Curve[2].Symbol)
}

func (suite *PortfolioRunnerTestSuite) TestSelectorErrorKeepsHolding() {
	r := suite.runner(
		testBar("A", 2, 10, 10),
		testBar("A", 3, 11, 11),
	)
	gomock.InOrder(
		suite.selector.EXPECT().Select(day(2)).Return(pick("A"), nil),
		suite.selector.EXPECT().Select(day(3)).Return(optional.None[string](), fmt.Errorf("signal file missing")),
	)

	result, err := r.Run(context.Background(), day(2), day(3), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Len(result.Trades, 1)
	suite.Equal("A", r.Holding().Unwrap())
	suite.Len(result.Curve, 2)
}

func (suite *PortfolioRunnerTestSuite) TestOneSnapshotPerDay() {
	r := suite.runner(testBar("A", 2, 10, 10), testBar("A", 5, 10, 10))
	suite.selector.EXPECT().Select(gomock.Any()).Return(optional.None[string](), nil).Times(5)

	result, err := r.Run(context.Background(), day(1), day(5), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Require().Len(result.Curve, 5)
	for i, snap := range result.Curve {
		suite.Equal(day(i+1), snap.Date)
		suite.Equal("100000", snap.TotalAssets.String())
	}
}

func (suite *PortfolioRunnerTestSuite) TestInvalidPeriod() {
	r := suite.runner(testBar("A", 2, 10, 10))

	_, err := r.Run(context.Background(), day(5), day(2), engine.LifecycleCallbacks{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *PortfolioRunnerTestSuite) TestNoSymbols() {
	r := suite.runner()

	_, err := r.Run(context.Background(), day(2), day(3), engine.LifecycleCallbacks{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoData))
}

func (suite *PortfolioRunnerTestSuite) TestNoBarsInRange() {
	r := suite.runner(testBar("A", 20, 10, 10), testBar("B", 22, 20, 20))

	result, err := r.Run(context.Background(), day(2), day(5), engine.LifecycleCallbacks{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoData))
	suite.True(result.IsEmpty())
	suite.Empty(result.Trades)
}

func (suite *PortfolioRunnerTestSuite) TestOneSymbolInRangeIsEnough() {
	r := suite.runner(testBar("A", 20, 10, 10), testBar("B", 5, 20, 20))
	suite.selector.EXPECT().Select(gomock.Any()).Return(optional.None[string](), nil).AnyTimes()

	result, err := r.Run(context.Background(), day(2), day(5), engine.LifecycleCallbacks{})
	suite.Require().NoError(err)
	suite.Len(result.Curve, 4)
}

func (suite *PortfolioRunnerTestSuite) TestCancelledContext() {
	r := suite.runner(testBar("A", 2, 10, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.Run(ctx, day(2), day(3), engine.LifecycleCallbacks{})
	suite.ErrorIs(err, context.Canceled)
	suite.True(result.IsEmpty())
}

func (suite *PortfolioRunnerTestSuite) TestFillCallbackError() {
	r := suite.runner(testBar("A", 2, 10, 10), testBar("A", 3, 10, 10))
	suite.selector.EXPECT().Select(day(2)).Return(pick("A"), nil)

	onFill := engine.OnFillCallback(func(fill types.Fill) error {
		return fmt.Errorf("sink closed")
	})

	_, err := r.Run(context.Background(), day(2), day(3), engine.LifecycleCallbacks{OnFill: &onFill})
	suite.EqualError(err, "sink closed")
}

func (suite *PortfolioRunnerTestSuite) TestSelectorSeesNormalizedDates() {
	r := suite.runner(testBar("A", 2, 10, 10))

	var seen []time.Time
	suite.selector.EXPECT().Select(gomock.Any()).DoAndReturn(func(date time.Time) (optional.Option[string], error) {
		seen = append(seen, date)

		return optional.None[string](), nil
	})

	suite.Require().NoError(r.Step(day(2).Add(15*time.Hour), engine.LifecycleCallbacks{}))
	suite.Equal([]time.Time{day(2)}, seen)
}
