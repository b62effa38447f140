package strategy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/mocks"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type PrecomputeTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
}

func TestPrecomputeSuite(t *testing.T) {
	suite.Run(t, new(PrecomputeTestSuite))
}

func (suite *PrecomputeTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
}

func (suite *PrecomputeTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *PrecomputeTestSuite) TestRecordsEveryDate() {
	dates := types.CalendarDays(date(2024, 1, 1), date(2024, 1, 3))

	selector := mocks.NewMockSelector(suite.ctrl)
	gomock.InOrder(
		selector.EXPECT().Select(dates[0]).Return(optional.Some("000001"), nil),
		selector.EXPECT().Select(dates[1]).Return(optional.None[string](), nil),
		selector.EXPECT().Select(dates[2]).Return(optional.Some("600000"), nil),
	)

	var progress []int

	lookup, err := Precompute(context.Background(), selector, dates, 7, func(current, total int) {
		suite.Equal(3, total)
		progress = append(progress, current)
	})
	suite.Require().NoError(err)

	suite.Equal([]int{1, 2, 3}, progress)
	suite.Equal(LookupSelectorName, lookup.Name())
	suite.Equal([]Signal{
		{Date: "2024-01-01", Symbol: "000001"},
		{Date: "2024-01-02", Symbol: ""},
		{Date: "2024-01-03", Symbol: "600000"},
	}, lookup.Signals())

	// a recorded cash day is not overridden by the lookback
	symbol, err := lookup.Select(dates[1])
	suite.Require().NoError(err)
	suite.True(symbol.IsNone())

	symbol, err = lookup.Select(date(2024, 1, 6))
	suite.Require().NoError(err)
	suite.Equal(optional.Some("600000"), symbol)
}

func (suite *PrecomputeTestSuite) TestSelectorError() {
	dates := types.CalendarDays(date(2024, 1, 1), date(2024, 1, 3))

	selector := mocks.NewMockSelector(suite.ctrl)
	gomock.InOrder(
		selector.EXPECT().Select(dates[0]).Return(optional.Some("000001"), nil),
		selector.EXPECT().Select(dates[1]).Return(optional.None[string](), fmt.Errorf("boom")),
	)

	_, err := Precompute(context.Background(), selector, dates, 0, nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSelectorFailed))
	suite.Contains(err.Error(), "2024-01-02")
}

func (suite *PrecomputeTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Precompute(ctx, mocks.NewMockSelector(suite.ctrl), []time.Time{date(2024, 1, 1)}, 0, nil)
	suite.ErrorIs(err, context.Canceled)
}

func (suite *PrecomputeTestSuite) TestKeepsSelectorName() {
	selector := newTestSniper(nil, sniperSeries("000001", 10, 6))

	lookup, err := Precompute(context.Background(), selector, []time.Time{decisionDate()}, 0, nil)
	suite.Require().NoError(err)
	suite.Equal(SniperSelectorName, lookup.Name())

	symbol, err := lookup.Select(decisionDate())
	suite.Require().NoError(err)
	suite.Equal(optional.Some("000001"), symbol)
}

// Precomputed decisions match what the selector answers on the fly.
func (suite *PrecomputeTestSuite) TestMatchesOnTheFly() {
	selector := newTestSniper(nil, sniperSeries("000001", 10, 6))
	dates := types.CalendarDays(lastBarDate().AddDate(0, 0, -3), decisionDate().AddDate(0, 0, 3))

	lookup, err := Precompute(context.Background(), selector, dates, 0, nil)
	suite.Require().NoError(err)

	for _, d := range dates {
		expected, err := selector.Select(d)
		suite.Require().NoError(err)

		actual, err := lookup.Select(d)
		suite.Require().NoError(err)
		suite.Equal(expected, actual, d.Format(time.DateOnly))
	}
}
