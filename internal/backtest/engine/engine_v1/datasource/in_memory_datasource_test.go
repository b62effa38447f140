package datasource

import (
	"testing"
	"time"

	"github.com/JZJJake/AkBack/internal/logger"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/marketdata/writer"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type InMemoryDataSourceTestSuite struct {
	suite.Suite
	dataSource *InMemoryDataSource
}

func TestInMemoryDataSourceSuite(t *testing.T) {
	suite.Run(t, new(InMemoryDataSourceTestSuite))
}

func (suite *InMemoryDataSourceTestSuite) SetupTest() {
	// deliberately out of order, with an intraday timestamp
	suite.dataSource = NewInMemoryDataSource([]types.MarketData{
		dailyBar("000001", 5, 10.5),
		dailyBar("000001", 2, 10.2),
		dailyBar("600000", 3, 5.3),
		{Symbol: "000001", Time: time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC), Close: 10.3},
	})
}

func (suite *InMemoryDataSourceTestSuite) TestSymbols() {
	symbols, err := suite.dataSource.Symbols()
	suite.NoError(err)
	suite.Equal([]string{"000001", "600000"}, symbols)
}

func (suite *InMemoryDataSourceTestSuite) TestReadAllSortsAndNormalizes() {
	bars, err := Collect(suite.dataSource, "000001", optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(bars, 3)
	suite.Equal(day(2), bars[0].Time)
	suite.Equal(day(3), bars[1].Time)
	suite.Equal(day(5), bars[2].Time)
}

func (suite *InMemoryDataSourceTestSuite) TestCount() {
	count, err := suite.dataSource.Count("000001", optional.Some(day(3)), optional.Some(day(4)))
	suite.NoError(err)
	suite.Equal(1, count)

	count, err = suite.dataSource.Count("300750", optional.None[time.Time](), optional.None[time.Time]())
	suite.NoError(err)
	suite.Equal(0, count)
}

func (suite *InMemoryDataSourceTestSuite) TestPreloadFromDuckDB() {
	dir := suite.T().TempDir()
	suite.Require().NoError(writer.WriteAll(dir, true, []types.MarketData{
		dailyBar("000001", 2, 10.2),
		dailyBar("000001", 3, 10.3),
		dailyBar("600000", 2, 5.2),
	}))

	duck, err := NewDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	defer duck.Close()
	suite.Require().NoError(duck.Initialize(dir))

	memory, err := Preload(duck, nil, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)

	symbols, err := memory.Symbols()
	suite.NoError(err)
	suite.Equal([]string{"000001", "600000"}, symbols)

	count, err := memory.Count("000001", optional.None[time.Time](), optional.None[time.Time]())
	suite.NoError(err)
	suite.Equal(2, count)

	only, err := Preload(duck, []string{"600000"}, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	symbols, _ = only.Symbols()
	suite.Equal([]string{"600000"}, symbols)
}
