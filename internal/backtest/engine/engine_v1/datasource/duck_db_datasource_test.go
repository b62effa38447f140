package datasource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JZJJake/AkBack/internal/logger"
	"github.com/JZJJake/AkBack/internal/types"
	"github.com/JZJJake/AkBack/pkg/errors"
	"github.com/JZJJake/AkBack/pkg/marketdata/writer"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type DuckDBDataSourceTestSuite struct {
	suite.Suite
	dataDir    string
	dataSource DataSource
}

func TestDuckDBDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBDataSourceTestSuite))
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func dailyBar(symbol string, d int, close float64) types.MarketData {
	return types.MarketData{
		Symbol: symbol,
		Time:   day(d),
		Open:   close - 0.05,
		High:   close + 0.1,
		Low:    close - 0.1,
		Close:  close,
		Volume: 1000,
		OutVol: optional.Some(400.0),
		InVol:  optional.Some(600.0),
	}
}

func (suite *DuckDBDataSourceTestSuite) SetupTest() {
	suite.dataDir = suite.T().TempDir()

	// weekdays of the first two weeks of 2024, 000001 skips the 10th
	var flowBars, plainBars []types.MarketData
	for _, d := range []int{2, 3, 4, 5, 8, 9, 11, 12} {
		flowBars = append(flowBars, dailyBar("000001", d, 10+float64(d)/10))
	}

	for _, d := range []int{2, 3, 4, 5, 8, 9, 10, 11, 12} {
		plainBars = append(plainBars, dailyBar("600000", d, 5+float64(d)/10))
	}

	suite.Require().NoError(writer.WriteAll(suite.dataDir, true, flowBars))

	plainDir := filepath.Join(suite.T().TempDir(), "plain")
	suite.Require().NoError(writer.WriteAll(plainDir, false, plainBars))
	suite.Require().NoError(os.Rename(filepath.Join(plainDir, "600000.parquet"), filepath.Join(suite.dataDir, "600000.parquet")))

	ds, err := NewDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(ds.Initialize(suite.dataDir))
	suite.dataSource = ds
}

func (suite *DuckDBDataSourceTestSuite) TearDownTest() {
	suite.dataSource.Close()
}

func (suite *DuckDBDataSourceTestSuite) TestSymbols() {
	symbols, err := suite.dataSource.Symbols()
	suite.Require().NoError(err)
	suite.Equal([]string{"000001", "600000"}, symbols)
}

func (suite *DuckDBDataSourceTestSuite) TestInitializeErrors() {
	ds, err := NewDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	defer ds.Close()

	_, err = ds.Symbols()
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))

	err = ds.Initialize(filepath.Join(suite.dataDir, "missing"))
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))

	err = ds.Initialize(filepath.Join(suite.dataDir, "000001.parquet"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *DuckDBDataSourceTestSuite) TestNewDataSourceUnopenableCatalog() {
	path := filepath.Join(suite.T().TempDir(), "missing", "catalog.duckdb")

	ds, err := NewDataSource(path, logger.NewNopLogger())
	suite.Require().Error(err)
	suite.Nil(ds)
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

func (suite *DuckDBDataSourceTestSuite) TestNewDataSourceFileCatalogReopens() {
	path := filepath.Join(suite.T().TempDir(), "catalog.duckdb")

	ds, err := NewDataSource(path, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(ds.Close())

	ds, err = NewDataSource(path, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.NoError(ds.Close())
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllWithFlow() {
	bars, err := Collect(suite.dataSource, "000001", optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(bars, 8)

	suite.Equal(day(2), bars[0].Time)
	suite.Equal(day(12), bars[7].Time)
	suite.Equal("000001", bars[0].Symbol)
	suite.InDelta(10.2, bars[0].Close, 1e-9)
	suite.True(bars[0].HasFlow())
	suite.Equal(400.0, bars[0].OutVol.Unwrap())

	for i := 1; i < len(bars); i++ {
		suite.True(bars[i-1].Time.Before(bars[i].Time))
	}
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllWithoutFlow() {
	bars, err := Collect(suite.dataSource, "600000", optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Require().Len(bars, 9)
	suite.False(bars[0].HasFlow())
	suite.True(bars[0].OutVol.IsNone())
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllRangeIsInclusive() {
	start := time.Date(2024, 1, 4, 15, 30, 0, 0, time.UTC)
	bars, err := Collect(suite.dataSource, "000001", optional.Some(start), optional.Some(day(9)))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 4)
	suite.Equal(day(4), bars[0].Time)
	suite.Equal(day(9), bars[3].Time)
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllEmptyRange() {
	_, err := Collect(suite.dataSource, "000001", optional.Some(day(20)), optional.Some(day(25)))
	suite.True(errors.HasCode(err, errors.ErrCodeNoData))
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllUnknownSymbol() {
	_, err := Collect(suite.dataSource, "300750", optional.None[time.Time](), optional.None[time.Time]())
	suite.True(errors.HasCode(err, errors.ErrCodeNoData))
}

func (suite *DuckDBDataSourceTestSuite) TestReadAllStopsEarly() {
	count := 0
	for _, err := range suite.dataSource.ReadAll("000001", optional.None[time.Time](), optional.None[time.Time]()) {
		suite.Require().NoError(err)
		count++

		if count == 3 {
			break
		}
	}

	suite.Equal(3, count)
}

func (suite *DuckDBDataSourceTestSuite) TestCount() {
	count, err := suite.dataSource.Count("600000", optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(9, count)

	count, err = suite.dataSource.Count("600000", optional.Some(day(8)), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(5, count)

	_, err = suite.dataSource.Count("300750", optional.None[time.Time](), optional.None[time.Time]())
	suite.True(errors.HasCode(err, errors.ErrCodeNoData))
}
