package mocks

//go:generate mockgen -destination=./mock_engine.go -package=mocks github.com/JZJJake/AkBack/internal/backtest/engine Strategy,Selector
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/JZJJake/AkBack/internal/backtest/engine/engine_v1/datasource DataSource
