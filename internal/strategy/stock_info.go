package strategy

import (
	"os"

	"github.com/JZJJake/AkBack/pkg/errors"
	"gopkg.in/yaml.v3"
)

// StockInfo is the static reference data the sniper selector filters on: total
// shares per symbol and the set of special-treatment (ST) names. It is loaded
// once and shared by pointer; nothing mutates it after construction.
type StockInfo struct {
	shares map[string]float64
	st     map[string]struct{}
}

type stockInfoFile struct {
	Shares map[string]float64 `yaml:"shares"`
	ST     []string           `yaml:"st"`
}

func NewStockInfo(shares map[string]float64, st []string) *StockInfo {
	info := &StockInfo{
		shares: make(map[string]float64, len(shares)),
		st:     make(map[string]struct{}, len(st)),
	}

	for symbol, count := range shares {
		info.shares[symbol] = count
	}

	for _, symbol := range st {
		info.st[symbol] = struct{}{}
	}

	return info
}

// LoadStockInfo reads a YAML file of the form
//
//	shares:
//	  "000001": 19405918198
//	st:
//	  - "600817"
func LoadStockInfo(path string) (*StockInfo, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to read stock info %s", path)
	}

	var file stockInfoFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to parse stock info %s", path)
	}

	return NewStockInfo(file.Shares, file.ST), nil
}

// Shares returns the total share count of symbol, if known.
func (s *StockInfo) Shares(symbol string) (float64, bool) {
	count, ok := s.shares[symbol]

	return count, ok
}

func (s *StockInfo) IsST(symbol string) bool {
	_, ok := s.st[symbol]

	return ok
}

// MarketCap values symbol at price. Unknown symbols have no cap.
func (s *StockInfo) MarketCap(symbol string, price float64) float64 {
	return s.shares[symbol] * price
}
