package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidQuantity, "quantity must be positive")
	suite.Equal(ErrCodeInvalidQuantity, err.Code)
	suite.Equal("quantity must be positive", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeInsufficientSellable, "insufficient sellable quantity: %d < %d", 0, 1000)
	suite.Equal(ErrCodeInsufficientSellable, err.Code)
	suite.Equal("insufficient sellable quantity: 0 < 1000", err.Message)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("file missing")
	err := Wrapf(ErrCodeNoData, cause, "no bars for %s", "000001")
	suite.Equal(ErrCodeNoData, err.Code)
	suite.Equal("no bars for 000001", err.Message)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestErrorString() {
	suite.Equal("[120] bad", New(ErrCodeInvalidQuantity, "bad").Error())

	cause := errors.New("underlying error")
	suite.Equal("[200] data not found: underlying error", Wrap(ErrCodeDataNotFound, "data not found", cause).Error())
}

func (suite *ErrorTestSuite) TestGetCode() {
	suite.Equal(ErrCodeInsufficientCash, GetCode(New(ErrCodeInsufficientCash, "x")))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("standard error")))

	// outermost code wins
	inner := New(ErrCodeDataNotFound, "inner")
	suite.Equal(ErrCodeQueryFailed, GetCode(Wrap(ErrCodeQueryFailed, "outer", inner)))

	// codes survive fmt wrapping
	wrapped := fmt.Errorf("context: %w", New(ErrCodeUnknownSymbol, "x"))
	suite.True(HasCode(wrapped, ErrCodeUnknownSymbol))
}

func (suite *ErrorTestSuite) TestIsAndAs() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.True(Is(err, cause))

	var coded *Error
	suite.True(As(err, &coded))
	suite.Equal(ErrCodeDataNotFound, coded.Code)
}

func (suite *ErrorTestSuite) TestRecoverable() {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, true},
		{"insufficient cash", New(ErrCodeInsufficientCash, "x"), true},
		{"insufficient sellable", New(ErrCodeInsufficientSellable, "x"), true},
		{"unknown symbol", New(ErrCodeUnknownSymbol, "x"), true},
		{"invalid quantity", New(ErrCodeInvalidQuantity, "x"), true},
		{"no data", New(ErrCodeNoData, "x"), true},
		{"query failed", New(ErrCodeQueryFailed, "x"), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, Recoverable(tc.err))
		})
	}
}

func (suite *ErrorTestSuite) TestInsufficientDataError() {
	err := NewInsufficientDataErrorf(30, 12, "000001", "need %d rows, got %d", 30, 12)
	suite.Equal("need 30 rows, got 12", err.Error())
	suite.True(IsInsufficientDataError(fmt.Errorf("wrap: %w", err)))
	suite.False(IsInsufficientDataError(errors.New("other")))
}

func (suite *ErrorTestSuite) TestErrorCodeValues() {
	suite.Equal(ErrorCode(1), ErrCodeUnknown)
	suite.Equal(ErrorCode(120), ErrCodeInvalidQuantity)
	suite.Equal(ErrorCode(204), ErrCodeNoData)
	suite.Equal(ErrorCode(501), ErrCodeUnknownSymbol)
	suite.Equal(ErrorCode(503), ErrCodeInsufficientCash)
	suite.Equal(ErrorCode(504), ErrCodeInsufficientSellable)
}
