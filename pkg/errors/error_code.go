package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidQuantity      ErrorCode = 120
	ErrCodeInvalidPrice         ErrorCode = 121
	ErrCodeInvalidFraction      ErrorCode = 122

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNoData                ErrorCode = 204

	// Strategy errors (400-499)
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402
	ErrCodeSelectorFailed       ErrorCode = 405

	// Trading errors (500-599)
	ErrCodeOrderFailed          ErrorCode = 500
	ErrCodeUnknownSymbol        ErrorCode = 501
	ErrCodeInsufficientCash     ErrorCode = 503
	ErrCodeInsufficientSellable ErrorCode = 504
	ErrCodeLimitNotReached      ErrorCode = 505

	// Backtest errors (600-699)
	ErrCodeBacktestInitFailed   ErrorCode = 601
	ErrCodeBacktestConfigError  ErrorCode = 602
	ErrCodeBacktestNoDatasource ErrorCode = 608
	ErrCodeBacktestNoStrategy   ErrorCode = 609
	ErrCodeBacktestNoSelector   ErrorCode = 610
	ErrCodeBacktestWriteFailed  ErrorCode = 611
)
