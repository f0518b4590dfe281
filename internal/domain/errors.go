package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a feed connection error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "upgrade", "write")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidDirection is returned when a position side is neither LONG nor SHORT.
	ErrInvalidDirection = errors.New("invalid direction")

	// ErrInvalidShares is returned for a non-positive share count.
	ErrInvalidShares = errors.New("invalid shares")

	// ErrInvalidPrice is returned for a non-positive or below-minimum price.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidLeverage is returned when leverage is outside [1, maxLeverage].
	ErrInvalidLeverage = errors.New("invalid leverage")

	// ErrInsufficientBalance is returned when the required margin exceeds cash.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPositionNotFound is returned for an unknown position id.
	ErrPositionNotFound = errors.New("position not found")

	// ErrInvalidStopLoss is returned when a rounded stop-loss is on the wrong side of entry.
	ErrInvalidStopLoss = errors.New("invalid stop loss")

	// ErrInvalidTakeProfit is returned when a rounded take-profit is on the wrong side of entry.
	ErrInvalidTakeProfit = errors.New("invalid take profit")

	// ErrEngineState is returned when an engine command does not apply to the current state.
	ErrEngineState = errors.New("invalid engine state")

	// ErrInvalidLevel is returned for a player level outside 1-5.
	ErrInvalidLevel = errors.New("invalid player level")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
