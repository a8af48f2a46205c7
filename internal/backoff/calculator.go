package backoff

import (
	"time"
)

// Calculator provides backoff calculation using configurable strategies.
// This centralizes backoff logic shared by the fetch retry loop and tests.
type Calculator struct {
	strategy Strategy
}

// NewCalculator creates a new backoff calculator with the specified strategy.
func NewCalculator(strategy Strategy) *Calculator {
	return &Calculator{
		strategy: strategy,
	}
}

// Calculate computes the backoff duration for the given attempt and parameters.
// It delegates to the configured strategy for the actual calculation.
func (c *Calculator) Calculate(attempt int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) time.Duration {
	return c.strategy.Calculate(attempt, initialBackoff, maxBackoff, multiplier, jitter)
}

// GetLinearJitterCalculator returns a calculator configured with the linear
// jitter strategy, the default retry policy.
func GetLinearJitterCalculator() *Calculator {
	return NewCalculator(LinearJitterStrategy{})
}

// GetExponentialJitterCalculator returns a calculator configured with the
// exponential jitter strategy.
func GetExponentialJitterCalculator() *Calculator {
	return NewCalculator(ExponentialJitterStrategy{})
}
