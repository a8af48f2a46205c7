package backoff

import (
	"math/rand"
	"time"
)

// Strategy defines the interface for backoff calculation algorithms.
// This allows for extensible backoff strategies while maintaining consistent behavior.
type Strategy interface {
	// Calculate returns the backoff duration for the given attempt number and parameters.
	Calculate(attempt int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) time.Duration
}

// LinearJitterStrategy implements linear backoff (initialBackoff * attempt)
// with uniform jitter. This is the default policy for weather fetches, whose
// upstreams recover quickly and whose retry budgets are small.
type LinearJitterStrategy struct{}

// Calculate implements the Strategy interface for linear backoff with jitter.
// The multiplier parameter is unused by this strategy.
func (s LinearJitterStrategy) Calculate(attempt int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	backoff := initialBackoff * time.Duration(attempt)
	if backoff < 0 || backoff > maxBackoff {
		backoff = maxBackoff
	}

	return applyJitter(backoff, maxBackoff, jitter)
}

// ExponentialJitterStrategy implements exponential backoff with uniform jitter.
type ExponentialJitterStrategy struct{}

// Calculate implements the Strategy interface for exponential backoff with jitter.
func (s ExponentialJitterStrategy) Calculate(attempt int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	// Prevent overflow by limiting attempt
	if attempt > 30 {
		attempt = 30
	}

	backoff := time.Duration(float64(initialBackoff) * pow(multiplier, attempt))
	if backoff < 0 || backoff > maxBackoff {
		backoff = maxBackoff
	}

	return applyJitter(backoff, maxBackoff, jitter)
}

func applyJitter(backoff, maxBackoff time.Duration, jitter float64) time.Duration {
	jitter = clampJitter(jitter)
	if jitter <= 0 {
		return backoff
	}

	jitterAmount := time.Duration(float64(backoff) * jitter * rand.Float64())
	if backoff+jitterAmount > maxBackoff {
		return maxBackoff
	}
	return backoff + jitterAmount
}

// clampJitter ensures jitter is within valid bounds [0, 1].
func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

// pow calculates base^exponent using integer exponentiation.
func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
