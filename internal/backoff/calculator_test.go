package backoff

import (
	"testing"
	"time"
)

func TestCalculatorDelegates(t *testing.T) {
	c := NewCalculator(LinearJitterStrategy{})

	got := c.Calculate(2, 100*time.Millisecond, time.Minute, 0, 0)
	if got != 200*time.Millisecond {
		t.Errorf("Expected 200ms, got %v", got)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	linear := GetLinearJitterCalculator()
	if _, ok := linear.strategy.(LinearJitterStrategy); !ok {
		t.Errorf("Expected LinearJitterStrategy, got %T", linear.strategy)
	}

	exp := GetExponentialJitterCalculator()
	if _, ok := exp.strategy.(ExponentialJitterStrategy); !ok {
		t.Errorf("Expected ExponentialJitterStrategy, got %T", exp.strategy)
	}
}
