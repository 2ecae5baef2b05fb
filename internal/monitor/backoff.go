package monitor

import "time"

const (
	DefaultRetryBase = 10 * time.Second
	DefaultRetryMax  = 30 * time.Second
)

// Backoff is a capped exponential retry policy.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{Base: DefaultRetryBase, Max: DefaultRetryMax}
}

// Delay returns min(Base * 2^(failures-1), Max). Zero failures count as one.
func (b Backoff) Delay(failures uint) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := b.Base
	for i := uint(1); i < failures; i++ {
		if d >= b.Max || d > b.Max/2 {
			return b.Max
		}
		d *= 2
	}
	if d > b.Max {
		return b.Max
	}
	return d
}
