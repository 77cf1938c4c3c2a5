package fanout

import "igosint/pkg/config"

// AdaptiveCap shrinks the worker cap as a batch grows, to stay under the
// remote rate limit on large batches
type AdaptiveCap struct {
	Base     int
	Medium   int
	Large    int
	MediumAt int
	LargeAt  int
}

// DefaultAdaptiveCap uses 4 workers, 2 from 100 items and 1 from 200
var DefaultAdaptiveCap = AdaptiveCap{Base: 4, Medium: 2, Large: 1, MediumAt: 100, LargeAt: 200}

// AdaptiveCapFrom converts the configured thresholds
func AdaptiveCapFrom(c config.AdaptiveCapConfig) AdaptiveCap {
	return AdaptiveCap{
		Base:     c.Base,
		Medium:   c.Medium,
		Large:    c.Large,
		MediumAt: c.MediumAt,
		LargeAt:  c.LargeAt,
	}
}

// For returns the worker cap for a batch of n items
func (a AdaptiveCap) For(n int) int {
	var w int
	switch {
	case a.LargeAt > 0 && n >= a.LargeAt:
		w = a.Large
	case a.MediumAt > 0 && n >= a.MediumAt:
		w = a.Medium
	default:
		w = a.Base
	}
	if w < 1 {
		w = 1
	}
	return w
}
