package loader

import "time"

// linearBackOff waits base*(n+1) after the n-th consecutive failure.
type linearBackOff struct {
	base time.Duration
	n    int
}

func newLinearBackOff(base time.Duration) *linearBackOff {
	return &linearBackOff{base: base}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return b.base * time.Duration(b.n)
}

func (b *linearBackOff) Reset() {
	b.n = 0
}
