// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// A Rand is a source of uniformly distributed random numbers in [0, 1).
// *rand.Rand satisfies Rand but is not safe for concurrent use; wrap it
// with NewLockedRand when the policy is shared.
type Rand interface {
	Float64() float64
}

var defaultRand = NewLockedRand(rand.NewSource(time.Now().UnixNano()))

// NewLockedRand returns a Rand drawing from src under a mutex, making
// it safe for concurrent use.
func NewLockedRand(src rand.Source) Rand {
	if src == nil {
		panic("httpretry/retry: nil rand source")
	}
	return &lockedRand{r: rand.New(src)}
}

type lockedRand struct {
	lock sync.Mutex
	r    *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.r.Float64()
}

const maxDuration = time.Duration(math.MaxInt64)

// Amount returns how long to wait before the next retry, given the
// number of retries remaining before that retry is taken.
//
// With n = Max() - remaining prior retries, the base wait is
//
//	Interval() * BackoffFactor()**n
//
// so the first retry waits Interval(), the second Interval()*factor,
// and so on. With randomness r the base wait b is raised by b*r*u, u
// drawn uniformly from [0, 1). The result is capped at MaxInterval()
// when that is set, and saturates instead of overflowing.
func (p *Policy) Amount(remaining int) time.Duration {
	if p.interval <= 0 {
		return 0
	}
	n := p.max - remaining
	if n < 0 {
		n = 0
	}

	d := float64(p.interval) * math.Pow(p.backoffFactor, float64(n))
	if p.intervalRandomness > 0 {
		d += d * p.intervalRandomness * p.rand.Float64()
	}
	if p.maxInterval > 0 && d > float64(p.maxInterval) {
		d = float64(p.maxInterval)
	}
	if d >= float64(maxDuration) || math.IsInf(d, 1) {
		return maxDuration
	}

	return time.Duration(d)
}
