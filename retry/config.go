// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// A Config is the plain-data form of a Policy, suitable for decoding
// from YAML or environment variables. Zero values mean "use the
// default", except for Max, which is a pointer because zero retries is
// a legitimate setting.
//
// A retry predicate and a jitter source cannot be expressed as data;
// pass them to Policy as extra options.
type Config struct {
	Max                *int          `koanf:"max"`
	Interval           time.Duration `koanf:"interval"`
	MaxInterval        time.Duration `koanf:"max_interval"`
	BackoffFactor      float64       `koanf:"backoff_factor"`
	IntervalRandomness float64       `koanf:"interval_randomness"`
	// Exceptions names the retryable error kinds. See KindNames.
	Exceptions []string `koanf:"exceptions"`
	// RetryStatuses adds a Status kind for these response codes.
	RetryStatuses     []int    `koanf:"retry_statuses"`
	IdempotentMethods []string `koanf:"idempotent_methods"`
}

var namedKinds = map[string]Kind{
	"timeout":      Timeout,
	"conn_reset":   ConnReset,
	"conn_refused": ConnRefused,
	"transient":    Transient,
	"any":          AnyError,
}

// KindNames returns the names accepted in Config.Exceptions, sorted.
func KindNames() []string {
	names := make([]string, 0, len(namedKinds))
	for name := range namedKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options converts c into policy options.
func (c Config) Options() ([]Option, error) {
	var opts []Option
	if c.Max != nil {
		opts = append(opts, WithMax(*c.Max))
	}
	if c.Interval != 0 {
		opts = append(opts, WithInterval(c.Interval))
	}
	if c.MaxInterval != 0 {
		opts = append(opts, WithMaxInterval(c.MaxInterval))
	}
	if c.BackoffFactor != 0 {
		opts = append(opts, WithBackoffFactor(c.BackoffFactor))
	}
	if c.IntervalRandomness != 0 {
		opts = append(opts, WithIntervalRandomness(c.IntervalRandomness))
	}
	if len(c.Exceptions) > 0 || len(c.RetryStatuses) > 0 {
		kinds := make([]Kind, 0, len(c.Exceptions)+1)
		for _, name := range c.Exceptions {
			k, ok := namedKinds[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				return nil, fmt.Errorf("httpretry/retry: unknown exception kind %q (want one of %s)",
					name, strings.Join(KindNames(), ", "))
			}
			kinds = append(kinds, k)
		}
		if len(c.Exceptions) == 0 {
			kinds = append(kinds, DefaultExceptions...)
		}
		if len(c.RetryStatuses) > 0 {
			kinds = append(kinds, Status(c.RetryStatuses...))
		}
		opts = append(opts, WithExceptions(kinds...))
	}
	if len(c.IdempotentMethods) > 0 {
		opts = append(opts, WithIdempotentMethods(c.IdempotentMethods...))
	}
	return opts, nil
}

// Policy validates c and builds a Policy from it, applying extra after
// the options derived from c. Unlike New, Policy reports an invalid
// configuration as an error instead of panicking.
func (c Config) Policy(extra ...Option) (*Policy, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	p := build(append(opts, extra...))
	if err = p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}
