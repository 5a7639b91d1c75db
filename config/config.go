// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads client configuration from defaults, an optional
// YAML file and environment variables, in increasing order of
// priority.
//
// Environment variables are named after the configuration keys, upper
// cased and prefixed, with the section and key joined by an
// underscore. For example retry.max_interval is read from
// HTTPRETRY_RETRY_MAX_INTERVAL. List values are comma separated.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gogama/httpretry"
	"github.com/gogama/httpretry/retry"
	"github.com/gogama/httpretry/timeout"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// DefaultEnvPrefix prefixes the environment variables read by Load.
const DefaultEnvPrefix = "HTTPRETRY_"

// Config is the complete client configuration.
type Config struct {
	Retry   retry.Config  `koanf:"retry"`
	Timeout TimeoutConfig `koanf:"timeout"`
	Client  ClientConfig  `koanf:"client"`
	Log     LogConfig     `koanf:"log"`
}

// TimeoutConfig configures the per-attempt timeout. See
// timeout.Adaptive.
type TimeoutConfig struct {
	Attempt      time.Duration   `koanf:"attempt"`
	AfterTimeout []time.Duration `koanf:"after_timeout"`
}

// ClientConfig configures the HTTP side of the client.
type ClientConfig struct {
	// FailStatus lists response codes treated as failed attempts.
	FailStatus []int `koanf:"fail_status"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

type loader struct {
	files     []string
	envPrefix string
}

// A LoadOption customizes Load.
type LoadOption func(*loader)

// WithFile layers the YAML file at path over the defaults. Files are
// applied in the order given. A file that cannot be read is an error.
func WithFile(path string) LoadOption {
	return func(l *loader) {
		l.files = append(l.files, path)
	}
}

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) LoadOption {
	return func(l *loader) {
		l.envPrefix = prefix
	}
}

// Load builds a Config from defaults, the files given with WithFile,
// and environment variables, then validates it.
func Load(opts ...LoadOption) (*Config, error) {
	l := loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&l)
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	for _, path := range l.files {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	prefix := l.envPrefix
	if err := k.Load(envprovider.Provider(prefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, prefix))
		return strings.Replace(s, "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"retry.max":            retry.DefaultMax,
		"retry.interval":       "0s",
		"retry.max_interval":   "0s",
		"retry.backoff_factor": retry.DefaultBackoffFactor,

		"timeout.attempt": "5s",

		"log.level":  "info",
		"log.pretty": false,
	}
}

// Validate reports the first problem found in c.
func (c *Config) Validate() error {
	if _, err := c.Retry.Policy(); err != nil {
		return err
	}
	if _, err := c.Timeout.Policy(); err != nil {
		return err
	}
	for _, code := range c.Client.FailStatus {
		if code < 100 || code > 999 {
			return fmt.Errorf("client.fail_status: invalid status code %d", code)
		}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Policy returns the timeout policy described by c.
func (c TimeoutConfig) Policy() (timeout.Policy, error) {
	if c.Attempt <= 0 {
		return nil, errors.New("timeout.attempt must be positive")
	}
	for _, d := range c.AfterTimeout {
		if d <= 0 {
			return nil, errors.New("timeout.after_timeout values must be positive")
		}
	}
	return timeout.Adaptive(c.Attempt, c.AfterTimeout...), nil
}

// NewClient returns a client configured by c which sends requests
// with doer. Extra retry options, such as a retry predicate, are
// applied after the configured ones.
func (c *Config) NewClient(doer httpretry.HTTPDoer, extra ...retry.Option) (*httpretry.Client, error) {
	rp, err := c.Retry.Policy(extra...)
	if err != nil {
		return nil, err
	}
	tp, err := c.Timeout.Policy()
	if err != nil {
		return nil, err
	}
	return &httpretry.Client{
		HTTPDoer:      doer,
		RetryPolicy:   rp,
		TimeoutPolicy: tp,
		Handlers:      &httpretry.HandlerGroup{},
		FailStatus:    append([]int(nil), c.Client.FailStatus...),
	}, nil
}
