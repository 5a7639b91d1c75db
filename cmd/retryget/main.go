// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command retryget sends one HTTP request through the retrying client
// and writes the response body to standard output. Retry, timeout and
// log settings come from the configuration file and HTTPRETRY_
// environment variables; see package config.
//
// Usage:
//
//	retryget [flags] URL
//
// Exit status is 0 on success, 1 if the request failed, and 2 on a
// usage or configuration error.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogama/httpretry/config"
	"github.com/gogama/httpretry/logging"
	"github.com/gogama/httpretry/request"
	"github.com/gogama/httpretry/retry"
)

var version = "dev" // Set during build

type options struct {
	configPath  string
	method      string
	data        string
	headers     []string
	deadline    time.Duration
	retryMethod bool
	verbose     bool
}

// requestError marks a failure of the request itself, as opposed to a
// usage or configuration problem.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "retryget [flags] URL",
		Short: "Send an HTTP request with retries",
		Long: `Send one HTTP request through the retrying client and write the
response body to standard output.

Retry, timeout and log settings are read from the configuration file
and HTTPRETRY_ environment variables.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd.Context(), opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	f.StringVarP(&opts.method, "request", "X", "", "HTTP method (default GET, or POST with --data)")
	f.StringVarP(&opts.data, "data", "d", "", "request body")
	f.StringArrayVarP(&opts.headers, "header", "H", nil, "request header as 'Name: value' (repeatable)")
	f.DurationVar(&opts.deadline, "deadline", 0, "overall deadline including retries, 0 for none")
	f.BoolVar(&opts.retryMethod, "retry-method", false, "allow retrying the method even if it is not idempotent")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	// A nil slice makes cobra fall back to os.Args.
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var re *requestError
	if errors.As(err, &re) {
		return 1
	}
	fmt.Fprintln(stderr, "Error:", err)
	return 2
}

func parseHeaders(headers []string) (http.Header, error) {
	h := http.Header{}
	for _, v := range headers {
		name, value, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("header %q: want Name: value", v)
		}
		h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return h, nil
}

func send(ctx context.Context, opts *options, url string, stdout, stderr io.Writer) error {
	header, err := parseHeaders(opts.headers)
	if err != nil {
		return err
	}
	method := opts.method
	if method == "" {
		method = http.MethodGet
		if opts.data != "" {
			method = http.MethodPost
		}
	}

	var loadOpts []config.LoadOption
	if opts.configPath != "" {
		loadOpts = append(loadOpts, config.WithFile(opts.configPath))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return err
	}

	var extra []retry.Option
	if opts.retryMethod {
		extra = append(extra, retry.WithRetryIf(retry.Methods(method)))
	}
	client, err := cfg.NewClient(&http.Client{}, extra...)
	if err != nil {
		return err
	}
	logging.Install(client.Handlers, logger)

	if opts.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.deadline)
		defer cancel()
	}

	var body interface{}
	if opts.data != "" {
		body = opts.data
	}
	p, err := request.NewPlanWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	for name, values := range header {
		p.Header[name] = append(p.Header[name], values...)
	}

	e, err := client.Do(p)
	if e.Body != nil {
		_, _ = stdout.Write(e.Body)
	}
	if err != nil {
		logger.Error().Err(err).Str("id", e.ID).Msg("request failed")
		return &requestError{err}
	}
	return nil
}
