// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"config", "request", "data", "header", "deadline", "retry-method", "verbose"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "X", cmd.Flags().Lookup("request").Shorthand)
	assert.Equal(t, "H", cmd.Flags().Lookup("header").Shorthand)
}

func TestParseHeaders(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		h, err := parseHeaders([]string{"X-A: b", "X-A:c", "Accept: text/plain"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, h.Values("X-A"))
		assert.Equal(t, "text/plain", h.Get("Accept"))
	})
	t.Run("bad header", func(t *testing.T) {
		_, err := parseHeaders([]string{"nocolon"})
		assert.EqualError(t, err, `header "nocolon": want Name: value`)
	})
}

func TestRun(t *testing.T) {
	var n int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			w.WriteHeader(503)
			return
		}
		b, _ := io.ReadAll(r.Body)
		_, _ = w.Write([]byte(r.Method + " " + r.Header.Get("X-Test") + " " + string(b)))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
retry:
  retry_statuses: [503]
client:
  fail_status: [503]
`), 0o600))

	t.Run("retried", func(t *testing.T) {
		atomic.StoreInt32(&n, 0)
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), []string{"--config", path, "-X", "PUT", "-d", "hello", "-H", "X-Test: yes", "--retry-method", "-v", server.URL}, &stdout, &stderr)
		assert.Equal(t, 0, code)
		assert.Equal(t, "PUT yes hello", stdout.String())
		assert.Contains(t, stderr.String(), "attempt failed")
		assert.Equal(t, int32(2), atomic.LoadInt32(&n))
	})
	t.Run("refused", func(t *testing.T) {
		atomic.StoreInt32(&n, 0)
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), []string{"--config", path, "-d", "hello", server.URL}, &stdout, &stderr)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "request failed")
		assert.Equal(t, int32(1), atomic.LoadInt32(&n))
	})
	t.Run("no URL", func(t *testing.T) {
		var stderr bytes.Buffer
		code := run(context.Background(), nil, io.Discard, &stderr)
		assert.Equal(t, 2, code)
		assert.Contains(t, stderr.String(), "accepts 1 arg(s)")
	})
	t.Run("bad header", func(t *testing.T) {
		var stderr bytes.Buffer
		code := run(context.Background(), []string{"-H", "nocolon", server.URL}, io.Discard, &stderr)
		assert.Equal(t, 2, code)
		assert.Contains(t, stderr.String(), "want Name: value")
	})
	t.Run("bad config", func(t *testing.T) {
		var stderr bytes.Buffer
		code := run(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), server.URL}, io.Discard, &stderr)
		assert.Equal(t, 2, code)
	})
}
