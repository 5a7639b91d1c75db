// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpretry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gogama/httpretry/request"
	"github.com/gogama/httpretry/retry"
	"github.com/gogama/httpretry/timeout"
	"github.com/gogama/httpretry/transient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	t.Run("zero value", testClientZeroValue)
	t.Run("servers", testClientServers)
	t.Run("attempt timeout", testClientAttemptTimeout)
	t.Run("adaptive timeout", testClientAdaptiveTimeout)
	t.Run("fail status", testClientFailStatus)
	t.Run("post resent", testClientPostResent)
	t.Run("connection refused", testClientConnRefused)
	t.Run("plan cancel", testClientPlanCancel)
	t.Run("close idle connections", testClientCloseIdleConnections)
}

func testClientZeroValue(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		inst serverInstruction
	}{
		{"status 200", serverInstruction{StatusCode: 200}},
		{"status 404", serverInstruction{StatusCode: 404, Body: []bodyChunk{{Data: []byte("the thingy was not in the place")}}}},
		{"status 503", serverInstruction{StatusCode: 503, Body: []bodyChunk{{Data: []byte("ain't no service in these parts")}}}},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cl := &Client{}
			p := testCase.inst.toPlan(context.Background(), "POST", httpServer)

			e, err := cl.Do(p)

			require.NotNil(t, e)
			assert.NoError(t, err)
			assert.NotNil(t, e.Request)
			assert.Equal(t, testCase.inst.StatusCode, e.StatusCode())
			var expected []byte
			for _, chunk := range testCase.inst.Body {
				expected = append(expected, chunk.Data...)
			}
			assert.Equal(t, len(expected), len(e.Body))
			assert.Equal(t, 0, e.Attempt)
			assert.Equal(t, request.Succeeded, e.Verdict)
		})
	}
}

func testClientServers(t *testing.T) {
	t.Parallel()

	for _, server := range servers {
		server := server
		t.Run(serverName(server), func(t *testing.T) {
			t.Parallel()

			cl := &Client{HTTPDoer: server.Client(), Handlers: &HandlerGroup{}}
			tr := cl.Handlers.addTrace()
			for _, method := range []string{"GET", "PUT", "DELETE"} {
				p := (&serverInstruction{
					StatusCode: 200,
					Body:       []bodyChunk{{Data: []byte(method + " ok")}},
				}).toPlan(context.Background(), method, server)
				e, err := cl.Do(p)
				require.NoError(t, err)
				assert.Equal(t, method+" ok", string(e.Body))
				assert.NotEmpty(t, e.Header().Get("X-Instruction-Length"))
			}
			assert.Len(t, tr.calls, 12)
		})
	}
}

func testClientAttemptTimeout(t *testing.T) {
	t.Parallel()

	for _, server := range servers {
		server := server
		t.Run(serverName(server), func(t *testing.T) {
			t.Parallel()

			cl := &Client{
				HTTPDoer:      server.Client(),
				TimeoutPolicy: timeout.Fixed(25 * time.Millisecond),
				Handlers:      &HandlerGroup{},
			}
			tr := cl.Handlers.addTrace()
			p := (&serverInstruction{
				StatusCode:  200,
				HeaderPause: 250 * time.Millisecond,
			}).toPlan(context.Background(), "GET", server)

			e, err := cl.Do(p)

			require.NotNil(t, e)
			require.IsType(t, &url.Error{}, err)
			assert.True(t, err.(*url.Error).Timeout())
			assert.Equal(t, transient.Timeout, transient.Categorize(err))
			assert.Same(t, err, e.Err)
			assert.Equal(t, 2, e.Attempt)
			assert.Equal(t, 3, e.AttemptTimeouts)
			assert.Equal(t, request.Exhausted, e.Verdict)
			assert.Nil(t, e.Response)
			assert.Equal(t, "AfterExecutionEnd", tr.calls[len(tr.calls)-1])
		})
	}
}

func testClientAdaptiveTimeout(t *testing.T) {
	t.Parallel()

	cl := &Client{
		HTTPDoer:      httpServer.Client(),
		TimeoutPolicy: timeout.Adaptive(25*time.Millisecond, 5*time.Second),
	}
	p := (&serverInstruction{
		StatusCode:  202,
		HeaderPause: 100 * time.Millisecond,
	}).toPlan(context.Background(), "GET", httpServer)

	e, err := cl.Do(p)

	require.NoError(t, err)
	assert.Equal(t, 202, e.StatusCode())
	assert.Equal(t, 1, e.Attempt)
	assert.Equal(t, 1, e.AttemptTimeouts)
}

func testClientFailStatus(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var n int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		n++
		i := n
		mu.Unlock()
		if i < 3 {
			w.WriteHeader(503)
			_, _ = io.WriteString(w, "try later")
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	t.Run("not retryable", func(t *testing.T) {
		cl := &Client{FailStatus: []int{503}}
		e, err := cl.Get(server.URL)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 503, statusErr.Code)
		assert.Equal(t, request.NotRetryable, e.Verdict)
		assert.Equal(t, "try later", string(e.Body))
	})
	t.Run("retryable", func(t *testing.T) {
		cl := &Client{
			FailStatus:  []int{503},
			RetryPolicy: retry.New(retry.WithExceptions(retry.Timeout, retry.Status(503))),
		}
		e, err := cl.Get(server.URL)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(e.Body))
		assert.Equal(t, 1, e.Attempt)
	})
}

func testClientPostResent(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		i := len(bodies)
		mu.Unlock()
		if i < 3 {
			w.WriteHeader(502)
			return
		}
		w.WriteHeader(201)
	}))
	defer server.Close()

	g := &HandlerGroup{}
	g.PushBack(AfterAttempt, HandlerFunc(func(_ Event, e *request.Execution) {
		e.Plan.Body = []byte("tampered")
	}))
	cl := &Client{
		FailStatus: []int{502},
		RetryPolicy: retry.New(
			retry.WithExceptions(retry.Status(502)),
			retry.WithRetryIf(retry.Methods("POST")),
		),
		Handlers: g,
	}

	e, err := cl.Post(server.URL, "text/plain", "order=42")

	require.NoError(t, err)
	assert.Equal(t, 201, e.StatusCode())
	assert.Equal(t, []string{"order=42", "order=42", "order=42"}, bodies)
}

func testClientConnRefused(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	cl := &Client{
		RetryPolicy: retry.New(
			retry.WithMax(1),
			retry.WithExceptions(retry.ConnRefused),
		),
	}
	e, err := cl.Get(addr)

	require.Error(t, err)
	assert.Equal(t, transient.ConnRefused, transient.Categorize(err))
	assert.Equal(t, 1, e.Attempt)
	assert.Equal(t, request.Exhausted, e.Verdict)
}

func testClientPlanCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	cl := &Client{
		HTTPDoer:      httpServer.Client(),
		TimeoutPolicy: timeout.Fixed(10 * time.Millisecond),
		RetryPolicy:   retry.New(retry.WithMax(100), retry.WithInterval(time.Hour)),
		Handlers:      &HandlerGroup{},
	}
	tr := cl.Handlers.addTrace()
	p := (&serverInstruction{
		StatusCode:  200,
		HeaderPause: 50 * time.Millisecond,
	}).toPlan(ctx, "GET", httpServer)

	start := time.Now()
	e, err := cl.Do(p)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, context.DeadlineExceeded, err)
	assert.Equal(t, request.Cancelled, e.Verdict)
	assert.Equal(t, 0, e.Attempt)
	assert.Contains(t, tr.calls, "AfterPlanTimeout")
}

func testClientCloseIdleConnections(t *testing.T) {
	t.Run("HTTPDoer implements IdleCloser", func(t *testing.T) {
		doer := newMockHTTPDoerWithCloseIdleConnections(t)
		doer.On("CloseIdleConnections").Once()
		cl := &Client{HTTPDoer: doer}
		cl.CloseIdleConnections()
		doer.AssertExpectations(t)
	})
	t.Run("HTTPDoer does not implement IdleCloser", func(t *testing.T) {
		doer := newMockHTTPDoer(t)
		cl := &Client{HTTPDoer: doer}
		cl.CloseIdleConnections()
		doer.AssertNotCalled(t, "CloseIdleConnections")
	})
}
