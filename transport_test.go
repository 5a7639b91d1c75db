// Copyright 2021 The httpretry Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpretry

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gogama/httpretry/request"
	"github.com/gogama/httpretry/timeout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTransport_Attempt(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		doer := newMockHTTPDoer(t)
		tp := newMockTimeoutPolicy(t)
		tr := &Transport{HTTPDoer: doer, TimeoutPolicy: tp}
		e := &request.Execution{Plan: newTestPlan(t, "PUT", "payload")}
		tp.On("Timeout", e).Return(time.Minute).Once()
		doer.On("Do", mock.MatchedBy(func(r *http.Request) bool {
			deadline, ok := r.Context().Deadline()
			body, _ := r.GetBody()
			b, _ := io.ReadAll(body)
			return ok && time.Until(deadline) <= time.Minute &&
				r.Method == "PUT" && string(b) == "payload"
		})).Return(&http.Response{
			StatusCode: 201,
			Body:       io.NopCloser(strings.NewReader("created")),
		}, nil).Once()

		err := tr.Attempt(e)

		doer.AssertExpectations(t)
		tp.AssertExpectations(t)
		assert.NoError(t, err)
		assert.NotNil(t, e.Request)
		assert.Equal(t, 201, e.StatusCode())
		assert.Equal(t, []byte("created"), e.Body)
	})
	t.Run("doer error", func(t *testing.T) {
		doer := newMockHTTPDoer(t)
		doerErr := errors.New("no route to host")
		doer.On("Do", mock.Anything).Return(nil, doerErr).Once()
		tr := &Transport{HTTPDoer: doer}
		e := &request.Execution{Plan: newTestPlan(t, "POST", nil)}

		err := tr.Attempt(e)

		doer.AssertExpectations(t)
		require.IsType(t, &url.Error{}, err)
		urlErr := err.(*url.Error)
		assert.Equal(t, "Post", urlErr.Op)
		assert.Equal(t, "http://example.com/widgets", urlErr.URL)
		assert.Same(t, doerErr, urlErr.Err)
		assert.Nil(t, e.Response)
		assert.Nil(t, e.Body)
	})
	t.Run("doer url.Error", func(t *testing.T) {
		doer := newMockHTTPDoer(t)
		doerErr := &url.Error{Op: "Get", URL: "x", Err: errors.New("y")}
		doer.On("Do", mock.Anything).Return(nil, doerErr).Once()
		tr := &Transport{HTTPDoer: doer}
		err := tr.Attempt(&request.Execution{Plan: newTestPlan(t, "GET", nil)})
		assert.Same(t, doerErr, err)
	})
	t.Run("read body error", func(t *testing.T) {
		doer := newMockHTTPDoer(t)
		body := newMockReadCloser(t)
		readErr := errors.New("connection lost mid-body")
		body.On("Read", mock.Anything).Return(0, readErr).Once()
		body.On("Close").Return(nil).Once()
		doer.On("Do", mock.Anything).Return(&http.Response{StatusCode: 200, Body: body}, nil).Once()
		tr := &Transport{HTTPDoer: doer}
		e := &request.Execution{Plan: newTestPlan(t, "GET", nil)}

		err := tr.Attempt(e)

		doer.AssertExpectations(t)
		body.AssertExpectations(t)
		assert.ErrorIs(t, err, readErr)
		assert.NotNil(t, e.Response)
		assert.Nil(t, e.Body)
	})
	t.Run("close error ignored", func(t *testing.T) {
		doer := newMockHTTPDoer(t)
		body := newMockReadCloser(t)
		body.On("Read", mock.Anything).Return(0, io.EOF).Once()
		body.On("Close").Return(errors.New("a very bad closing error")).Once()
		doer.On("Do", mock.Anything).Return(&http.Response{StatusCode: 202, Body: body}, nil).Once()
		tr := &Transport{HTTPDoer: doer}
		e := &request.Execution{Plan: newTestPlan(t, "GET", nil)}

		err := tr.Attempt(e)

		body.AssertExpectations(t)
		assert.NoError(t, err)
		assert.Equal(t, []byte{}, e.Body)
	})
	t.Run("fail status", func(t *testing.T) {
		doer := newMockHTTPDoer(t)
		doer.On("Do", mock.Anything).Return(&http.Response{
			StatusCode: 503,
			Body:       io.NopCloser(strings.NewReader("busy")),
		}, nil).Once()
		tr := &Transport{HTTPDoer: doer, FailStatus: []int{502, 503}}
		e := &request.Execution{Plan: newTestPlan(t, "GET", nil)}

		err := tr.Attempt(e)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, 503, statusErr.StatusCode())
		assert.Equal(t, 503, e.StatusCode())
		assert.Equal(t, []byte("busy"), e.Body)
	})
	t.Run("timeout sees previous error", func(t *testing.T) {
		doer := newMockHTTPDoer(t)
		doer.On("Do", mock.MatchedBy(func(r *http.Request) bool {
			deadline, ok := r.Context().Deadline()
			return ok && time.Until(deadline) > time.Minute
		})).Return(&http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(""))}, nil).Once()
		tr := &Transport{HTTPDoer: doer, TimeoutPolicy: timeout.Adaptive(time.Millisecond, time.Hour)}
		e := &request.Execution{
			Plan:            newTestPlan(t, "GET", nil),
			Err:             &url.Error{Op: "Get", URL: "x", Err: errTestTimeout{}},
			AttemptTimeouts: 1,
		}

		err := tr.Attempt(e)

		doer.AssertExpectations(t)
		assert.NoError(t, err)
	})
}

func TestTransport_CloseIdleConnections(t *testing.T) {
	t.Run("HTTPDoer implements IdleCloser", func(t *testing.T) {
		doer := newMockHTTPDoerWithCloseIdleConnections(t)
		doer.On("CloseIdleConnections").Once()
		(&Transport{HTTPDoer: doer}).CloseIdleConnections()
		doer.AssertExpectations(t)
	})
	t.Run("HTTPDoer does not implement IdleCloser", func(t *testing.T) {
		doer := newMockHTTPDoer(t)
		(&Transport{HTTPDoer: doer}).CloseIdleConnections()
		doer.AssertNotCalled(t, "CloseIdleConnections")
	})
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Code: 429}
	assert.EqualError(t, err, "httpretry: response status 429 Too Many Requests")
	assert.Equal(t, 429, err.StatusCode())
}

func TestURLErrorOp(t *testing.T) {
	assert.Equal(t, "Get", urlErrorOp(""))
	assert.Equal(t, "Get", urlErrorOp("GET"))
	assert.Equal(t, "G", urlErrorOp("G"))
	assert.Equal(t, "Xyz", urlErrorOp("XYZ"))
	assert.Equal(t, "Put", urlErrorOp("PUT"))
}

type errTestTimeout struct{}

func (errTestTimeout) Error() string { return "test timeout" }
func (errTestTimeout) Timeout() bool { return true }

type mockHTTPDoer struct {
	mock.Mock
}

func newMockHTTPDoer(t *testing.T) *mockHTTPDoer {
	m := &mockHTTPDoer{}
	m.Test(t)
	return m
}

func (m *mockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	err := args.Error(1)
	if resp, ok := args.Get(0).(*http.Response); ok {
		return resp, err
	}
	return nil, err
}

type mockHTTPDoerWithCloseIdleConnections struct {
	mockHTTPDoer
}

func newMockHTTPDoerWithCloseIdleConnections(t *testing.T) *mockHTTPDoerWithCloseIdleConnections {
	m := &mockHTTPDoerWithCloseIdleConnections{}
	m.Test(t)
	return m
}

func (m *mockHTTPDoerWithCloseIdleConnections) CloseIdleConnections() {
	m.Called()
}

type mockTimeoutPolicy struct {
	mock.Mock
}

func newMockTimeoutPolicy(t *testing.T) *mockTimeoutPolicy {
	m := &mockTimeoutPolicy{}
	m.Test(t)
	return m
}

func (m *mockTimeoutPolicy) Timeout(e *request.Execution) time.Duration {
	args := m.Called(e)
	return args.Get(0).(time.Duration)
}

type mockReadCloser struct {
	mock.Mock
}

func newMockReadCloser(t *testing.T) *mockReadCloser {
	m := &mockReadCloser{}
	m.Test(t)
	return m
}

func (m *mockReadCloser) Read(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *mockReadCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}
