// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package services

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/reminisce/internal/logging"
	"github.com/tomtom215/reminisce/internal/recommend/bandit"
)

type mockServer struct {
	listenErr   error
	shutdownErr error
	shutdowns   atomic.Int32
	release     chan struct{}
}

func newMockServer() *mockServer {
	return &mockServer{release: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.release
	return nil
}

func (m *mockServer) Shutdown(_ context.Context) error {
	m.shutdowns.Add(1)
	close(m.release)
	return m.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := newMockServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if got := srv.shutdowns.Load(); got != 1 {
		t.Errorf("shutdowns = %d, want 1", got)
	}
}

func TestHTTPServiceListenFailure(t *testing.T) {
	srv := newMockServer()
	srv.listenErr = errors.New("port in use")
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Errorf("Serve() = %v, want wrapped listen error", err)
	}
}

type countingFlusher struct {
	calls atomic.Int32
	err   error
}

func (c *countingFlusher) Flush(_ context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestFlushServiceFlushesPeriodically(t *testing.T) {
	flusher := &countingFlusher{}
	svc := NewFlushService(flusher, 10*time.Millisecond, logging.NewTestLogger(io.Discard))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want deadline exceeded", err)
	}
	if got := flusher.calls.Load(); got < 2 {
		t.Errorf("flush calls = %d, want at least 2", got)
	}
}

func TestFlushServiceStopsWhenEngineClosed(t *testing.T) {
	flusher := &countingFlusher{err: bandit.ErrClosed}
	svc := NewFlushService(flusher, time.Millisecond, logging.NewTestLogger(io.Discard))

	done := make(chan error, 1)
	go func() { done <- svc.Serve(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after engine close", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not stop on ErrClosed")
	}
	if got := flusher.calls.Load(); got != 1 {
		t.Errorf("flush calls = %d, want 1", got)
	}
}
