// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

// fakeServer mimics http.Server's lifecycle: ListenAndServe blocks until
// Shutdown is called or a canned error fires.
type fakeServer struct {
	serveErr    error
	shutdownErr error
	stopped     chan struct{}
	shutdowns   int
}

func newFakeServer() *fakeServer {
	return &fakeServer{stopped: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.serveErr != nil {
		return f.serveErr
	}
	<-f.stopped
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.shutdowns++
	close(f.stopped)
	return f.shutdownErr
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Let the server goroutine start, then trigger shutdown.
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if srv.shutdowns != 1 {
		t.Errorf("Shutdown called %d times, want 1", srv.shutdowns)
	}
}

func TestHTTPServerServiceImmediateFailure(t *testing.T) {
	srv := newFakeServer()
	srv.serveErr = fmt.Errorf("bind: address already in use")
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("Serve = nil error, want bind failure")
	}
	if srv.shutdowns != 0 {
		t.Errorf("Shutdown called %d times for a failed start, want 0", srv.shutdowns)
	}
}

func TestHTTPServerServiceErrServerClosedIsClean(t *testing.T) {
	srv := newFakeServer()
	srv.serveErr = http.ErrServerClosed
	svc := NewHTTPServerService(srv, time.Second)

	if err := svc.Serve(context.Background()); err != nil {
		t.Errorf("Serve = %v, want nil for ErrServerClosed", err)
	}
}

func TestHTTPServerServiceShutdownFailure(t *testing.T) {
	srv := newFakeServer()
	srv.shutdownErr = fmt.Errorf("shutdown deadline exceeded")
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil || errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want shutdown failure", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestHTTPServerServiceString(t *testing.T) {
	if got := NewHTTPServerService(newFakeServer(), 0).String(); got != "http-server" {
		t.Errorf("String() = %q, want http-server", got)
	}
}
