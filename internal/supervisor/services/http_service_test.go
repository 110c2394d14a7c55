// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func waitForAddr(t *testing.T, svc *HTTPServerService) net.Addr {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for svc.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not bind")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return svc.Addr()
}

func TestHTTPServerService_ServeAndShutdown(t *testing.T) {
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, "127.0.0.1:0", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	addr := waitForAddr(t, svc)
	resp, err := http.Get("http://" + addr.String() + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestHTTPServerService_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	svc := NewHTTPServerService(&http.Server{ReadHeaderTimeout: time.Second}, ln.Addr().String(), time.Second)
	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("Serve() on a taken port succeeded")
	}
}

type stubServer struct {
	serveErr    error
	shutdownErr error
	stop        chan struct{}
	shutdowns   atomic.Int32
}

func (s *stubServer) Serve(l net.Listener) error {
	defer l.Close()
	if s.serveErr != nil {
		return s.serveErr
	}
	<-s.stop
	return http.ErrServerClosed
}

func (s *stubServer) Shutdown(context.Context) error {
	s.shutdowns.Add(1)
	close(s.stop)
	return s.shutdownErr
}

func TestHTTPServerService_Errors(t *testing.T) {
	t.Run("serve failure", func(t *testing.T) {
		want := errors.New("tls: bad certificate")
		svc := NewHTTPServerService(&stubServer{serveErr: want, stop: make(chan struct{})}, "127.0.0.1:0", time.Second)
		if err := svc.Serve(context.Background()); !errors.Is(err, want) {
			t.Errorf("Serve() = %v, want %v", err, want)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		want := errors.New("shutdown timeout")
		stub := &stubServer{shutdownErr: want, stop: make(chan struct{})}
		svc := NewHTTPServerService(stub, "127.0.0.1:0", time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()
		waitForAddr(t, svc)
		cancel()

		if err := <-errCh; !errors.Is(err, want) {
			t.Errorf("Serve() = %v, want %v", err, want)
		}
		if stub.shutdowns.Load() != 1 {
			t.Errorf("Shutdown called %d times", stub.shutdowns.Load())
		}
	})
}

func TestHTTPServerService_Defaults(t *testing.T) {
	svc := NewHTTPServerService(&stubServer{}, ":0", 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v", svc.shutdownTimeout)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestHTTPServerService_WithSupervisor(t *testing.T) {
	stub := &stubServer{stop: make(chan struct{})}
	svc := NewHTTPServerService(stub, "127.0.0.1:0", time.Second)

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)
	waitForAddr(t, svc)

	cancel()
	<-errCh
	if stub.shutdowns.Load() != 1 {
		t.Errorf("Shutdown called %d times, want 1", stub.shutdowns.Load())
	}
}
