// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the ash worker: a small HTTP process
// that exposes tools/list and tools/call over a single /mcp endpoint, and
// prints its listening port to stderr for a supervising process to read.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dreamyang-liu/Ash-sub000/cmd/ash-worker/toolset"
	"github.com/dreamyang-liu/Ash-sub000/pkg/logger"
	"github.com/dreamyang-liu/Ash-sub000/pkg/worker"
)

func main() {
	var transport string
	var port int
	flag.StringVar(&transport, "transport", "http", "Transport to serve the tool protocol on (only http is supported).")
	flag.IntVar(&port, "port", 0, "Port to listen on; 0 picks an ephemeral port.")
	flag.Parse()

	logger.Initialize()

	if transport != "http" {
		fmt.Fprintf(os.Stderr, "unsupported transport %q: only http is supported\n", transport)
		os.Exit(1)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to listen: %v\n", err)
		os.Exit(1)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port
	srv := worker.NewServer(toolset.Default())

	httpServer := &http.Server{Handler: srv.Handler()}

	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Errorf("worker http server stopped: %v", err)
		}
	}()

	// LISTENING:<port> is the one line the supervisor blocks on; everything
	// else a caller might want goes through structured logging instead.
	fmt.Fprintf(os.Stderr, "LISTENING:%d\n", actualPort)
	logger.Infof("worker listening on 127.0.0.1:%d", actualPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("worker shutting down")
	_ = httpServer.Close()
}
