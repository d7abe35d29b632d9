package main

// Package main is the entry point for the triage server.
//
// Responsibilities:
//   - Load and validate configuration from environment variables and the
//     policy file (dispatch deadline, synthesis thresholds, authority weights)
//   - Build the reasoning backends, tool bridge, and specialist set
//   - Start the HTTP API (/v1/investigate, /v1/agents, probes, /metrics)
//     and the WebSocket progress stream
//   - Implement graceful shutdown with context cancellation
//
// Pipeline Flow:
//   1. Alert arrives at /v1/investigate
//   2. Authority table resolves per-domain weights for the alert
//   3. Dispatcher fans the alert out to every specialist under one deadline
//   4. Specialists gather evidence through the tool bridge, then reason
//   5. Synthesizer combines the findings (primary, secondary, rule-based)
//   6. Response carries the verdict plus every specialist finding

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kernowlab/triage/internal/server"
)

func main() {
	// Load configuration from environment variables
	cfg, err := server.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Create server with all components wired together
	srv, err := server.NewServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for shutdown signal (Ctrl+C or SIGTERM)
	<-sigChan
	fmt.Println("\nReceived shutdown signal...")

	if err := srv.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping server: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Shutdown complete")
}
