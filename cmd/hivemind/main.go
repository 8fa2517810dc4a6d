// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command hivemind runs the adaptive verification and consensus engine.
//
// # Subcommands
//
//   - serve: start the HTTP service backed by an external worker service
//   - simulate: run local consensus rounds with stub workers
//
// # Environment Variables
//
//   - HIVE_PORT: HTTP server port (default: 8085)
//   - HIVE_STORE_PATH: badger evidence store directory (default: data/hive)
//   - HIVE_WORKER_URL: worker service endpoint for serve mode
//   - HIVE_OTEL_ENABLED / HIVE_OTEL_ENDPOINT: tracing configuration
//
// # Usage
//
//	# Build
//	go build -o hivemind ./cmd/hivemind
//
//	# Serve
//	./hivemind serve --config hive.yaml --worker-url http://worker:9000/execute
//
//	# Simulate 20 rounds of 5 workers with 80% agreement
//	./hivemind simulate --rounds 20 --workers 5 --agreement 0.8
package main

import (
	"log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
