// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/hivemind/pkg/logging"
	"github.com/AleutianAI/hivemind/services/hive"
	"github.com/AleutianAI/hivemind/services/hive/config"
	"github.com/AleutianAI/hivemind/services/hive/consensus"
)

// --- Global Command Variables ---
var (
	configPath string
	workerURL  string

	simRounds    int
	simWorkers   int
	simAgreement float64
	simSeed      int64

	rootCmd = &cobra.Command{
		Use:   "hivemind",
		Short: "An adaptive verification and consensus engine",
		Long: `Hivemind learns from verification outcomes to predict the quality
of unseen work, adapts its acceptance threshold to observed quality,
and builds consensus across independent workers.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the hive HTTP service",
		RunE:  runServe,
	}

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run local consensus rounds with stub workers",
		Long: `Simulate exercises the full engine without an external worker
service: stub workers agree on a shared value with the configured
probability, decided rounds feed the learning bridge, and the
threshold trajectory is reported at the end.`,
		RunE: runSimulate,
	}
)

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to hive YAML config")
	serveCmd.Flags().StringVar(&workerURL, "worker-url", "", "worker service endpoint (overrides HIVE_WORKER_URL)")

	simulateCmd.Flags().IntVar(&simRounds, "rounds", 20, "number of consensus rounds to run")
	simulateCmd.Flags().IntVar(&simWorkers, "workers", 5, "workers per round")
	simulateCmd.Flags().Float64Var(&simAgreement, "agreement", 0.8, "probability a worker produces the consensus value")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "random seed (0 uses a time-based seed)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "hive",
		LogDir:  os.Getenv("HIVE_LOG_DIR"),
	})
	defer logger.Close()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	url := workerURL
	if url == "" {
		url = os.Getenv("HIVE_WORKER_URL")
	}
	if url == "" {
		logger.Error("no worker service configured",
			"hint", "set --worker-url or HIVE_WORKER_URL")
		return errNoWorkerURL
	}

	executor := consensus.NewHTTPExecutor(url, nil)
	svc, err := hive.New(cfg, executor, logger.Slog())
	if err != nil {
		return err
	}

	logger.Info("hive service configured",
		"port", cfg.Server.Port,
		"store_path", cfg.Store.Path,
		"worker_url", url,
		"quorum", cfg.Consensus.Quorum)
	return svc.Run()
}
