// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/teradata-labs/loom-agent/internal/log"
	"github.com/teradata-labs/loom-agent/pkg/bridge"
	"github.com/teradata-labs/loom-agent/pkg/cognitive"
	"github.com/teradata-labs/loom-agent/pkg/config"
	"github.com/teradata-labs/loom-agent/pkg/contextkit"
	"github.com/teradata-labs/loom-agent/pkg/runtime"
	"github.com/teradata-labs/loom-agent/pkg/telemetry"
	"go.uber.org/zap"
)

var (
	goalFlag    string
	agentIDFlag string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one agent against the bridge and execute a single ReAct goal",
	RunE:  runAgent,
}

func init() {
	runCmd.Flags().StringVar(&goalFlag, "goal", "", "goal for the cognitive loop to pursue (required)")
	runCmd.Flags().StringVar(&agentIDFlag, "agent-id", "", "agent id (default: a generated UUID)")
	_ = runCmd.MarkFlagRequired("goal")
}

func runAgent(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.Named("loom-agent")
	agentID := agentIDFlag
	if agentID == "" {
		agentID = uuid.NewString()
	}

	tools := runtime.NewToolRegistry()
	if err := registerBuiltinTools(tools, cfg.Workspace); err != nil {
		return fmt.Errorf("registering built-in tools: %w", err)
	}

	client := bridge.NewClient(cfg.BridgeAddr)
	defer func() { _ = client.Close() }()

	agent := runtime.NewAgent(agentID, client, nil, tools)
	if os.Getenv("LOOM_TELEMETRY_AUTO") != "false" {
		agent.SetTracer(telemetry.NewTracer("loom-agent"))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- agent.Run(ctx) }()

	llmProvider, err := cfg.BuildLLMProvider()
	if err != nil {
		return fmt.Errorf("resolving LLM provider: %w", err)
	}

	reducer := contextkit.NewStepReducer()
	offloader := contextkit.NewDataOffloader(cfg.Workspace, cfg.OffloadConfig())
	compactor := contextkit.NewStepCompactor(cfg.CompactionConfig())

	toolExecutor := cognitive.NewToolExecutor(agent.Context(), reducer, offloader, cfg.Workspace, autoApprove(logger))
	strategy := cognitive.NewStrategyExecutor(llmProvider, cfg.CognitiveConfig(), agent.Memory(), toolExecutor, compactor, builtinToolNames())

	result, err := strategy.Run(ctx, goalFlag)
	agent.Stop()

	if runErr := <-runErrCh; runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Warn("agent stream ended with error", zap.Error(runErr))
	}
	if err != nil {
		return fmt.Errorf("running cognitive loop: %w", err)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	return nil
}

// autoApprove is the demo's PermissionCallback: it logs the requested
// destructive action and approves it unconditionally, since loom-agent
// run has no interactive terminal to prompt on.
func autoApprove(logger *zap.Logger) cognitive.PermissionCallback {
	return func(toolName string, args map[string]any, reason string) bool {
		logger.Info("auto-approving destructive tool call", zap.String("tool", toolName), zap.String("reason", reason))
		return true
	}
}

func builtinToolNames() []string {
	return []string{"fs:read_file", "fs:write_file", "fs:delete", "shell:run"}
}
