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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "loom-agent",
	Short: "Loom Agent - a single bridge-connected cognitive agent",
	Long:  `loom-agent connects one agent to a Loom bridge and runs it through a configurable thinking strategy (single-shot, chain-of-thought, or ReAct).`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "agent project file (apiVersion: loom-agent/v1)")
	rootCmd.PersistentFlags().String("bridge-addr", "", "bridge address (or LOOM_BRIDGE_ADDR)")
	rootCmd.PersistentFlags().String("llm-provider", "deepseek", "LLM provider preset: deepseek, openai, local")
	rootCmd.PersistentFlags().String("workspace", ".", "workspace root for sandboxed file/shell tools")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("bridge.addr", rootCmd.PersistentFlags().Lookup("bridge-addr"))
	_ = v.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("llm-provider"))
	_ = v.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(runCmd)
}
