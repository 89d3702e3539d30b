/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"aidigest/internal/config"
	"aidigest/internal/logger"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aidigest",
		Short: "AI news digest for small and medium businesses",
		Long: `aidigest pulls AI news from RSS/Atom feeds, keeps the AI-relevant
stories, scores them for small-business relevance and assembles a digest.

Core workflows:
  • Digest: fetch every feed → filter → enrich → report or markdown
  • Serve: JSON API, polled digest jobs and the admin API
  • Summarize: TL;DR or executive summary of one article

Examples:
  # Print this week's report
  aidigest digest

  # Write a two-week markdown digest to ./digests
  aidigest digest --days 14 --format markdown --output digests

  # Start the API server
  aidigest serve --port 3000`,
		SilenceUsage: true,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .aidigest.yaml in . or $HOME)")

	rootCmd.AddCommand(NewDigestCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewFeedsCmd())
	rootCmd.AddCommand(NewSummarizeCmd())
	rootCmd.AddCommand(NewICPCmd())
	rootCmd.AddCommand(NewCacheCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables, then sets up logging.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
}
