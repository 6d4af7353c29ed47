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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"updater/internal/config"
	"updater/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	var opts runFlags

	rootCmd := &cobra.Command{
		Use:   "updater",
		Short: "Rewrite store articles using corroborating references from the web.",
		Long: `updater picks original articles from the article store, searches the web for two
independent articles on the same topic, rewrites the original with an LLM using them as
references, and publishes the result as the article's single "updated" version.

Modes:
  latest       process the newest article (default)
  all          process up to --limit originals
  update-five  remove duplicate updated records, then process the five oldest originals
  dedupe       remove duplicate updated records only
  one          process --id, or the --skip-th oldest original

Results are written to stdout as JSON; logs go to stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.updater.yaml or $HOME/.updater.yaml)")
	rootCmd.Flags().StringVar(&opts.mode, "mode", "latest", "run mode: latest, all, update-five, dedupe or one")
	rootCmd.Flags().IntVar(&opts.limit, "limit", 5, "maximum articles to publish in all mode")
	rootCmd.Flags().Int64Var(&opts.id, "id", 0, "article id to process in one mode")
	rootCmd.Flags().IntVar(&opts.skip, "skip", 0, "offset into the oldest originals in one mode")

	rootCmd.AddCommand(NewCacheCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables, then initializes logging.
func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level)
	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
	return nil
}
