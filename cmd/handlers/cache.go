package handlers

import (
	"aidigest/internal/config"
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the summary cache management command
func NewCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the summary cache",
		Long:  `Inspect and clean the cache of generated article summaries kept in the database.`,
	}

	cacheCmd.AddCommand(newCacheStatsCmd())
	cacheCmd.AddCommand(newCacheCleanupCmd())
	cacheCmd.AddCommand(newCacheClearCmd())

	return cacheCmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show summary cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.Get())
			if err != nil {
				return err
			}
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			stats, err := db.Summaries().Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "📊 Cache Statistics")
			fmt.Fprintln(out, "==================")
			fmt.Fprintf(out, "📝 Summaries cached: %d\n", stats.Count)
			if stats.Count > 0 {
				fmt.Fprintf(out, "📅 Oldest: %s\n", stats.Oldest.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "📅 Newest: %s\n", stats.Newest.Local().Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintf(out, "⏳ TTL: %s\n", config.Duration(a.cfg.Summarize.CacheTTL, 7*24*time.Hour))
			return nil
		},
	}
}

func newCacheCleanupCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove summaries older than the cache TTL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.Get())
			if err != nil {
				return err
			}
			if olderThan <= 0 {
				olderThan = config.Duration(a.cfg.Summarize.CacheTTL, 7*24*time.Hour)
			}
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			n, err := db.Summaries().Cleanup(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🧹 Removed %d summaries older than %s\n", n, olderThan)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Age cutoff (default summarize.cache_ttl)")
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !confirm {
				fmt.Fprint(out, "⚠️  This will remove all cached summaries. Continue? [y/N]: ")
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				switch strings.TrimSpace(response) {
				case "y", "Y", "yes":
				default:
					fmt.Fprintln(out, "Cache clear cancelled")
					return nil
				}
			}

			a, err := newApp(config.Get())
			if err != nil {
				return err
			}
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			n, err := db.Summaries().Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✅ Cleared %d cached summaries\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Skip confirmation prompt")
	return cmd
}
