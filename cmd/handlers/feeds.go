package handlers

import (
	"aidigest/internal/config"
	"aidigest/internal/core"
	"aidigest/internal/feeds"
	"aidigest/internal/logger"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewFeedsCmd creates the feeds command group
func NewFeedsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "Inspect, validate and import feeds",
	}

	cmd.AddCommand(newFeedsListCmd())
	cmd.AddCommand(newFeedsValidateCmd())
	cmd.AddCommand(newFeedsImportCmd())

	return cmd
}

func newFeedsListCmd() *cobra.Command {
	var (
		source    string
		feedsFile string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the feeds a digest would fetch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			if feedsFile != "" && source == "" {
				source = config.SourceFile
			}

			var list []core.FeedConfig
			if source == config.SourceStore || (source == "" && cfg.Feeds.Source == config.SourceStore) {
				db, err := a.openStore()
				if err != nil {
					return err
				}
				defer func() { _ = db.Close() }()
				list, err = storeFeeds(db)(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				src, err := a.feedSource(source, feedsFile, nil)
				if err != nil {
					return err
				}
				if list, err = src(cmd.Context()); err != nil {
					return err
				}
			}

			writeFeedTable(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Feed source: builtin, file or store")
	cmd.Flags().StringVar(&feedsFile, "feeds-file", "", "YAML feed list (implies --source file)")

	return cmd
}

func writeFeedTable(out io.Writer, list []core.FeedConfig) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tPRIORITY\tTYPE\tURL")
	for _, f := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", f.Name, f.Category, f.Priority, f.Type, f.URL)
	}
	_ = w.Flush()
	fmt.Fprintf(out, "\n%d feeds\n", len(list))
}

func newFeedsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <url>...",
		Short: "Check that URLs serve parseable RSS/Atom feeds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.Get())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, url := range args {
				v := a.fetcher.Validate(cmd.Context(), url)
				if !v.Valid {
					failed++
					fmt.Fprintf(out, "❌ %s\n   %s\n", url, v.Error)
					continue
				}
				fmt.Fprintf(out, "✅ %s\n   %s (%d entries)\n", url, v.Title, v.EntryCount)
				if v.SampleEntry != nil {
					fmt.Fprintf(out, "   latest: %s\n", *v.SampleEntry)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d feeds failed validation", failed, len(args))
			}
			return nil
		},
	}
}

func newFeedsImportCmd() *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "import <feeds.yaml>",
		Short: "Import a YAML feed list into the database",
		Long: `Import a YAML feed list into the admin database. Feeds whose URL is
already stored are reported and skipped.

Example file:
  - name: OpenAI Blog
    url: https://openai.com/blog/rss.xml
    category: Company Blogs
    priority: 1
    type: company`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := feeds.LoadFile(args[0])
			if err != nil {
				return err
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

			out := cmd.OutOrStdout()
			created := 0
			for _, f := range list {
				if validate {
					if v := a.fetcher.Validate(cmd.Context(), f.URL); !v.Valid {
						fmt.Fprintf(out, "⚠️  %s: %s\n", f.Name, v.Error)
						continue
					}
				}

				feed := core.Feed{
					Name:     f.Name,
					URL:      f.URL,
					Category: f.Category,
					Priority: f.Priority,
					FeedType: f.Type,
					IsActive: true,
				}
				if err := db.Feeds().Create(cmd.Context(), &feed); err != nil {
					logger.Warn("Feed import failed", "feed", f.Name, "error", err.Error())
					fmt.Fprintf(out, "⚠️  %s: %v\n", f.Name, err)
					continue
				}
				created++
			}

			fmt.Fprintf(out, "Imported %d of %d feeds\n", created, len(list))
			return nil
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "Fetch each feed before importing it")

	return cmd
}
