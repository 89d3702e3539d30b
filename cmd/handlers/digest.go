package handlers

import (
	"aidigest/internal/config"
	"aidigest/internal/core"
	"aidigest/internal/digest"
	"aidigest/internal/enrich"
	"aidigest/internal/logger"
	"aidigest/internal/persistence"
	"aidigest/internal/render"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	formatReport   = "report"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

type digestFlags struct {
	days      int
	output    string
	format    string
	verbose   bool
	feedsFile string
	source    string
}

// NewDigestCmd creates the digest command
func NewDigestCmd() *cobra.Command {
	var flags digestFlags

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Fetch all feeds and print the AI news digest",
		Long: `Fetch every configured feed, keep the AI-relevant stories from the
lookback window, enrich them and print the digest.

Feeds come from the built-in catalog unless --source (or feeds.source) says
otherwise: "file" reads a YAML list, "store" reads the active feeds from the
database managed by the admin API.

Examples:
  aidigest digest
  aidigest digest --days 3 --verbose
  aidigest digest --format markdown --output digests
  aidigest digest --source file --feeds-file feeds.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.days, "days", "d", 0, "Lookback window in days (default from config: 7)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the digest to this directory instead of stdout")
	cmd.Flags().StringVarP(&flags.format, "format", "f", formatReport, "Output format: report, markdown or json")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Show matched SMB keywords per story")
	cmd.Flags().StringVar(&flags.feedsFile, "feeds-file", "", "YAML feed list (implies --source file)")
	cmd.Flags().StringVar(&flags.source, "source", "", "Feed source: builtin, file or store")

	return cmd
}

func runDigest(cmd *cobra.Command, flags digestFlags) error {
	switch flags.format {
	case formatReport, formatMarkdown, formatJSON:
	default:
		return fmt.Errorf("unknown format %q (want report, markdown or json)", flags.format)
	}

	cfg := config.Get()
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	days := flags.days
	if days == 0 {
		days = cfg.Digest.Days
	}
	source := flags.source
	if flags.feedsFile != "" && source == "" {
		source = config.SourceFile
	}

	var store persistence.Store
	if source == config.SourceStore || (source == "" && cfg.Feeds.Source == config.SourceStore) {
		db, err := a.openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		store = db
	}

	feedSource, err := a.feedSource(source, flags.feedsFile, store)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	list, err := feedSource(ctx)
	if err != nil {
		return err
	}

	logger.Info("Generating digest", "feeds", len(list), "days", days, "format", flags.format)
	start := time.Now()

	d, err := a.generator.Generate(ctx, list, days, digest.NewProgress())
	if err != nil {
		return fmt.Errorf("digest generation failed: %w", err)
	}

	content, ext, err := formatDigest(d, list, flags.format)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.output == "" {
		fmt.Fprint(out, content)
		if flags.verbose {
			writeKeywordMatches(out, d, a.generator)
		}
		return nil
	}

	path, err := render.WriteFile(content, flags.output, render.Filename(d.GeneratedAt, ext))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Digest saved to %s (%d stories, %d feed errors, %s)\n",
		path, len(d.Articles), len(d.Errors), time.Since(start).Round(time.Millisecond))
	return nil
}

func formatDigest(d core.Digest, list []core.FeedConfig, format string) (content, ext string, err error) {
	switch format {
	case formatMarkdown:
		return render.Markdown(d, time.Now()), "md", nil
	case formatJSON:
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return "", "", fmt.Errorf("failed to encode digest: %w", err)
		}
		return string(data) + "\n", "json", nil
	default:
		return render.Report(d, list), "txt", nil
	}
}

// writeKeywordMatches lists the SMB keywords behind each top story and
// spotlight score.
func writeKeywordMatches(w io.Writer, d core.Digest, g *digest.Generator) {
	lex := g.Enricher().Lexicon()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "KEYWORD MATCHES")
	fmt.Fprintln(w, strings.Repeat("-", 40))

	seen := map[string]bool{}
	for _, a := range append(append([]core.Article{}, d.TopStories...), d.SMBSpotlight...) {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true

		hits := enrich.KeywordHits(a, lex.SMBKeywords)
		matched := "none"
		if len(hits) > 0 {
			matched = strings.Join(hits, ", ")
		}
		fmt.Fprintf(w, "• %s\n  SMB %d/10: %s\n", a.Title, a.SMBScore, matched)
	}
}
