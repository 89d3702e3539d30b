package handlers

import (
	"aidigest/internal/config"
	"aidigest/internal/logger"
	"aidigest/internal/persistence"
	"aidigest/internal/summarize"
	"fmt"

	"github.com/spf13/cobra"
)

// NewSummarizeCmd creates the summarize command
func NewSummarizeCmd() *cobra.Command {
	var (
		mode    string
		title   string
		raw     bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "summarize <url>",
		Short: "Summarize one article with Gemini",
		Long: `Fetch an article, extract its main text and ask Gemini for a summary.

Modes:
  tldr       3-5 bullet points (default)
  executive  context, key points, implications and a recommendation

Requires GEMINI_API_KEY (or GOOGLE_AI_API_KEY).

Examples:
  aidigest summarize https://example.com/post
  aidigest summarize --mode executive --title "New model" https://example.com/post`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.Get())
			if err != nil {
				return err
			}
			var store persistence.Store
			if !noCache {
				db, err := a.openStore()
				if err != nil {
					logger.Warn("Summary cache unavailable", "error", err.Error())
				} else {
					defer func() { _ = db.Close() }()
					store = db
				}
			}

			svc, closeFn, err := a.summarizer(cmd.Context(), store)
			if err != nil {
				return err
			}
			defer closeFn()

			html, err := svc.Summarize(cmd.Context(), summarize.Request{URL: args[0], Title: title, Mode: mode})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if raw {
				fmt.Fprintln(out, html)
				return nil
			}
			md, err := summarize.ToMarkdown(html)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, md)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(summarize.ModeTLDR), "Summary mode: tldr or executive")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Article title used in the prompt")
	cmd.Flags().BoolVar(&raw, "html", false, "Print the sanitized HTML instead of markdown")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the summary cache")

	return cmd
}
