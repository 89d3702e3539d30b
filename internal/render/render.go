// Package render turns a digest into markdown, a plain-text report or HTML.
package render

import (
	"aidigest/internal/core"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultOutputDir is used when no output directory is configured.
	DefaultOutputDir = "digests"

	quickHitsLimit = 10
	perTopicLimit  = 5
	maxStars       = 10
)

// Markdown renders the export layout: top stories, SMB spotlight and the
// first ten articles as quick hits.
func Markdown(d core.Digest, now time.Time) string {
	md := []string{
		"# AI News Digest",
		fmt.Sprintf("\n*Generated: %s*\n", now.Format("January 02, 2006")),
		"\n## Top Stories\n",
	}

	for i, a := range d.TopStories {
		md = append(md,
			fmt.Sprintf("### %d. %s", i+1, a.Title),
			fmt.Sprintf("*%s | %s*\n", a.Source, a.PublishedDisplay),
			a.Summary+"\n",
			fmt.Sprintf("[Read more](%s)\n", a.Link),
		)
	}

	if len(d.SMBSpotlight) > 0 {
		md = append(md, "\n## SMB AI Spotlight\n")
		for _, a := range d.SMBSpotlight {
			md = append(md,
				"### "+a.Title,
				fmt.Sprintf("*%s | SMB Score: %d/10*\n", a.Source, a.SMBScore),
				a.Summary+"\n",
				fmt.Sprintf("[Read more](%s)\n", a.Link),
			)
		}
	}

	md = append(md, "\n## Quick Hits\n")
	for _, a := range d.Articles[:min(quickHitsLimit, len(d.Articles))] {
		md = append(md, fmt.Sprintf("- **%s** - %s ([link](%s))", a.Title, a.Source, a.Link))
	}

	return strings.Join(md, "\n")
}

// Report renders the plain-text CLI report. feeds lists every source that
// was checked.
func Report(d core.Digest, feeds []core.FeedConfig) string {
	banner := strings.Repeat("=", 60)
	rule := strings.Repeat("-", 40)

	out := []string{
		banner,
		"AI NEWS DIGEST",
		"Generated: " + d.GeneratedAt.Local().Format("January 02, 2006 at 03:04 PM"),
		fmt.Sprintf("Covering: Past %d days", d.Days),
		fmt.Sprintf("Articles found: %d AI-relevant articles", len(d.Articles)),
		banner,
		"",
		"## TOP STORIES",
		rule,
	}

	for i, a := range d.TopStories {
		out = append(out,
			fmt.Sprintf("\n### %d. %s", i+1, a.Title),
			fmt.Sprintf("Source: %s | %s", a.Source, a.Published.Format(core.DisplayDateFmt)),
			"Topic: "+a.Topic,
		)
		if a.SMBScore > 0 {
			out = append(out, "SMB Relevance: "+stars(a.SMBScore))
		}
		out = append(out, "\n"+a.Summary, "\nRead more: "+a.Link)
	}
	out = append(out, "\n")

	if len(d.SMBSpotlight) > 0 {
		out = append(out, "## SMB AI SPOTLIGHT", rule)
		for _, a := range d.SMBSpotlight {
			out = append(out,
				"\n### "+a.Title,
				fmt.Sprintf("Source: %s | SMB Score: %d/10", a.Source, a.SMBScore),
				"\n"+a.Summary,
				"\nRead more: "+a.Link,
			)
		}
	}
	out = append(out, "\n", "## QUICK HITS BY TOPIC", rule)

	for _, topic := range topicOrder(d) {
		articles := d.ByTopic[topic]
		if len(articles) == 0 {
			continue
		}
		out = append(out, "\n### "+topic)
		for _, a := range articles[:min(perTopicLimit, len(articles))] {
			out = append(out,
				"• "+a.Title,
				fmt.Sprintf("  %s | %s", a.Source, a.Published.Format("Jan 02")),
				"  "+a.Link,
			)
		}
	}

	out = append(out, "\n", banner, "END OF DIGEST", banner, "\n", "Sources checked:")
	for _, f := range feeds {
		out = append(out, "  • "+f.Name)
	}

	return strings.Join(out, "\n")
}

// stars draws a ten-slot bar with one filled star per score point.
func stars(score int) string {
	score = max(0, min(score, maxStars))
	return strings.Repeat("★", score) + strings.Repeat("☆", maxStars-score)
}

func topicOrder(d core.Digest) []string {
	if len(d.TopicOrder) > 0 {
		return d.TopicOrder
	}
	return core.Topics
}

// Filename returns the dated file name for a digest.
func Filename(generated time.Time, ext string) string {
	return fmt.Sprintf("ai_digest_%s.%s", generated.UTC().Format("2006-01-02"), ext)
}

// WriteFile writes content to outputDir/filename, creating the directory.
func WriteFile(content, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, filename)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write digest file %s: %w", filePath, err)
	}

	return filePath, nil
}
