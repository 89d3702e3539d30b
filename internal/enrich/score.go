package enrich

import (
	"strings"

	"aidigest/internal/core"
	"aidigest/internal/lexicon"
)

const maxScore = 10

// matchText is the lowercased text every keyword stage looks at.
func matchText(a core.Article) string {
	return strings.ToLower(a.Text())
}

// IsAIRelevant reports whether the article mentions any AI keyword. Matching
// is a plain substring test, so "ai" also matches inside words like "said".
func IsAIRelevant(a core.Article, lex *lexicon.Lexicon) bool {
	return lexicon.ContainsAny(matchText(a), lex.AIKeywords)
}

// FilterRelevant returns the AI-relevant articles in input order.
func FilterRelevant(batch []core.Article, lex *lexicon.Lexicon) []core.Article {
	relevant := make([]core.Article, 0, len(batch))
	for _, a := range batch {
		if IsAIRelevant(a, lex) {
			relevant = append(relevant, a)
		}
	}
	return relevant
}

// KeywordHits returns the distinct keywords present in the article.
func KeywordHits(a core.Article, keywords []string) []string {
	hits := lexicon.Matches(matchText(a), keywords)
	seen := make(map[string]bool, len(hits))
	distinct := hits[:0]
	for _, h := range hits {
		if !seen[h] {
			seen[h] = true
			distinct = append(distinct, h)
		}
	}
	return distinct
}

// SMBScore rates small-business relevance from 0 to 10.
func SMBScore(a core.Article, lex *lexicon.Lexicon) int {
	return scoreHits(len(KeywordHits(a, lex.SMBKeywords)))
}

// ViralScore rates how trending the story is from 0 to 10.
func ViralScore(a core.Article, lex *lexicon.Lexicon) int {
	return scoreHits(len(KeywordHits(a, lex.ViralKeywords)))
}

func scoreHits(n int) int {
	return min(n*2, maxScore)
}

// Classify assigns exactly one topic label. Rules are checked in order so a
// story about an OpenAI funding round lands in Funding & Deals, not Big Tech.
func Classify(a core.Article, lex *lexicon.Lexicon) string {
	text := matchText(a)
	for _, rule := range lex.TopicRules {
		if lexicon.ContainsAny(text, rule.Keywords) {
			return rule.Topic
		}
	}
	return lex.DefaultTopic
}
