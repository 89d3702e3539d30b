package enrich

import (
	"aidigest/internal/core"
	"aidigest/internal/lexicon"
)

// Enricher runs the filter and every annotation stage over a batch.
type Enricher struct {
	lex *lexicon.Lexicon
}

// New creates an Enricher. A nil lexicon selects the built-in one.
func New(lex *lexicon.Lexicon) *Enricher {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Enricher{lex: lex}
}

// Lexicon returns the lexicon the enricher matches against.
func (e *Enricher) Lexicon() *lexicon.Lexicon {
	return e.lex
}

// Enrich filters the batch down to AI-relevant articles and annotates each of
// them. The input slice is not modified.
func (e *Enricher) Enrich(batch []core.Article) []core.Article {
	relevant := FilterRelevant(batch, e.lex)
	for i := range relevant {
		e.annotate(&relevant[i])
	}
	return relevant
}

// Stage order matters: impact and suggestions read the topic and viral score.
func (e *Enricher) annotate(a *core.Article) {
	a.SMBScore = SMBScore(*a, e.lex)
	a.Topic = Classify(*a, e.lex)
	a.KeyBullets = KeyBullets(a.Summary)
	a.ViralScore = ViralScore(*a, e.lex)
	impact := AnnotateImpact(*a, e.lex)
	a.Impact = &impact
	a.ContentSuggestions = ContentSuggestions(*a, e.lex)
}
