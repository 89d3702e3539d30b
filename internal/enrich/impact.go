package enrich

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"aidigest/internal/core"
	"aidigest/internal/lexicon"
)

const (
	maxBullets        = 3
	minBulletRunes    = 20
	fallbackBulletLen = 200
)

// KeyBullets picks up to three sentences from the summary. Sentences of 20
// characters or fewer are dropped; if nothing survives, the first 200
// characters of the summary are returned as the only bullet.
func KeyBullets(summary string) []string {
	if summary == "" {
		return []string{}
	}

	var bullets []string
	for _, s := range splitSentences(strings.TrimSpace(summary)) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > minBulletRunes {
			bullets = append(bullets, s)
		}
	}

	if len(bullets) == 0 {
		return []string{truncateRunes(summary, fallbackBulletLen)}
	}
	if len(bullets) > maxBullets {
		return bullets[:maxBullets]
	}
	return bullets
}

// splitSentences cuts after '.', '!' or '?' when followed by whitespace and
// drops the whitespace run.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i
		j := i
		for j < len(text) {
			ws, wsize := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(ws) {
				break
			}
			j += wsize
		}
		if j > end {
			out = append(out, text[start:end])
			start = j
			i = j
		}
	}
	return append(out, text[start:])
}

// AnnotateImpact produces the "what it means" text. The general line comes
// from the topic template; the SMB line comes from the first matching pain
// signal group, or the topic template when none match.
func AnnotateImpact(a core.Article, lex *lexicon.Lexicon) core.Impact {
	tmpl := lex.Template(a.Topic)
	impact := core.Impact{GeneralImpact: tmpl.General, SMBImpact: tmpl.SMB}

	text := matchText(a)
	for _, signal := range lex.PainSignals {
		if lexicon.ContainsAny(text, signal.Keywords) {
			impact.SMBImpact = signal.SMBImpact
			break
		}
	}
	return impact
}

// ContentSuggestions proposes follow-up content ideas for viral articles. It
// returns nil below the viral threshold and between one and
// lex.MaxSuggestions entries otherwise.
func ContentSuggestions(a core.Article, lex *lexicon.Lexicon) []string {
	if a.ViralScore < lex.ViralThreshold {
		return nil
	}

	topic := a.Topic
	if topic == "" {
		topic = lex.DefaultTopic
	}
	expand := strings.NewReplacer(
		"{title}", truncateRunes(a.Title, lex.TitleExcerptRunes),
		"{topic}", topic,
	)

	text := matchText(a)
	var suggestions []string
	for _, rule := range lex.SuggestionRules {
		if !lexicon.ContainsAny(text, rule.Keywords) {
			continue
		}
		for _, s := range rule.Suggestions {
			suggestions = append(suggestions, expand.Replace(s))
		}
	}
	if len(suggestions) == 0 {
		for _, s := range lex.FallbackSuggestions {
			suggestions = append(suggestions, expand.Replace(s))
		}
	}

	if len(suggestions) > lex.MaxSuggestions {
		suggestions = suggestions[:lex.MaxSuggestions]
	}
	return suggestions
}
