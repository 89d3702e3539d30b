// Package icp parses free-text ideal customer profile descriptions into a
// structured profile.
package icp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxKeywords = 15

var (
	identityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:i am|we are|i'm|we're)\s+(?:a\s+)?([^.!?\n]+)`),
		regexp.MustCompile(`(?:targeting|serve|help|work with)\s+([^.!?\n]+)`),
		regexp.MustCompile(`(?:my|our)\s+(?:clients|customers|audience)\s+(?:are|include)\s+([^.!?\n]+)`),
	}
	goalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:want to|need to|looking to|trying to|goal is to)\s+([^.!?\n]+)`),
		regexp.MustCompile(`(?:my|our)\s+goals?\s+(?:is|are|include)\s+([^.!?\n]+)`),
	}
	bulletPrefix = regexp.MustCompile(`^[-•*]\s*`)

	painIndicators = []string{
		"struggle", "challenge", "problem", "issue", "pain",
		"frustrated", "difficult", "hard to", "need help with",
	}
	businessTerms = []string{
		"automation", "efficiency", "productivity", "growth", "scale", "revenue",
		"marketing", "sales", "leads", "clients", "customers", "operations",
		"workflow", "process", "technology", "digital", "online", "content",
		"coaching", "consulting", "healthcare", "manufacturing", "legal",
		"accounting", "finance", "real estate", "e-commerce", "saas",
		"ai", "artificial intelligence", "machine learning", "data",
	}
)

// Profile is the structured form of an ICP description.
type Profile struct {
	ParsedFromText        bool                  `json:"parsed_from_text"`
	RawText               string                `json:"raw_text"`
	AudienceOverview      AudienceOverview      `json:"audience_overview"`
	PainPoints            PainPoints            `json:"pain_points"`
	LanguagePatterns      LanguagePatterns      `json:"language_patterns"`
	DesiredTransformation DesiredTransformation `json:"desired_transformation"`
}

type AudienceOverview struct {
	OneSentenceSummary string `json:"one_sentence_summary"`
	PrimaryIdentity    string `json:"primary_identity"`
}

type PainPoints struct {
	TopPains []string `json:"top_pains"`
}

type LanguagePatterns struct {
	KeywordsUsed []string `json:"keywords_used"`
}

type DesiredTransformation struct {
	Outcomes []string `json:"outcomes"`
}

// Parse extracts identity, pains, keywords and goals from text.
func Parse(text string) Profile {
	lower := strings.ToLower(text)
	lines := nonEmptyLines(text)

	p := Profile{
		ParsedFromText:        true,
		RawText:               text,
		PainPoints:            PainPoints{TopPains: []string{}},
		LanguagePatterns:      LanguagePatterns{KeywordsUsed: []string{}},
		DesiredTransformation: DesiredTransformation{Outcomes: []string{}},
	}

	for _, re := range identityPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			p.AudienceOverview.PrimaryIdentity = titleCase(strings.TrimSpace(m[1]))
			break
		}
	}

	for _, line := range lines {
		if !containsAny(strings.ToLower(line), painIndicators) {
			continue
		}
		pain := bulletPrefix.ReplaceAllString(line, "")
		if n := utf8.RuneCountInString(pain); n > 10 && n < 200 {
			p.PainPoints.TopPains = append(p.PainPoints.TopPains, pain)
		}
	}

	for _, term := range businessTerms {
		if len(p.LanguagePatterns.KeywordsUsed) == maxKeywords {
			break
		}
		if strings.Contains(lower, term) {
			p.LanguagePatterns.KeywordsUsed = append(p.LanguagePatterns.KeywordsUsed, term)
		}
	}

	for _, re := range goalPatterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			if n := utf8.RuneCountInString(m[1]); n > 10 && n < 200 {
				p.DesiredTransformation.Outcomes = append(p.DesiredTransformation.Outcomes, capitalize(strings.TrimSpace(m[1])))
			}
		}
	}

	identity := p.AudienceOverview.PrimaryIdentity
	switch {
	case identity != "":
		summary := identity
		if pains := p.PainPoints.TopPains; len(pains) > 0 {
			summary += " who struggle with " + strings.Join(pains[:min(2, len(pains))], " and ")
		}
		p.AudienceOverview.OneSentenceSummary = summary
	case len(lines) > 0:
		p.AudienceOverview.OneSentenceSummary = truncate(lines[0], 200)
	}
	return p
}

// Map returns the profile as a generic JSON object for storage.
func (p Profile) Map() (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return out, nil
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var sb strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		sb.WriteRune(r)
		prevLetter = false
	}
	return sb.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
