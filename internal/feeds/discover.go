package feeds

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed niches.yaml
var nichesYAML []byte

var (
	nichesOnce sync.Once
	niches     []Niche
)

// Recommendation is a feed offered by discovery. FromDatabase marks stored
// suggestions as opposed to the curated niche lists.
type Recommendation struct {
	Name         string `yaml:"name" json:"name"`
	URL          string `yaml:"url" json:"url"`
	Description  string `yaml:"description" json:"description"`
	Category     string `yaml:"category" json:"category"`
	FromDatabase bool   `yaml:"-" json:"from_database,omitempty"`
}

// Niche is an audience segment with its curated feeds.
type Niche struct {
	ID          string           `yaml:"id" json:"id"`
	Description string           `yaml:"description" json:"description"`
	Tags        []string         `yaml:"tags" json:"tags"`
	Feeds       []Recommendation `yaml:"feeds" json:"feeds"`
}

// Name is the display form of the niche ID ("professional_services" becomes
// "Professional Services").
func (n Niche) Name() string {
	words := strings.Fields(strings.ReplaceAll(n.ID, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// DiscoveryTags are the tags the discovery surface offers for filtering.
var DiscoveryTags = []string{"ai", "tech", "business", "marketing", "healthcare", "legal", "manufacturing", "saas", "growth"}

// Niches returns the curated niches in table order.
func Niches() []Niche {
	nichesOnce.Do(func() {
		list, err := ParseNiches(nichesYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded niche table is invalid: %v", err))
		}
		niches = list
	})
	out := make([]Niche, len(niches))
	copy(out, niches)
	return out
}

// FindNiche looks a niche up by ID.
func FindNiche(id string) (Niche, bool) {
	for _, n := range Niches() {
		if n.ID == id {
			return n, true
		}
	}
	return Niche{}, false
}

// ParseNiches decodes a YAML niche table. Every niche needs an ID and every
// feed a name and URL.
func ParseNiches(data []byte) ([]Niche, error) {
	var list []Niche
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse niche table: %w", err)
	}
	for i, n := range list {
		if n.ID == "" {
			return nil, fmt.Errorf("niche #%d: id is required", i+1)
		}
		for j, f := range n.Feeds {
			if f.Name == "" || f.URL == "" {
				return nil, fmt.Errorf("niche %s feed #%d: name and url are required", n.ID, j+1)
			}
		}
	}
	return list, nil
}

// SearchCurated returns curated feeds whose name or description contains
// term, case-insensitively, in table order.
func SearchCurated(term string) []Recommendation {
	term = strings.ToLower(strings.TrimSpace(term))
	matches := []Recommendation{}
	if term == "" {
		return matches
	}
	for _, n := range Niches() {
		for _, f := range n.Feeds {
			if strings.Contains(strings.ToLower(f.Name), term) ||
				strings.Contains(strings.ToLower(f.Description), term) {
				matches = append(matches, f)
			}
		}
	}
	return matches
}

// DedupeByURL keeps the first recommendation for each URL.
func DedupeByURL(recs []Recommendation) []Recommendation {
	seen := make(map[string]bool, len(recs))
	out := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}
