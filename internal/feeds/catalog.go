package feeds

import (
	"aidigest/internal/core"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var (
	builtinOnce  sync.Once
	builtinFeeds []core.FeedConfig
)

// Builtin returns a copy of the built-in feed catalog in catalog order.
func Builtin() []core.FeedConfig {
	builtinOnce.Do(func() {
		feeds, err := Parse(catalogYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded feed catalog is invalid: %v", err))
		}
		builtinFeeds = feeds
	})
	out := make([]core.FeedConfig, len(builtinFeeds))
	copy(out, builtinFeeds)
	return out
}

// Find looks a feed up by exact name.
func Find(list []core.FeedConfig, name string) (core.FeedConfig, bool) {
	for _, f := range list {
		if f.Name == name {
			return f, true
		}
	}
	return core.FeedConfig{}, false
}

// LoadFile reads a YAML list of feeds.
func LoadFile(path string) ([]core.FeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed list: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML feed list, applying defaults (priority 2, type news)
// and rejecting entries without a name or URL or with duplicate names.
func Parse(data []byte) ([]core.FeedConfig, error) {
	var list []core.FeedConfig
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse feed list: %w", err)
	}

	seen := make(map[string]bool, len(list))
	for i := range list {
		f := &list[i]
		f.Name = strings.TrimSpace(f.Name)
		f.URL = strings.TrimSpace(f.URL)
		if f.Name == "" || f.URL == "" {
			return nil, fmt.Errorf("feed #%d: name and url are required", i+1)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("feed #%d: duplicate name %q", i+1, f.Name)
		}
		seen[f.Name] = true
		if f.Priority == 0 {
			f.Priority = 2
		}
		if f.Category == "" {
			f.Category = "Uncategorized"
		}
		if f.Type == "" {
			f.Type = "news"
		}
	}
	return list, nil
}
