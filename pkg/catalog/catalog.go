// Package catalog defines therapeutic exercises and frameworks and loads them from YAML.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Phase is one ordered step of a framework.
type Phase struct {
	Name       string `yaml:"name" json:"name"`
	AIRole     string `yaml:"ai_role" json:"ai_role"`
	UserAction string `yaml:"user_action" json:"user_action"`
	Processing string `yaml:"processing" json:"processing"`
}

// Framework is a therapeutic method made of ordered phases.
type Framework struct {
	ID            string  `yaml:"id" json:"id"`
	Name          string  `yaml:"name" json:"name"`
	Description   string  `yaml:"description" json:"description"`
	CoreMechanism string  `yaml:"core_mechanism" json:"core_mechanism"`
	Phases        []Phase `yaml:"phases" json:"phases"`
}

// Exercise is a concrete application of a framework to a topic.
type Exercise struct {
	ID               string   `yaml:"id" json:"id"`
	Title            string   `yaml:"title" json:"title"`
	Prompt           string   `yaml:"prompt" json:"prompt"`
	FrameworkID      string   `yaml:"framework" json:"framework_id"`
	Topic            string   `yaml:"topic" json:"topic"`
	Keywords         []string `yaml:"keywords" json:"keywords,omitempty"`
	EstimatedMinutes int      `yaml:"estimated_minutes" json:"estimated_minutes,omitempty"`
}

// Catalog is a set of frameworks and the exercises that use them.
type Catalog struct {
	Frameworks []Framework `yaml:"frameworks"`
	Exercises  []Exercise  `yaml:"exercises"`
}

// Query selects exercises by keyword relevance with optional filters.
type Query struct {
	Topic     string
	Framework string // framework ID or name
	Keywords  []string
	Limit     int
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks IDs are unique, every framework has phases, and every exercise references a known framework.
func (c *Catalog) Validate() error {
	frameworks := make(map[string]bool, len(c.Frameworks))
	for i := range c.Frameworks {
		f := &c.Frameworks[i]
		if f.ID == "" {
			return fmt.Errorf("framework %d has no id", i)
		}
		if frameworks[f.ID] {
			return fmt.Errorf("duplicate framework id %q", f.ID)
		}
		if len(f.Phases) == 0 {
			return fmt.Errorf("framework %q has no phases", f.ID)
		}
		frameworks[f.ID] = true
	}

	exercises := make(map[string]bool, len(c.Exercises))
	for i := range c.Exercises {
		e := &c.Exercises[i]
		if e.ID == "" {
			return fmt.Errorf("exercise %d has no id", i)
		}
		if exercises[e.ID] {
			return fmt.Errorf("duplicate exercise id %q", e.ID)
		}
		if !frameworks[e.FrameworkID] {
			return fmt.Errorf("exercise %q references unknown framework %q", e.ID, e.FrameworkID)
		}
		exercises[e.ID] = true
	}
	return nil
}

// Score counts how many keywords appear in the exercise's searchable text.
func Score(e *Exercise, keywords []string) int {
	haystack := strings.ToLower(strings.Join(append([]string{e.Title, e.Prompt, e.Topic}, e.Keywords...), " "))
	score := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(haystack, kw) {
			score++
		}
	}
	return score
}

// Matches reports whether e passes the query's topic and framework filters.
// frameworkName is the name of e's framework, used when the filter is a name.
func (q Query) Matches(e *Exercise, frameworkName string) bool {
	if q.Topic != "" && !strings.EqualFold(q.Topic, e.Topic) {
		return false
	}
	if q.Framework != "" && !strings.EqualFold(q.Framework, e.FrameworkID) && !strings.EqualFold(q.Framework, frameworkName) {
		return false
	}
	return true
}

// Rank filters candidates by keyword score and returns at most limit exercises, best first.
// With no keywords every candidate is kept in title order.
func Rank(candidates []Exercise, keywords []string, limit int) []Exercise {
	type scored struct {
		ex    Exercise
		score int
	}
	hasKeywords := false
	for _, kw := range keywords {
		if strings.TrimSpace(kw) != "" {
			hasKeywords = true
			break
		}
	}

	ranked := make([]scored, 0, len(candidates))
	for i := range candidates {
		s := Score(&candidates[i], keywords)
		if hasKeywords && s == 0 {
			continue
		}
		ranked = append(ranked, scored{ex: candidates[i], score: s})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].ex.Title < ranked[j].ex.Title
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Exercise, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.ex)
	}
	return out
}
