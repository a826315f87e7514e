// Package heuristics loads the rule corpus and persona profiles that shape
// every audit prompt.
//
// The library is immutable once loaded and is shared by pointer between
// requests.
package heuristics

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed heuristics.yaml
var defaultCorpus []byte

// Rule is one heuristic the model checks screens against.
type Rule struct {
	ID          string `yaml:"id" json:"id"`
	Principle   string `yaml:"principle" json:"principle"`
	Category    string `yaml:"category" json:"category"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

// Category is an audit category and its display icon.
type Category struct {
	Name string `yaml:"name" json:"name"`
	Icon string `yaml:"icon" json:"icon"`
}

// Persona is an evaluation point of view. Weights scale the importance of
// each category in the prompt.
type Persona struct {
	ID      string             `yaml:"id" json:"id"`
	Name    string             `yaml:"name" json:"name"`
	Focus   string             `yaml:"focus" json:"focus"`
	Tone    string             `yaml:"tone" json:"tone"`
	Weights map[string]float64 `yaml:"weights" json:"weights"`
}

// Library is the loaded corpus.
type Library struct {
	DefaultPersona string     `yaml:"default_persona"`
	Categories     []Category `yaml:"categories"`
	Rules          []Rule     `yaml:"rules"`
	Personas       []Persona  `yaml:"personas"`

	personas map[string]*Persona
	icons    map[string]string
}

// Load parses the embedded corpus.
func Load() (*Library, error) {
	return Parse(defaultCorpus)
}

// MustLoad is like Load but panics on error. The embedded corpus is part of
// the binary, so a failure here is a build defect.
func MustLoad() *Library {
	lib, err := Load()
	if err != nil {
		panic(err)
	}
	return lib
}

// LoadFile parses a corpus from path. An empty path loads the embedded corpus.
func LoadFile(path string) (*Library, error) {
	if path == "" {
		return Load()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lib, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return lib, nil
}

// Parse decodes and validates a YAML corpus.
func Parse(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, err
	}
	if err := lib.validate(); err != nil {
		return nil, err
	}

	lib.personas = make(map[string]*Persona, len(lib.Personas))
	for i := range lib.Personas {
		lib.personas[lib.Personas[i].ID] = &lib.Personas[i]
	}
	lib.icons = make(map[string]string, len(lib.Categories))
	for _, c := range lib.Categories {
		lib.icons[strings.ToLower(c.Name)] = c.Icon
	}
	return &lib, nil
}

func (l *Library) validate() error {
	if len(l.Rules) == 0 {
		return errors.New("no rules defined")
	}
	if len(l.Personas) == 0 {
		return errors.New("no personas defined")
	}

	seen := make(map[string]bool, len(l.Personas))
	for _, p := range l.Personas {
		if p.ID == "" {
			return errors.New("persona without id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate persona %q", p.ID)
		}
		seen[p.ID] = true
	}

	if l.DefaultPersona == "" {
		l.DefaultPersona = l.Personas[0].ID
	}
	if !seen[l.DefaultPersona] {
		return fmt.Errorf("default persona %q is not defined", l.DefaultPersona)
	}
	return nil
}

// Persona returns the profile for id. Unknown or empty ids resolve to the
// default persona.
func (l *Library) Persona(id string) *Persona {
	if p, ok := l.personas[strings.TrimSpace(id)]; ok {
		return p
	}
	return l.personas[l.DefaultPersona]
}

// HasPersona reports whether id names a defined persona.
func (l *Library) HasPersona(id string) bool {
	_, ok := l.personas[id]
	return ok
}

// Icon returns the display icon for a category name, or "" when unknown.
func (l *Library) Icon(category string) string {
	return l.icons[strings.ToLower(strings.TrimSpace(category))]
}

// RulesText renders the corpus as a prompt section, grouped by category.
func (l *Library) RulesText() string {
	byCategory := make(map[string][]Rule)
	var order []string
	for _, r := range l.Rules {
		if _, ok := byCategory[r.Category]; !ok {
			order = append(order, r.Category)
		}
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	var b strings.Builder
	for _, cat := range order {
		fmt.Fprintf(&b, "## %s\n", cat)
		for _, r := range byCategory[cat] {
			fmt.Fprintf(&b, "- [%s] %s (%s): %s\n", r.ID, r.Title, r.Principle, r.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// WeightsText renders a persona's category weights, highest first.
func (p *Persona) WeightsText() string {
	type kv struct {
		k string
		v float64
	}
	list := make([]kv, 0, len(p.Weights))
	for k, v := range p.Weights {
		list = append(list, kv{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].v != list[j].v {
			return list[i].v > list[j].v
		}
		return list[i].k < list[j].k
	})

	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = fmt.Sprintf("%s x%.1f", e.k, e.v)
	}
	return strings.Join(parts, ", ")
}
