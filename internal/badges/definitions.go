// Package badges unlocks achievements from a finished session or from aggregated stats.
package badges

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"quizmaster/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed default_badges.yaml
var defaultBadgesYAML []byte

// Scope selects the data a badge is evaluated against.
type Scope string

const (
	ScopeSession Scope = "session"
	ScopeGlobal  Scope = "global"
)

// Condition compares one metric of a view with a constant.
type Condition struct {
	Metric string  `yaml:"metric"`
	Op     string  `yaml:"op"`
	Value  float64 `yaml:"value"`
}

// Definition describes a badge. A badge is earned when every condition holds.
type Definition struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	IconURL     string      `yaml:"icon"`
	Scope       Scope       `yaml:"scope"`
	When        []Condition `yaml:"when"`
}

// Info returns the display information of the badge.
func (d Definition) Info() domain.Badge {
	return domain.Badge{ID: d.ID, Name: d.Name, Description: d.Description, IconURL: d.IconURL}
}

type definitionFile struct {
	Badges []Definition `yaml:"badges"`
}

// Default returns the built-in badge set.
func Default() []Definition {
	defs, err := Load(bytes.NewReader(defaultBadgesYAML))
	if err != nil {
		panic(fmt.Sprintf("badges: invalid built-in definitions: %v", err))
	}
	return defs
}

// LoadFile reads badge definitions from a YAML file.
func LoadFile(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and checks badge definitions. Every condition must name a
// metric available in the badge's scope.
func Load(r io.Reader) ([]Definition, error) {
	var file definitionFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode badges: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Badges))
	for _, def := range file.Badges {
		if def.ID == "" {
			return nil, fmt.Errorf("badge without id")
		}
		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("duplicate badge id %q", def.ID)
		}
		seen[def.ID] = struct{}{}
		if err := def.check(); err != nil {
			return nil, err
		}
	}
	return file.Badges, nil
}

func (d Definition) check() error {
	var metrics map[string]struct{}
	switch d.Scope {
	case ScopeSession:
		metrics = SessionMetrics
	case ScopeGlobal:
		metrics = StatsMetrics
	default:
		return fmt.Errorf("badge %q: unknown scope %q", d.ID, d.Scope)
	}
	if len(d.When) == 0 {
		return fmt.Errorf("badge %q: no conditions", d.ID)
	}
	for _, c := range d.When {
		if _, ok := metrics[c.Metric]; !ok {
			return fmt.Errorf("badge %q: metric %q is not available in %s scope", d.ID, c.Metric, d.Scope)
		}
		if _, ok := comparators[c.Op]; !ok {
			return fmt.Errorf("badge %q: unknown operator %q", d.ID, c.Op)
		}
	}
	return nil
}

var comparators = map[string]func(a, b float64) bool{
	">=": func(a, b float64) bool { return a >= b },
	">":  func(a, b float64) bool { return a > b },
	"<=": func(a, b float64) bool { return a <= b },
	"<":  func(a, b float64) bool { return a < b },
	"==": func(a, b float64) bool { return a == b },
	"!=": func(a, b float64) bool { return a != b },
}

func (c Condition) holds(view View) (bool, error) {
	value, ok := view.Metric(c.Metric)
	if !ok {
		return false, fmt.Errorf("metric %q not available", c.Metric)
	}
	cmp, ok := comparators[c.Op]
	if !ok {
		return false, fmt.Errorf("unknown operator %q", c.Op)
	}
	return cmp(value, c.Value), nil
}
