package company

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var patternsYAML []byte

// Unknown is the canonical name returned when no pattern matches.
const Unknown = "Unknown"

type patternEntry struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

type patternFile struct {
	Companies []patternEntry `yaml:"companies"`
}

type compiledEntry struct {
	name     string
	patterns []*regexp.Regexp
}

// Extractor maps free text to canonical company names using a
// priority-ordered pattern table. Safe for concurrent use.
type Extractor struct {
	mu      sync.RWMutex
	entries []compiledEntry
	byName  map[string][]*regexp.Regexp
}

// NewExtractor parses the embedded pattern table and precompiles every
// pattern once.
func NewExtractor() (*Extractor, error) {
	var file patternFile
	if err := yaml.Unmarshal(patternsYAML, &file); err != nil {
		return nil, fmt.Errorf("parsing company patterns: %w", err)
	}

	e := &Extractor{byName: make(map[string][]*regexp.Regexp, len(file.Companies))}
	for _, entry := range file.Companies {
		compiled, err := compilePatterns(entry.Patterns)
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", entry.Name, err)
		}
		e.entries = append(e.entries, compiledEntry{name: entry.Name, patterns: compiled})
		e.byName[entry.Name] = compiled
	}
	return e, nil
}

// Extract returns the canonical company name for a title/content pair.
// If target is non-empty and its patterns match, target wins regardless
// of table order. Otherwise the first matching table entry wins, and
// Unknown is returned when nothing matches.
func (e *Extractor) Extract(title, content, target string) string {
	text := strings.ToLower(title + " " + content)

	// 1. Target-first rule: the caller already knows which company it
	// is collecting for.
	if target != "" && e.matchesTarget(text, target) {
		return target
	}

	// 2. Priority scan, first match wins.
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, entry := range e.entries {
		if matchAny(text, entry.patterns) {
			return entry.name
		}
	}
	return Unknown
}

func (e *Extractor) matchesTarget(text, target string) bool {
	if strings.Contains(text, strings.ToLower(target)) {
		return true
	}
	e.mu.RLock()
	patterns, ok := e.byName[target]
	e.mu.RUnlock()
	if !ok {
		compiled, err := compilePatterns([]string{strings.ToLower(target)})
		if err != nil {
			return false
		}
		patterns = compiled
	}
	return matchAny(text, patterns)
}

// AddPatterns registers or replaces the pattern list for a company. New
// companies are appended at the lowest priority.
func (e *Extractor) AddPatterns(name string, patterns []string) error {
	compiled, err := compilePatterns(patterns)
	if err != nil {
		return fmt.Errorf("company %s: %w", name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.byName[name]; exists {
		for i := range e.entries {
			if e.entries[i].name == name {
				e.entries[i].patterns = compiled
				break
			}
		}
	} else {
		e.entries = append(e.entries, compiledEntry{name: name, patterns: compiled})
	}
	e.byName[name] = compiled
	return nil
}

// Companies lists all canonical names in priority order.
func (e *Extractor) Companies() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.entries))
	for i, entry := range e.entries {
		names[i] = entry.name
	}
	return names
}

// PatternsFor reports whether a company is known and how many patterns
// it carries.
func (e *Extractor) PatternsFor(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.byName[name])
}

// Canonical normalizes a company name: curated names win their canonical
// casing, anything else gets its first letter capitalized.
func (e *Extractor) Canonical(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	if e != nil {
		for _, known := range e.Companies() {
			if strings.EqualFold(known, trimmed) {
				return known
			}
		}
	}
	runes := []rune(trimmed)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		// Word boundaries keep substrings like "amazonian" from
		// matching "amazon".
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(strings.ToLower(pattern)) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
