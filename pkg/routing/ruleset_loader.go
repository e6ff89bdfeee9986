package routing

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
)

// rulesetFile is the on-disk YAML shape a Ruleset is loaded from.
type rulesetFile struct {
	Version string              `yaml:"version"`
	Rules   []ProductIntentRule `yaml:"rules"`
}

// RulesetRef pairs a loaded Ruleset with its content hash, the form
// every audit event's rules_ref points at (§3).
type RulesetRef struct {
	Ruleset Ruleset
	SHA256  string
}

// Loader loads versioned YAML decision tables one file at a time
// (LoadFile) and caches them by version, generalizing the teacher's
// pkg/policyloader.Loader (JSON CEL bundles reloaded from a watched
// directory) to the YAML-encoded, semver-validated product/intent
// rule tables this evaluator consumes. It does not scan or watch a
// directory.
type Loader struct {
	mu   sync.RWMutex
	dir  string
	byID map[string]RulesetRef
}

// NewLoader returns an empty Loader. dir is stored on the Loader but
// never read; rulesets are added only through LoadFile.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, byID: make(map[string]RulesetRef)}
}

// LoadFile loads and caches a single ruleset YAML file.
func (l *Loader) LoadFile(path string) (RulesetRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RulesetRef{}, fmt.Errorf("routing: read ruleset %s: %w", path, err)
	}

	var raw rulesetFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return RulesetRef{}, fmt.Errorf("routing: parse ruleset %s: %w", path, err)
	}
	if _, err := semver.NewVersion(raw.Version); err != nil {
		return RulesetRef{}, fmt.Errorf("routing: ruleset %s has invalid version %q: %w", path, raw.Version, err)
	}

	rs := Ruleset{Version: raw.Version, Rules: raw.Rules}
	sortByPriority(rs.Rules)

	hash, err := canonicalize.CanonicalHash(rs)
	if err != nil {
		return RulesetRef{}, fmt.Errorf("routing: hash ruleset %s: %w", path, err)
	}

	ref := RulesetRef{Ruleset: rs, SHA256: hash}

	l.mu.Lock()
	l.byID[rs.Version] = ref
	l.mu.Unlock()

	return ref, nil
}

// Get returns the cached ruleset for a version, if loaded.
func (l *Loader) Get(version string) (RulesetRef, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ref, ok := l.byID[version]
	return ref, ok
}

// Latest returns the highest-semver loaded ruleset.
func (l *Loader) Latest() (RulesetRef, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var best *semver.Version
	var bestRef RulesetRef
	for version, ref := range l.byID {
		v, err := semver.NewVersion(version)
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRef = ref
		}
	}
	return bestRef, best != nil
}

func sortByPriority(rules []ProductIntentRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
}
