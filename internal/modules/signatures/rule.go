// Package signatures turns YAML rule files into signature plugins.
//
// A rule is a list of conditions over dotted paths into the results mapping.
// Path segments descend into maps; a list fans the remaining path out over
// its elements, and a numeric segment indexes into it.
package signatures

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/example/analysis-worker/internal/plugin"
)

// MatchMode determines how conditions are combined.
type MatchMode string

const (
	MatchAll MatchMode = "all"
	MatchAny MatchMode = "any"
)

// RawCondition is a single condition as written in YAML.
type RawCondition struct {
	Path     string `yaml:"path"`
	Equals   any    `yaml:"equals"`
	Contains string `yaml:"contains"`
	Regex    string `yaml:"regex"`
	Exists   *bool  `yaml:"exists"`
	MinCount *int   `yaml:"minCount"`
}

// RawRule is the YAML representation of a signature.
type RawRule struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Severity    Severity       `yaml:"severity"`
	References  []string       `yaml:"references"`
	Alert       bool           `yaml:"alert"`
	Enabled     *bool          `yaml:"enabled"`
	Requires    string         `yaml:"requires"`
	Match       MatchMode      `yaml:"match"`
	Conditions  []RawCondition `yaml:"conditions"`
}

// Severity accepts either an integer or one of info, low, medium, high,
// critical (0 to 4).
type Severity int

var severityNames = map[string]Severity{
	"info":     0,
	"low":      1,
	"medium":   2,
	"high":     3,
	"critical": 4,
}

func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("severity must be a scalar")
	}
	if n, err := strconv.Atoi(value.Value); err == nil {
		*s = Severity(n)
		return nil
	}
	named, ok := severityNames[strings.ToLower(strings.TrimSpace(value.Value))]
	if !ok {
		return fmt.Errorf("unknown severity %q", value.Value)
	}
	*s = named
	return nil
}

type operator int

const (
	opEquals operator = iota
	opContains
	opRegex
	opExists
	opMinCount
)

type condition struct {
	path     []string
	raw      string
	op       operator
	equals   string
	contains string
	regex    *regexp.Regexp
	exists   bool
	minCount int
}

// Rule is a compiled, immutable rule shared by every signature instance
// built from it.
type Rule struct {
	meta       plugin.SignatureMeta
	mode       MatchMode
	conditions []condition
	keys       []string
}

// Name returns the rule name.
func (r *Rule) Name() string { return r.meta.Name }

// Compile validates raw and prepares it for evaluation.
func Compile(raw RawRule) (*Rule, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return nil, errors.New("rule has no name")
	}
	if len(raw.Conditions) == 0 {
		return nil, errors.Newf("rule %q has no conditions", name)
	}

	mode := MatchMode(strings.ToLower(string(raw.Match)))
	switch mode {
	case "":
		mode = MatchAll
	case MatchAll, MatchAny:
	default:
		return nil, errors.Newf("rule %q: unknown match mode %q", name, raw.Match)
	}

	enabled := true
	if raw.Enabled != nil {
		enabled = *raw.Enabled
	}

	rule := &Rule{
		meta: plugin.SignatureMeta{
			Name:        name,
			Description: raw.Description,
			Severity:    int(raw.Severity),
			References:  raw.References,
			Alert:       raw.Alert,
			Enabled:     enabled,
		},
		mode: mode,
	}

	seen := map[string]bool{}
	for i, rc := range raw.Conditions {
		c, err := compileCondition(rc)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %q condition %d", name, i+1)
		}
		rule.conditions = append(rule.conditions, c)
		if !seen[c.path[0]] {
			seen[c.path[0]] = true
			rule.keys = append(rule.keys, c.path[0])
		}
	}
	return rule, nil
}

func compileCondition(rc RawCondition) (condition, error) {
	path := strings.TrimSpace(rc.Path)
	if path == "" {
		return condition{}, errors.New("missing path")
	}
	c := condition{path: strings.Split(path, "."), raw: path}

	set := 0
	if rc.Equals != nil {
		set++
		want, err := normalizeValue(rc.Equals)
		if err != nil {
			return condition{}, errors.Wrap(err, "equals")
		}
		c.op, c.equals = opEquals, fmt.Sprint(want)
	}
	if rc.Contains != "" {
		set++
		c.op, c.contains = opContains, rc.Contains
	}
	if rc.Regex != "" {
		set++
		re, err := regexp.Compile(rc.Regex)
		if err != nil {
			return condition{}, errors.Wrap(err, "regex")
		}
		c.op, c.regex = opRegex, re
	}
	if rc.Exists != nil {
		set++
		c.op, c.exists = opExists, *rc.Exists
	}
	if rc.MinCount != nil {
		set++
		c.op, c.minCount = opMinCount, *rc.MinCount
	}
	if set != 1 {
		return condition{}, errors.Newf("path %q needs exactly one of equals, contains, regex, exists, minCount", path)
	}
	return c, nil
}

// RuleSignature evaluates a Rule. A new instance is built for every run so
// gathered data is never shared.
type RuleSignature struct {
	rule *Rule
	hits []map[string]any
}

// NewSignature builds a signature plugin for rule.
func NewSignature(rule *Rule) *RuleSignature {
	return &RuleSignature{rule: rule}
}

// Meta implements plugin.Signature.
func (s *RuleSignature) Meta() plugin.SignatureMeta {
	return s.rule.meta
}

// Data implements plugin.DataProvider.
func (s *RuleSignature) Data() any {
	return s.hits
}

// Run implements plugin.Signature. It declines when none of the results keys
// the rule refers to are present.
func (s *RuleSignature) Run(ctx context.Context, results plugin.Results) (bool, error) {
	present := false
	for _, key := range s.rule.keys {
		if _, ok := results[key]; ok {
			present = true
			break
		}
	}
	if !present {
		return false, plugin.ErrNotImplemented
	}

	doc, err := normalize(results)
	if err != nil {
		return false, plugin.WrapProcessingError(err, "normalize results")
	}

	s.hits = nil
	matchedAny := false
	for _, c := range s.rule.conditions {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		values := lookup(doc, c.path)
		ok, hits := c.evaluate(values)
		if ok {
			matchedAny = true
			for _, v := range hits {
				s.hits = append(s.hits, map[string]any{"path": c.raw, "value": v})
			}
			continue
		}
		if s.rule.mode == MatchAll {
			s.hits = nil
			return false, nil
		}
	}

	if s.rule.mode == MatchAny && !matchedAny {
		s.hits = nil
		return false, nil
	}
	return true, nil
}

func (c condition) evaluate(values []any) (bool, []any) {
	switch c.op {
	case opExists:
		return (len(values) > 0) == c.exists, nil
	case opMinCount:
		return len(values) >= c.minCount, nil
	}

	var hits []any
	for _, v := range values {
		switch c.op {
		case opEquals:
			if fmt.Sprint(v) == c.equals {
				hits = append(hits, v)
			}
		case opContains:
			if s, ok := v.(string); ok && strings.Contains(s, c.contains) {
				hits = append(hits, v)
			}
		case opRegex:
			if s, ok := v.(string); ok && c.regex.MatchString(s) {
				hits = append(hits, v)
			}
		}
	}
	return len(hits) > 0, hits
}

// normalize turns arbitrary plugin values into plain JSON data so paths can
// be walked without reflection.
func normalize(results plugin.Results) (map[string]any, error) {
	v, err := normalizeValue(map[string]any(results))
	if err != nil {
		return nil, err
	}
	doc, _ := v.(map[string]any)
	return doc, nil
}

// normalizeValue round-trips v through JSON, keeping numbers as json.Number
// so integers keep their exact decimal form on both sides of a comparison.
func normalizeValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func lookup(node any, path []string) []any {
	if len(path) == 0 {
		if list, ok := node.([]any); ok {
			return list
		}
		if node == nil {
			return nil
		}
		return []any{node}
	}

	switch n := node.(type) {
	case map[string]any:
		child, ok := n[path[0]]
		if !ok {
			return nil
		}
		return lookup(child, path[1:])
	case []any:
		if idx, err := strconv.Atoi(path[0]); err == nil {
			if idx < 0 || idx >= len(n) {
				return nil
			}
			return lookup(n[idx], path[1:])
		}
		var out []any
		for _, elem := range n {
			out = append(out, lookup(elem, path)...)
		}
		return out
	default:
		return nil
	}
}
