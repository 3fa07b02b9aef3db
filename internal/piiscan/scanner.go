package piiscan

import (
	"fmt"
	"regexp"
	"sort"

	"go.uber.org/zap"
)

// Scanner applies the rule catalog to raw text.
//
// Scan is pure and re-entrant: the scanner holds only compiled patterns and
// can be shared freely across goroutines.
type Scanner struct {
	rules  []*compiledRule
	logger *zap.Logger
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// New creates a Scanner from the given rules. A nil logger disables logging.
func New(rules []Rule, logger *zap.Logger) (*Scanner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	compiled := make([]*compiledRule, 0, len(rules))
	for i, rule := range rules {
		if rule.Kind == "" {
			return nil, fmt.Errorf("rule %d: kind is required", i)
		}
		if rule.Pattern == "" {
			return nil, fmt.Errorf("rule %s: pattern is required", rule.Kind)
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", rule.Kind, err)
		}
		compiled = append(compiled, &compiledRule{Rule: rule, re: re})
	}

	return &Scanner{rules: compiled, logger: logger}, nil
}

// MustNew creates a Scanner, panicking on error. Intended for the default
// catalog, whose patterns are covered by tests.
func MustNew(rules []Rule, logger *zap.Logger) *Scanner {
	s, err := New(rules, logger)
	if err != nil {
		panic(err)
	}
	return s
}

// NewDefault returns a Scanner with the built-in catalog.
func NewDefault(logger *zap.Logger) *Scanner {
	return MustNew(DefaultRules(), logger)
}

// candidate is a raw match before overlap resolution.
type candidate struct {
	start, end int
	rule       *compiledRule
}

// Scan returns masked findings ordered by position. Findings never overlap:
// raw matches from every rule are pooled, sorted by (start ascending,
// severity descending), and swept greedily so that among overlapping
// candidates the earliest-starting, highest-severity one survives.
func (s *Scanner) Scan(text string) []Finding {
	if text == "" {
		return nil
	}

	var pool []candidate
	for _, rule := range s.rules {
		pool = append(pool, s.applyRule(rule, text)...)
	}
	if len(pool) == 0 {
		return nil
	}

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].start != pool[j].start {
			return pool[i].start < pool[j].start
		}
		ri, rj := pool[i].rule.Severity.Rank(), pool[j].rule.Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		// Same start and severity: prefer the longer match.
		return pool[i].end > pool[j].end
	})

	findings := make([]Finding, 0, len(pool))
	lastEnd := 0
	for _, c := range pool {
		if len(findings) > 0 && c.start < lastEnd {
			continue
		}
		findings = append(findings, Finding{
			Kind:        c.rule.Kind,
			Severity:    c.rule.Severity,
			MaskedValue: mask(text[c.start:c.end], c.rule.Mask),
			Offset:      c.start,
			Length:      c.end - c.start,
		})
		lastEnd = c.end
	}
	return findings
}

// applyRule runs one rule over the text. A panic in a pattern or validator
// is contained here so one broken rule never aborts the rest of the scan.
func (s *Scanner) applyRule(rule *compiledRule, text string) (out []candidate) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("pii rule failed, skipping",
				zap.String("kind", rule.Kind),
				zap.Any("panic", r),
			)
			out = nil
		}
	}()

	matches := rule.re.FindAllStringSubmatchIndex(text, -1)
	for _, m := range matches {
		start, end := m[0], m[1]
		if rule.Group > 0 && 2*rule.Group+1 < len(m) && m[2*rule.Group] >= 0 {
			start, end = m[2*rule.Group], m[2*rule.Group+1]
		}
		if start >= end {
			continue
		}
		if rule.Validate != nil && !rule.Validate(text[start:end]) {
			continue
		}
		out = append(out, candidate{start: start, end: end, rule: rule})
	}
	return out
}
