// Copyright 2025 CortexAI
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package guard

import (
	"fmt"
	"regexp"
)

// Rule is a single named detection pattern. The Reason is the
// human-readable violation text reported when the pattern matches.
type Rule struct {
	Name   string
	Regex  *regexp.Regexp
	Reason string
}

// Match is one rule hit inside scanned text.
type Match struct {
	Rule *Rule
	// Text is the exact substring that matched.
	Text string
}

// PatternSet holds an ordered, immutable collection of compiled rules.
// Matching is case-insensitive and spans line breaks; a PatternSet has
// no mutable state and is safe for concurrent use.
type PatternSet struct {
	rules []*Rule
}

// RuleSpec is the uncompiled form of a Rule.
type RuleSpec struct {
	Name    string
	Pattern string
	Reason  string
}

// NewPatternSet compiles the given specs in order. Patterns are
// compiled with case-insensitive matching and `.` spanning newlines.
// A malformed pattern is a construction error, never a per-scan one.
func NewPatternSet(specs []RuleSpec) (*PatternSet, error) {
	rules := make([]*Rule, 0, len(specs))
	for _, spec := range specs {
		re, err := regexp.Compile("(?is)" + spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", spec.Name, err)
		}
		rules = append(rules, &Rule{Name: spec.Name, Regex: re, Reason: spec.Reason})
	}
	return &PatternSet{rules: rules}, nil
}

// MustPatternSet compiles the given specs, panicking on error. Use only
// for the fixed built-in catalogs, where a bad pattern is a programming
// mistake.
func MustPatternSet(specs []RuleSpec) *PatternSet {
	ps, err := NewPatternSet(specs)
	if err != nil {
		panic(fmt.Sprintf("guard: %v", err))
	}
	return ps
}

// Rules returns the rules in declaration order.
func (ps *PatternSet) Rules() []*Rule {
	return ps.rules
}

// FindAll returns one Match per rule that hits the text, in rule order.
// A rule contributes at most one match (its first occurrence).
func (ps *PatternSet) FindAll(text string) []Match {
	var matches []Match
	for _, rule := range ps.rules {
		if loc := rule.Regex.FindString(text); loc != "" {
			matches = append(matches, Match{Rule: rule, Text: loc})
		}
	}
	return matches
}

// MatchAny reports whether any rule hits the text.
func (ps *PatternSet) MatchAny(text string) bool {
	for _, rule := range ps.rules {
		if rule.Regex.MatchString(text) {
			return true
		}
	}
	return false
}
