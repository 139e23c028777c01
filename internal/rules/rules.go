// Copyright 2011 Google Inc. All Rights Reserved.
//
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

// Package rules maps path patterns to command templates: the command_map
// config key described in spec.md §6.
package rules

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Rule binds a pattern to a command template. Construct is an opaque tag
// carried over from the config entry (plain command, bibliography, index,
// ...); the rule table never interprets it, and the scheduler and CLI
// bootstrap build every CommandNode the same way, from the expanded
// command alone.
type Rule struct {
	Pattern *regexp.Regexp
	Args    map[string]string
	Auto    bool
	Construct string
}

// Table is an ordered list of rules; ordering only matters for the order
// Match returns results in, since all matching rules fire (not first-match,
// per spec.md §4.3).
type Table struct {
	rules []Rule
}

// NewTable returns an empty rule table.
func NewTable() *Table {
	return &Table{}
}

// Add appends a rule. pattern is matched with Regexp.MatchString semantics
// (unanchored search), mirroring Python's re.search.
func (t *Table) Add(pattern string, construct string, args map[string]string, auto bool) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	t.rules = append(t.rules, Rule{Pattern: re, Args: args, Auto: auto, Construct: construct})
	return nil
}

// Match returns every rule whose pattern searches-matches path. If
// autoOnly is set, only rules with Auto == true are considered.
func (t *Table) Match(path string, autoOnly bool) []Rule {
	var out []Rule
	for _, r := range t.rules {
		if autoOnly && !r.Auto {
			continue
		}
		if r.Pattern.MatchString(path) {
			out = append(out, r)
		}
	}
	return out
}

// Expand substitutes the ?p/?w/?e/?d/?b placeholders (and the ??
// self-escape) in template against path, in a single left-to-right pass so
// a substituted value is never itself re-expanded.
func Expand(template, path string) string {
	ext := filepath.Ext(path)
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	without := strings.TrimSuffix(path, ext)

	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '?' || i+1 >= len(template) {
			b.WriteByte(c)
			continue
		}
		switch template[i+1] {
		case '?':
			b.WriteByte('?')
		case 'p':
			b.WriteString(path)
		case 'w':
			b.WriteString(without)
		case 'e':
			b.WriteString(ext)
		case 'd':
			b.WriteString(dir)
		case 'b':
			b.WriteString(base)
		default:
			b.WriteByte(c)
			b.WriteByte(template[i+1])
		}
		i++
	}
	return b.String()
}
