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

// Package config builds the tree-structured configuration described in
// spec.md §6: built-in defaults, patched by an on-disk YAML file, patched
// again by command-line overrides. The three-layer merge with its `?+`
// (patch) and `?-` (remove) key operators is genuine domain logic with no
// off-the-shelf equivalent in the retrieval pack (viper merges whole
// layers, it has no notion of a per-key remove operator), so Merge is
// hand-written. This package decodes the YAML file it is given; binding
// flags and environment through viper happens in cmd/tracebuild, and the
// config file path comes only from the --config flag (no file discovery).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nwillc/tracebuild/internal/rules"
)

// patchPrefix and removePrefix are the key-operator markers spec.md §6
// defines over the config tree.
const (
	patchPrefix  = "?+"
	removePrefix = "?-"
)

// Config is the fully merged, typed view of the tree the core consumes.
type Config struct {
	Basedir          string
	Rules            *rules.Table
	Continuously     bool
	ContinuouslyWait time.Duration
	Log              string
	AppendLog        bool
	MaxRounds        int
	State            string
	TmpDir           string
	Verbose          bool
}

// Defaults returns the built-in layer, spec.md §6's Default column.
func Defaults() map[string]any {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return map[string]any{
		"basedir":           cwd,
		"command_map":       rules.LaTeXConfigDefaults(),
		"continuously":      false,
		"continuously_wait": 0.25,
		"log":               "autotex.log",
		"append_log":        false,
		"max_rounds":        10,
		"state":             ".autotex.state",
		"tmpdir":            "",
		"verbose":           false,
	}
}

// Load merges Defaults(), the YAML file at path (if non-empty and
// present), and overrides (the flag values the CLI layer collected),
// in that order, then decodes the merged tree into a Config.
func Load(path string, overrides map[string]any) (*Config, error) {
	tree := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else {
			var file map[string]any
			if err := yaml.Unmarshal(data, &file); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
			tree = Merge(tree, file)
		}
	}

	tree = Merge(tree, overrides)
	return decode(tree)
}

// Merge applies patch onto base and returns the result; base is not
// mutated. For each key in patch:
//
//   - a bare key replaces base's value outright (or is added if absent);
//   - a `?+`-prefixed key patches the existing subtree/list at the
//     unprefixed key instead of replacing it (maps merge recursively,
//     lists append);
//   - a `?-`-prefixed key deletes the unprefixed key from the result.
//
// Within a list, a bare string element whose value itself starts with
// `?-` removes the first equal element from the base list rather than
// being appended.
func Merge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}

	for k, v := range patch {
		switch {
		case strings.HasPrefix(k, removePrefix):
			delete(out, strings.TrimPrefix(k, removePrefix))

		case strings.HasPrefix(k, patchPrefix):
			key := strings.TrimPrefix(k, patchPrefix)
			out[key] = mergeValue(out[key], v)

		default:
			out[k] = v
		}
	}
	return out
}

// mergeValue patches existing with incoming: maps merge via Merge,
// lists append (honoring ?- element removal), anything else is replaced.
func mergeValue(existing, incoming any) any {
	switch inc := incoming.(type) {
	case map[string]any:
		base, ok := existing.(map[string]any)
		if !ok {
			base = map[string]any{}
		}
		return Merge(base, inc)

	case []any:
		base, _ := existing.([]any)
		return mergeList(base, inc)

	default:
		return incoming
	}
}

func mergeList(base, patch []any) []any {
	out := append([]any{}, base...)
	for _, item := range patch {
		if s, ok := item.(string); ok && strings.HasPrefix(s, removePrefix) {
			target := strings.TrimPrefix(s, removePrefix)
			out = removeListItem(out, target)
			continue
		}
		out = append(out, item)
	}
	return out
}

func removeListItem(list []any, target string) []any {
	for i, item := range list {
		if s, ok := item.(string); ok && s == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func decode(tree map[string]any) (*Config, error) {
	c := &Config{}
	c.Basedir, _ = tree["basedir"].(string)

	commandMap, _ := tree["command_map"].([]any)
	table, err := rules.FromConfig(commandMap)
	if err != nil {
		return nil, err
	}
	c.Rules = table

	c.Continuously, _ = tree["continuously"].(bool)
	c.ContinuouslyWait = toDuration(tree["continuously_wait"])
	c.Log, _ = tree["log"].(string)
	c.AppendLog, _ = tree["append_log"].(bool)
	c.MaxRounds = toInt(tree["max_rounds"])
	c.State, _ = tree["state"].(string)
	c.TmpDir, _ = tree["tmpdir"].(string)
	c.Verbose, _ = tree["verbose"].(bool)
	return c, nil
}

func toDuration(v any) time.Duration {
	switch n := v.(type) {
	case float64:
		return time.Duration(n * float64(time.Second))
	case int:
		return time.Duration(n) * time.Second
	default:
		return 250 * time.Millisecond
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
