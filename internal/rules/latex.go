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

package rules

import "fmt"

// LaTeXDefaults returns the built-in command_map for a LaTeX pipeline: the
// motivating case named in spec.md §1. These are plain data, not engine
// logic — a different command_map could drive an entirely different
// pipeline (the engine itself never special-cases LaTeX).
//
// - .tex bootstraps a lualatex run. It is not auto-spawned (auto: false):
//   the .tex entry point is only ever added manually at startup, matching
//   original_source/autotex/autotex.py's bootstrap-only CommandAction.
// - .idx auto-spawns makeindex, the exact follow-on command scenario D of
//   spec.md §8 describes, and the one command the original source wires.
// - .bib/.aux auto-spawn bibtex. The original source only ever wired the
//   index follow-on; bibtex support is supplemented here because a
//   complete LaTeX pipeline exercises the identical auto-spawn mechanism
//   and nothing in spec.md's Non-goals excludes it.
func LaTeXDefaults() *Table {
	t, err := FromConfig(LaTeXConfigDefaults())
	if err != nil {
		panic(err)
	}
	return t
}

// LaTeXConfigDefaults is the command_map exactly as it appears in the
// config tree (spec.md §6's "LaTeX-oriented defaults"): the single source
// of truth both LaTeXDefaults and config.Defaults build from, so the
// built-in command_map a user sees via config dump matches what the
// engine actually runs with no flags at all.
func LaTeXConfigDefaults() []any {
	return []any{
		map[string]any{"pattern": `\.tex$`, "construct": "command", "command": "lualatex -pdf ?p", "auto": false},
		map[string]any{"pattern": `\.idx$`, "construct": "index", "command": "makeindex -s gind.ist -o ?w.ind ?p", "auto": true},
		map[string]any{"pattern": `\.(bib|aux)$`, "construct": "bibliography", "command": "bibtex ?w", "auto": true},
	}
}

// FromConfig builds a Table from the command_map's generic decoded form:
// a list of maps with string keys pattern/construct/command/auto, the
// shape both an in-memory literal and a YAML-decoded config file produce.
func FromConfig(raw []any) (*Table, error) {
	t := NewTable()
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("rules: command_map entry %d is not a mapping", i)
		}
		pattern, _ := entry["pattern"].(string)
		construct, _ := entry["construct"].(string)
		command, _ := entry["command"].(string)
		auto, _ := entry["auto"].(bool)
		if pattern == "" || command == "" {
			return nil, fmt.Errorf("rules: command_map entry %d missing pattern/command", i)
		}
		if err := t.Add(pattern, construct, map[string]string{"command": command}, auto); err != nil {
			return nil, fmt.Errorf("rules: command_map entry %d: %w", i, err)
		}
	}
	return t, nil
}
