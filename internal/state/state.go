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

// Package state serializes and restores the full dependency graph as one
// versioned JSON document compressed with gzip (klauspost/compress). The
// encoding is text JSON, not a length-prefixed binary format such as
// MessagePack; see DESIGN.md for why encoding/json was chosen.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/klauspost/compress/gzip"

	"github.com/nwillc/tracebuild/internal/graph"
)

// Version is the current on-disk state_version. A mismatch is rejected
// outright; spec.md §6 fixes this to 2.
const Version uint32 = 2

// ErrVersionMismatch is returned by Load when the file's state_version
// does not equal Version.
var ErrVersionMismatch = errors.New("state: incompatible state_version")

type fileState struct {
	Path     string `json:"path"`
	Checksum []byte `json:"checksum"`
}

type commandState struct {
	Command string   `json:"command"`
	Ignores []string `json:"ignores"`
	Status  int      `json:"status"`
}

type nodeRecord struct {
	ID         int      `json:"id"`
	Type       string   `json:"type"`
	Dirty      bool     `json:"dirty"`
	Deps       []int    `json:"deps"`
	Influences []int    `json:"influences"`

	File    *fileState    `json:"state_file,omitempty"`
	Command *commandState `json:"state_command,omitempty"`
}

type document struct {
	StateVersion uint32       `json:"state_version"`
	Actions      []nodeRecord `json:"actions"`
}

const (
	typeFile    = "FileNode"
	typeCommand = "CommandNode"
)

// Save serializes g to path using a write-to-temp-then-rename pattern so
// the on-disk state is never torn, per spec.md §4.9.
func Save(path string, g *graph.Graph) error {
	doc := encode(g)

	buf, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("state: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	gz := gzip.NewWriter(tmp)
	if _, err := gz.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("state: write: %w", err)
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("state: close gzip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("state: rename: %w", err)
	}
	return nil
}

// Load restores a graph previously written by Save. It rejects an
// incompatible state_version outright (ErrVersionMismatch) rather than
// attempting a partial or best-effort restore.
func Load(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("state: open gzip: %w", err)
	}
	defer gz.Close()

	buf, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("state: read: %w", err)
	}

	var doc document
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("state: unmarshal: %w", err)
	}
	if doc.StateVersion != Version {
		return nil, ErrVersionMismatch
	}
	return decode(doc)
}

// encode assigns each node a file-local integer id (stable only within
// this file) and captures its edges by id, per spec.md §4.9's layout.
func encode(g *graph.Graph) document {
	all := g.All()
	ids := make(map[*graph.Node]int, len(all))
	for i, n := range all {
		ids[n] = i
	}

	doc := document{StateVersion: Version, Actions: make([]nodeRecord, 0, len(all))}
	for _, n := range all {
		rec := nodeRecord{ID: ids[n], Dirty: n.Dirty()}
		for _, d := range n.Deps() {
			rec.Deps = append(rec.Deps, ids[d])
		}
		for _, inf := range n.Influences() {
			rec.Influences = append(rec.Influences, ids[inf])
		}

		switch n.Kind() {
		case graph.KindFile:
			rec.Type = typeFile
			rec.File = &fileState{Path: n.Path(), Checksum: n.Digest()}
		case graph.KindCommand:
			rec.Type = typeCommand
			var patterns []string
			for _, re := range n.Ignore() {
				patterns = append(patterns, re.String())
			}
			rec.Command = &commandState{Command: n.Command(), Ignores: patterns, Status: n.Status()}
		}
		doc.Actions = append(doc.Actions, rec)
	}
	return doc
}

// decode is the two-pass restore spec.md §4.9 describes: instantiate every
// node from its State sub-object without running constructor side
// effects, then translate id lists into edges. Only each record's Deps
// list is replayed through AddDependency — Influences is accepted for
// format fidelity with spec.md's layout but is redundant with Deps (it is
// derived, never independently replayed), which keeps invariant 1 true by
// construction rather than by cross-checking two lists that could
// disagree.
func decode(doc document) (*graph.Graph, error) {
	g := graph.New()
	byID := make(map[int]*graph.Node, len(doc.Actions))

	for _, rec := range doc.Actions {
		var n *graph.Node
		switch rec.Type {
		case typeFile:
			if rec.File == nil {
				return nil, fmt.Errorf("state: FileNode record %d missing state", rec.ID)
			}
			n = graph.NewFileNode(rec.File.Path)
			n.SetDigest(rec.File.Checksum)
		case typeCommand:
			if rec.Command == nil {
				return nil, fmt.Errorf("state: CommandNode record %d missing state", rec.ID)
			}
			ignores, err := compileIgnores(rec.Command.Ignores)
			if err != nil {
				return nil, err
			}
			n = graph.NewCommandNode(rec.Command.Command, ignores)
			n.SetStatus(rec.Command.Status)
		default:
			return nil, fmt.Errorf("state: unknown node type %q", rec.Type)
		}
		n.SetDirty(rec.Dirty)
		byID[rec.ID] = n
		g.Add(n)
	}

	for _, rec := range doc.Actions {
		n := byID[rec.ID]
		for _, depID := range rec.Deps {
			dep, ok := byID[depID]
			if !ok {
				return nil, fmt.Errorf("state: record %d references unknown dep %d", rec.ID, depID)
			}
			g.AddDependency(n, dep)
		}
	}
	return g, nil
}

func compileIgnores(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("state: compiling ignore pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
