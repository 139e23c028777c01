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

// Package sched implements the fixed-point scheduler: the main loop that
// drives the dependency graph to convergence, described in spec.md §4.7.
// It is the one place that wires Graph, Rules, and Executor together —
// those packages stay decoupled from each other.
package sched

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/nwillc/tracebuild/internal/digest"
	"github.com/nwillc/tracebuild/internal/exec"
	"github.com/nwillc/tracebuild/internal/graph"
	"github.com/nwillc/tracebuild/internal/logging"
	"github.com/nwillc/tracebuild/internal/rules"
	"github.com/nwillc/tracebuild/internal/state"
)

// ErrRoundCapExceeded is returned when the fixed point is not reached
// within MaxRounds rounds; spec.md §4.7 "Bounded" termination.
var ErrRoundCapExceeded = errors.New("sched: round cap exceeded, build did not converge")

// Suppressor is the continuous-mode suppression-set contract (spec.md
// §4.8): a path added just before its digest is re-read so the watcher
// does not re-enqueue the engine's own incidental writes. Paths are passed
// in absolute form (joined onto Basedir), the form the watcher's events
// carry. Outside
// continuous mode, Scheduler.Suppress is nil and every FileNode is always
// eligible.
type Suppressor interface {
	IsSuppressed(path string) bool
	Add(path string)
}

// Runner is the command-execution seam updateCommand drives: run a
// command under trace and report its exit status plus the in-tree paths
// it touched (spec.md §4.5 steps 1-3). *exec.Runner satisfies this; tests
// substitute a stub so updateCommand's discovery/folding logic (steps
// 4-5: new FileNode creation, ignore-pattern filtering, auto-rule
// follow-on spawning) can be exercised without actually invoking strace.
type Runner interface {
	Run(command string, stop <-chan struct{}) (exec.Result, error)
}

// Scheduler owns the graph and drives it to a fixed point.
type Scheduler struct {
	Graph   *graph.Graph
	Rules   *rules.Table
	Runner  Runner
	Basedir string

	// MaxRounds caps total scheduler rounds; 0 disables the cap.
	MaxRounds int

	// StatePath, if non-empty, is where the graph is persisted after every
	// round that changed the graph.
	StatePath string

	// Suppress is consulted/updated for continuous-mode echo suppression;
	// nil when continuous mode is off.
	Suppress Suppressor

	// Interrupted is polled at round boundaries; when it returns true the
	// loop stops cleanly after persisting, as if it had converged, letting
	// the caller distinguish a clean interrupt from a cap-exceeded failure
	// via Result.Interrupted.
	Interrupted func() bool

	// Stop, when non-nil, is handed to the runner on every command
	// invocation so a SIGINT observed mid-command kills the child instead
	// of waiting for it to finish.
	Stop <-chan struct{}
}

// Result summarizes one Run() invocation.
type Result struct {
	Rounds      int
	Interrupted bool
}

// Run drives the graph to a fixed point: repeatedly finds nodes whose
// NeedsUpdate is true, updates them in priority order (files before
// commands), folds newly discovered nodes into the graph, and persists
// after any round that changed something. It returns ErrRoundCapExceeded
// if MaxRounds is reached before convergence.
func (s *Scheduler) Run() (Result, error) {
	rounds := 0
	changed := true
	for changed {
		if s.Interrupted != nil && s.Interrupted() {
			return Result{Rounds: rounds, Interrupted: true}, nil
		}
		if s.MaxRounds > 0 && rounds >= s.MaxRounds {
			return Result{Rounds: rounds}, ErrRoundCapExceeded
		}
		rounds++

		roundChanged, err := s.round()
		if err != nil {
			return Result{Rounds: rounds}, err
		}
		changed = roundChanged

		if changed && s.StatePath != "" {
			if err := state.Save(s.StatePath, s.Graph); err != nil {
				return Result{Rounds: rounds}, fmt.Errorf("sched: persist: %w", err)
			}
		}
	}
	return Result{Rounds: rounds}, nil
}

// round performs one pass of the fixed-point loop and reports whether
// anything changed: a node consumed its dirty state, or a new node was
// folded into the graph.
func (s *Scheduler) round() (bool, error) {
	schedule := s.dueNodes()
	changed := false

	for _, n := range schedule {
		novel, err := s.update(n)
		if err != nil {
			return changed, err
		}
		changed = true // n consumed a dirty/stale state this round

		for _, m := range novel {
			if eq := s.Graph.FindEquivalent(m); eq != nil {
				s.Graph.Merge(eq, m)
			} else if s.Graph.Add(m) {
				changed = true
			}
		}
	}
	return changed, nil
}

// dueNodes returns every node whose NeedsUpdate is true, sorted by
// priority (files before commands), stable on ties.
func (s *Scheduler) dueNodes() []*graph.Node {
	all := s.Graph.All()
	due := make([]*graph.Node, 0, len(all))
	for _, n := range all {
		if s.needsUpdate(n) {
			due = append(due, n)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Priority() < due[j].Priority()
	})
	return due
}

// needsUpdate implements spec.md §4.7: dirty, OR (FileNode only) a digest
// mismatch while the path is not currently suppressed.
func (s *Scheduler) needsUpdate(n *graph.Node) bool {
	if n.Dirty() {
		return true
	}
	if n.Kind() != graph.KindFile {
		return false
	}
	if s.Suppress != nil && s.Suppress.IsSuppressed(s.abs(n.Path())) {
		return false
	}
	current := digest.Compute(s.abs(n.Path()))
	return !digest.Equal(n.Digest(), current)
}

func (s *Scheduler) update(n *graph.Node) ([]*graph.Node, error) {
	if n.Kind() == graph.KindFile {
		return s.updateFile(n)
	}
	return s.updateCommand(n)
}

// updateFile is FileNode.update (spec.md §4.6): recompute digest, store
// it, clear dirty, mark influences dirty. Missing files are tolerated: the
// empty digest is stored like any other, so a file that disappears dirties
// its downstream commands once, and a file that stays missing then
// compares equal to its stored empty digest in needsUpdate.
func (s *Scheduler) updateFile(n *graph.Node) ([]*graph.Node, error) {
	n.SetDirty(false)
	markInfluencesDirty(n)

	if s.Suppress != nil {
		s.Suppress.Add(s.abs(n.Path()))
	}

	d := digest.Compute(s.abs(n.Path()))
	n.SetDigest(d)
	logging.Debug("file changed: %q", n.Path())
	return nil, nil
}

// updateCommand is CommandNode.update (spec.md §4.5 steps 1-5): run under
// trace, register newly observed files and their auto-spawned follow-on
// commands, record exit status, clear dirty, mark influences dirty.
func (s *Scheduler) updateCommand(n *graph.Node) ([]*graph.Node, error) {
	n.SetDirty(false)
	markInfluencesDirty(n)

	res, err := s.Runner.Run(n.Command(), s.Stop)
	if err != nil {
		return nil, fmt.Errorf("sched: running %q: %w", n.Command(), err)
	}
	n.SetStatus(res.Status)

	var novel []*graph.Node
	for path := range res.Paths {
		if n.IgnoresPath(path) {
			continue
		}

		file := s.Graph.Find(graph.KindFile, path)
		fileIsNew := file == nil
		if file == nil {
			file = graph.NewFileNode(path)
		}
		if n.HasDep(file) {
			continue
		}

		s.Graph.AddDependency(n, file)
		if fileIsNew {
			novel = append(novel, file)
		}

		for _, rule := range s.Rules.Match(path, true) {
			cmdStr := rules.Expand(rule.Args["command"], path)
			cmdNode := s.Graph.Find(graph.KindCommand, cmdStr)
			cmdIsNew := cmdNode == nil
			if cmdNode == nil {
				cmdNode = graph.NewCommandNode(cmdStr, nil)
			}
			s.Graph.AddDependency(cmdNode, file)
			if cmdIsNew {
				novel = append(novel, cmdNode)
			}
		}
	}
	return novel, nil
}

func markInfluencesDirty(n *graph.Node) {
	for _, inf := range n.Influences() {
		inf.MarkDirty()
	}
}

func (s *Scheduler) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Basedir, path)
}
