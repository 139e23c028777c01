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

package main

import (
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nwillc/tracebuild/internal/config"
	"github.com/nwillc/tracebuild/internal/exec"
	"github.com/nwillc/tracebuild/internal/graph"
	"github.com/nwillc/tracebuild/internal/logging"
	"github.com/nwillc/tracebuild/internal/rules"
	"github.com/nwillc/tracebuild/internal/sched"
	"github.com/nwillc/tracebuild/internal/state"
	"github.com/nwillc/tracebuild/internal/watch"
)

// exitCode carries spec.md §6's exit status out of RunE, which cobra
// otherwise only lets us turn into "0 or 1 via error".
var exitCode int

func runBuild(cmd *cobra.Command, args []string) error {
	exitCode = 0

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, flagOverrides(cmd))
	if err != nil {
		exitCode = 1
		return err
	}
	logging.Verbose = cfg.Verbose

	tmpdir := cfg.TmpDir
	if tmpdir == "" {
		tmpdir, err = os.MkdirTemp("", "tracebuild-")
		if err != nil {
			exitCode = 1
			return err
		}
		defer os.RemoveAll(tmpdir)
	} else if err := os.MkdirAll(tmpdir, 0o755); err != nil {
		exitCode = 1
		return err
	}

	logFlags := os.O_CREATE | os.O_WRONLY
	if cfg.AppendLog {
		logFlags |= os.O_APPEND
	} else {
		logFlags |= os.O_TRUNC
	}
	logFile, err := os.OpenFile(cfg.Log, logFlags, 0o644)
	if err != nil {
		exitCode = 1
		return err
	}
	defer logFile.Close()

	g, resumed := loadGraph(cfg.State)
	if !resumed {
		if !bootstrap(g, cfg.Rules, args) {
			exitCode = 1
			return errors.New("no rule matches the initial file")
		}
	}

	runner := &exec.Runner{Basedir: cfg.Basedir, TmpDir: tmpdir, Log: logFile}
	scheduler := &sched.Scheduler{
		Graph:     g,
		Rules:     cfg.Rules,
		Runner:    runner,
		Basedir:   cfg.Basedir,
		MaxRounds: cfg.MaxRounds,
		StatePath: cfg.State,
	}

	stop, terminated := armSIGINT()
	scheduler.Stop = stop
	scheduler.Interrupted = terminated

	if cfg.Continuously {
		err = runContinuously(scheduler, cfg, terminated)
	} else {
		_, err = scheduler.Run()
	}
	if err != nil {
		logging.Error("%v", err)
		exitCode = 1
		return err
	}

	for _, n := range g.All() {
		if n.Kind() == graph.KindCommand && n.Status() != 0 {
			exitCode = 1
		}
	}
	return nil
}

// runContinuously drives the scheduler to convergence, then blocks on the
// watcher for the next real change, repeating until terminated() is true
// or the watcher closes; spec.md §4.8.
func runContinuously(s *sched.Scheduler, cfg *config.Config, terminated func() bool) error {
	w, err := watch.New(cfg.Basedir, cfg.ContinuouslyWait)
	if err != nil {
		return err
	}
	defer w.Close()
	s.Suppress = w

	for !terminated() {
		if _, err := s.Run(); err != nil {
			return err
		}
		if terminated() {
			return nil
		}
		if !w.Wait() {
			return nil
		}
	}
	return nil
}

// armSIGINT wires up spec.md §5's cancellation: the first SIGINT sets a
// terminate flag and is the last one this process reacts to; after it,
// SIGINT is ignored for the rest of the process's life.
func armSIGINT() (stop <-chan struct{}, terminated func() bool) {
	ch := make(chan struct{})
	var once sync.Once
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		once.Do(func() { close(ch) })
		signal.Ignore(os.Interrupt)
	}()
	return ch, func() bool {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
}

// loadGraph restores the persisted graph at path. Any failure to load
// (missing file, version mismatch, corrupt record) falls back to a fresh
// graph built from the command-line file list, per spec.md §4.9's "Unknown
// type tag at restore / version mismatch" edge case.
func loadGraph(path string) (g *graph.Graph, resumed bool) {
	if path == "" {
		return graph.New(), false
	}
	if _, err := os.Stat(path); err != nil {
		return graph.New(), false
	}
	loaded, err := state.Load(path)
	if err != nil {
		logging.Warning("restoring %s: %v; bootstrapping from arguments", path, err)
		return graph.New(), false
	}
	return loaded, true
}

// bootstrap seeds g with a FileNode for every initial file and, for every
// command_map rule that matches it (manual bootstrap considers auto and
// non-auto rules alike), a dependent CommandNode. It reports whether any
// rule matched any file.
func bootstrap(g *graph.Graph, table *rules.Table, files []string) bool {
	matched := false
	for _, f := range files {
		fn := canonicalize(g, graph.NewFileNode(f))

		for _, r := range table.Match(f, false) {
			cmdStr := rules.Expand(r.Args["command"], f)
			cn := canonicalize(g, graph.NewCommandNode(cmdStr, nil))
			g.AddDependency(cn, fn)
			matched = true
		}
	}
	return matched
}

// canonicalize adds n to g unless an equivalent node is already present,
// returning whichever node is now the graph's member for that identity.
func canonicalize(g *graph.Graph, n *graph.Node) *graph.Node {
	if existing := g.FindEquivalent(n); existing != nil {
		return existing
	}
	g.Add(n)
	return n
}

// boolFlags/stringFlags name every flag flagOverrides considers, keyed
// the same way they are bound into viper in root.go's init.
var (
	stringFlags = []string{"log", "state"}
	boolFlags   = []string{"append_log", "continuously", "verbose"}
)

// flagOverrides collects the CLI/env layer of spec.md §6's three-layer
// merge. viper is the actual source of truth here: each key was bound to
// its pflag and, via AutomaticEnv, to a TRACEBUILD_-prefixed environment
// variable in root.go's init, so viper.Get* already resolves "did the
// user pass --flag" or "is TRACEBUILD_FLAG set" before falling back to
// the flag's zero-value default. A key is only included in the override
// map when one of those two actually fired; otherwise it is left for the
// config-file/built-in default layers in internal/config to supply, so
// an untouched flag's default never shadows them.
func flagOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	flags := cmd.Flags()

	for _, name := range stringFlags {
		if flags.Changed(name) || envSet(name) {
			overrides[name] = viper.GetString(name)
		}
	}
	for _, name := range boolFlags {
		if flags.Changed(name) || envSet(name) {
			overrides[name] = viper.GetBool(name)
		}
	}
	return overrides
}

// envSet reports whether the TRACEBUILD_-prefixed environment variable
// for a bound key is present, mirroring the mapping AutomaticEnv applies.
func envSet(key string) bool {
	_, ok := os.LookupEnv("TRACEBUILD_" + strings.ToUpper(key))
	return ok
}
