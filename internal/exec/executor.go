// Copyright 2012 Google Inc. All Rights Reserved.
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

// Package exec runs a CommandNode's shell command under a syscall tracer,
// streams its output with a spinner, and hands back the exit status plus
// the set of in-tree paths the trace revealed. This is the teacher's
// SubprocessSet (subprocess.go) generalized from "run a parsed argv" to
// "run one shell command under strace and recover its file footprint".
package exec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/nwillc/tracebuild/internal/tracer"
)

// TraceCmd is the bit-exact tracer invocation prefix specified in
// spec.md §6. The command is appended, then the whole line runs through a
// shell.
const TraceCmd = "strace -e trace=file -f -qq -y -o"

// pollInterval is the idle sleep spec.md §4.5 specifies for the streaming
// loop when neither stream has produced a byte.
const pollInterval = 50 * time.Millisecond

// Result is everything the scheduler needs back from one command run.
type Result struct {
	Status int
	Paths  map[string]struct{}
}

// Runner owns the scratch directory for trace logs and the log file the
// child's stdout/stderr are streamed into.
type Runner struct {
	Basedir string
	TmpDir  string
	Log     io.Writer

	// Stdout is where the spinner and FAILED banner are drawn; defaults to
	// os.Stdout when nil.
	Stdout *os.File
}

func (r *Runner) stdout() *os.File {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

// Run executes command under the tracer and blocks until it exits. If
// stop fires before the child exits, the child process is killed: the
// "scoped cleanup" spec.md §5 describes firing on any exit from the
// executor's scope. A nil stop behaves as if it never fires.
func (r *Runner) Run(command string, stop <-chan struct{}) (Result, error) {
	traceLog := filepath.Join(r.TmpDir, "trace.log")
	full := TraceCmd + " " + traceLog + " " + command

	cmd := exec.Command("sh", "-c", full)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, err
	}
	if err := cmd.Start(); err != nil {
		return Result{}, err
	}

	killed := make(chan struct{})
	if stop != nil {
		go func() {
			select {
			case <-stop:
				if cmd.Process != nil {
					cmd.Process.Kill()
				}
			case <-killed:
			}
		}()
	}

	sp := newSpinner(r.stdout())
	r.stream(stdout, stderr, sp)
	sp.Clear()
	close(killed)

	status := 0
	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			status = exitErr.ExitCode()
		} else {
			return Result{}, err
		}
	}

	if status != 0 {
		color.New(color.FgRed, color.Bold).Fprint(r.stdout(), "FAILED: ")
		fmt.Fprintln(r.stdout(), command)
	}

	tf, err := os.Open(traceLog)
	if err != nil {
		return Result{Status: status, Paths: map[string]struct{}{}}, nil
	}
	defer tf.Close()

	paths, err := tracer.Parse(tf, r.Basedir)
	if err != nil {
		return Result{Status: status, Paths: map[string]struct{}{}}, nil
	}
	return Result{Status: status, Paths: paths}, nil
}

// byteMsg is one byte read from either the child's stdout or stderr.
type byteMsg struct {
	b  byte
	ok bool
}

// stream reads stdout and stderr one byte at a time, non-blockingly with
// respect to each other, appending every byte to the log and advancing
// the spinner. It returns once both streams have closed. Termination
// detection mirrors spec.md §4.5: the loop ends when both streams read
// empty; a 50ms idle tick keeps the spinner alive while waiting.
func (r *Runner) stream(stdout, stderr io.Reader, sp *spinner) {
	out := make(chan byteMsg)
	errc := make(chan byteMsg)
	go pump(stdout, out)
	go pump(stderr, errc)

	open := 2
	for open > 0 {
		select {
		case m, ok := <-out:
			if !ok {
				out = nil
				open--
				continue
			}
			r.writeAndSpin(m.b, sp)
		case m, ok := <-errc:
			if !ok {
				errc = nil
				open--
				continue
			}
			r.writeAndSpin(m.b, sp)
		case <-time.After(pollInterval):
			sp.Tick()
		}
	}
}

func (r *Runner) writeAndSpin(b byte, sp *spinner) {
	r.Log.Write([]byte{b})
	sp.Tick()
}

// pump reads rd one byte at a time and forwards each to ch, closing ch at
// EOF. A nil channel send never happens: the loop in stream sets its local
// reference to nil only after observing !ok, so a closed reader whose
// channel has already been drained is never double-counted.
func pump(rd io.Reader, ch chan<- byteMsg) {
	br := bufio.NewReader(rd)
	for {
		b, err := br.ReadByte()
		if err != nil {
			close(ch)
			return
		}
		ch <- byteMsg{b: b, ok: true}
	}
}
