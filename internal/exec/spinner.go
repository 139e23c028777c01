// Copyright 2016 Google Inc. All Rights Reserved.
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

package exec

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// spinnerFrames is the fixed four-phase sequence spec.md §4.5 specifies.
var spinnerFrames = [...]byte{'-', '/', '|', '\\'}

// spinner advances a four-phase spinner on a smart terminal, mirroring the
// teacher's LinePrinter smart-terminal gating (line_printer.go): when
// stdout is not a tty (piped, redirected, CI), printing escape sequences
// just pollutes logs, so the spinner becomes a no-op.
type spinner struct {
	out   *os.File
	smart bool
	frame int
}

func newSpinner(out *os.File) *spinner {
	return &spinner{out: out, smart: isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())}
}

// Tick advances the spinner by one frame and redraws it on the current
// line. Called once per byte of child output, and once per idle poll.
func (s *spinner) Tick() {
	if !s.smart {
		return
	}
	fmt.Fprintf(s.out, "\r%c", spinnerFrames[s.frame%len(spinnerFrames)])
	s.frame++
}

// Clear erases the spinner glyph at end of command.
func (s *spinner) Clear() {
	if !s.smart {
		return
	}
	fmt.Fprint(s.out, "\r \r")
}
