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

// Package logging provides the engine's own diagnostic output: not the
// traced command's stdout/stderr, which the executor streams straight to
// the log file (see internal/exec), but warnings/errors/info about the
// engine's own operation. Shaped after the teacher's util.go
// Fatal/Warning/Error/Info helpers.
package logging

import (
	"fmt"
	"os"
)

// Verbose enables Debug output; set from the --verbose/-v flag.
var Verbose bool

// Fatal prints a message prefixed "tracebuild: fatal: " to stderr and
// exits the process with status 1.
func Fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "tracebuild: fatal: "+format+"\n", args...)
	os.Exit(1)
}

// Warning prints a message prefixed "tracebuild: warning: " to stderr.
func Warning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "tracebuild: warning: "+format+"\n", args...)
}

// Error prints a message prefixed "tracebuild: error: " to stderr.
func Error(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "tracebuild: error: "+format+"\n", args...)
}

// Info prints an informational message to stderr.
func Info(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "tracebuild: "+format+"\n", args...)
}

// Debug prints a message only when Verbose is set.
func Debug(format string, args ...any) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "tracebuild: debug: "+format+"\n", args...)
	}
}
