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

package tracer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdmitsInTreePaths(t *testing.T) {
	log := strings.Join([]string{
		`1234 openat(AT_FDCWD, "/proj/doc.tex", O_RDONLY) = 3`,
		`1234 openat(AT_FDCWD, "/proj/chapters/one.tex", O_RDONLY) = 4`,
		`1234 open("/etc/passwd", O_RDONLY) = 5`,
		`1234 stat("/proj/doc.aux", {...}) = 0`,
		`not a trace line at all`,
	}, "\n")

	paths, err := Parse(strings.NewReader(log), "/proj")
	require.NoError(t, err)

	assert.Equal(t, map[string]struct{}{
		"doc.tex":             {},
		"chapters/one.tex":    {},
		"doc.aux":             {},
	}, paths)
}

func TestParseDropsOutOfTreePaths(t *testing.T) {
	log := `1234 openat(AT_FDCWD, "/other/file.tex", O_RDONLY) = 3` + "\n"
	paths, err := Parse(strings.NewReader(log), "/proj")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestParseIgnoresUnrecognizedSyscalls(t *testing.T) {
	log := `1234 close(3) = 0` + "\n"
	paths, err := Parse(strings.NewReader(log), "/proj")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestCommonPrefixIsStringWise(t *testing.T) {
	// Deliberately not path-component-aware: "/base" is a prefix of
	// "/basement/x" even though "basement" is a sibling directory, matching
	// the Python reference's os.path.commonprefix semantics.
	assert.Equal(t, "/base", commonPrefix("/base", "/basement/x"))
}
