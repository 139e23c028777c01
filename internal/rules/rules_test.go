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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPlaceholders(t *testing.T) {
	cases := []struct {
		template, path, want string
	}{
		{"lualatex -pdf ?p", "chapters/one.tex", "lualatex -pdf chapters/one.tex"},
		{"makeindex -o ?w.ind ?p", "doc.idx", "makeindex -o doc.ind doc.idx"},
		{"echo ?e", "doc.tex", "echo .tex"},
		{"echo ?d", "chapters/one.tex", "echo chapters"},
		{"echo ?b", "chapters/one.tex", "echo one.tex"},
		{"literal ??p", "doc.tex", "literal ?p"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Expand(c.template, c.path), c.template)
	}
}

func TestTableMatchReturnsAllFiringRules(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Add(`\.tex$`, "command", map[string]string{"command": "lualatex ?p"}, false))
	require.NoError(t, tbl.Add(`doc\.`, "other", map[string]string{"command": "echo ?p"}, true))

	all := tbl.Match("doc.tex", false)
	assert.Len(t, all, 2)

	autoOnly := tbl.Match("doc.tex", true)
	require.Len(t, autoOnly, 1)
	assert.Equal(t, "other", autoOnly[0].Construct)
}

func TestFromConfigRoundTripsLaTeXDefaults(t *testing.T) {
	tbl, err := FromConfig(LaTeXConfigDefaults())
	require.NoError(t, err)

	matches := tbl.Match("thesis.idx", true)
	require.Len(t, matches, 1)
	assert.Equal(t, "makeindex -s gind.ist -o thesis.ind thesis.idx", Expand(matches[0].Args["command"], "thesis.idx"))
}

func TestFromConfigRejectsMalformedEntry(t *testing.T) {
	_, err := FromConfig([]any{"not a mapping"})
	assert.Error(t, err)
}
