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

package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteDOTIncludesNodesAndEdges(t *testing.T) {
	g := New()
	file := NewFileNode("doc.tex")
	cmd := NewCommandNode("lualatex doc.tex", nil)
	g.Add(file)
	g.Add(cmd)
	g.AddDependency(cmd, file)

	var buf strings.Builder
	WriteDOT(&buf, g)
	out := buf.String()

	assert.Contains(t, out, "digraph tracebuild {")
	assert.Contains(t, out, dotID(file))
	assert.Contains(t, out, dotID(cmd))
	assert.Contains(t, out, dotID(file)+`" -> "`+dotID(cmd))
}
