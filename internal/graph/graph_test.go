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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDependencyIsBidirectional(t *testing.T) {
	g := New()
	cmd := NewCommandNode("lualatex doc.tex", nil)
	file := NewFileNode("doc.tex")
	g.Add(cmd)
	g.Add(file)

	g.AddDependency(cmd, file)

	assert.True(t, cmd.HasDep(file))
	assert.Contains(t, file.Influences(), cmd)
}

func TestAddDependencyIsIdempotent(t *testing.T) {
	g := New()
	cmd := NewCommandNode("lualatex doc.tex", nil)
	file := NewFileNode("doc.tex")

	g.AddDependency(cmd, file)
	g.AddDependency(cmd, file)

	assert.Len(t, cmd.Deps(), 1)
	assert.Len(t, file.Influences(), 1)
}

func TestFindEquivalentMatchesByKindAndID(t *testing.T) {
	g := New()
	original := NewFileNode("doc.tex")
	g.Add(original)

	dup := NewFileNode("doc.tex")
	assert.Same(t, original, g.FindEquivalent(dup))

	differentKind := NewCommandNode("doc.tex", nil)
	assert.Nil(t, g.FindEquivalent(differentKind))
}

func TestMergeRedirectsEdgesAndDropsDuplicate(t *testing.T) {
	// canonical is already a graph member (discovered by one command
	// earlier in the round); dup is a second, distinct Node object with
	// the same identity, discovered independently by another command
	// before the round folds it in, per spec.md §4.4's find_equivalent.
	g := New()
	canonical := NewFileNode("doc.tex")
	downstream := NewCommandNode("lualatex doc.tex", nil)
	g.Add(canonical)
	g.Add(downstream)

	dup := NewFileNode("doc.tex")
	g.AddDependency(downstream, dup)
	require.True(t, downstream.HasDep(dup))

	g.Merge(canonical, dup)

	require.Len(t, downstream.Deps(), 1)
	assert.Same(t, canonical, downstream.Deps()[0])
	assert.Empty(t, dup.Influences())
}

func TestPriorityOrdersFilesBeforeCommands(t *testing.T) {
	f := NewFileNode("doc.tex")
	c := NewCommandNode("lualatex doc.tex", nil)
	assert.Less(t, f.Priority(), c.Priority())
}

func TestDirtyNewNodesAreDirtyByConstruction(t *testing.T) {
	assert.True(t, NewFileNode("doc.tex").Dirty())
	assert.True(t, NewCommandNode("lualatex doc.tex", nil).Dirty())
}
