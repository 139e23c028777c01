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

package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwillc/tracebuild/internal/graph"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	g := graph.New()
	file := graph.NewFileNode("doc.tex")
	file.SetDigest([]byte{1, 2, 3})
	file.SetDirty(false)

	cmd := graph.NewCommandNode("lualatex -pdf doc.tex", []*regexp.Regexp{regexp.MustCompile(`\.log$`)})
	cmd.SetStatus(0)
	cmd.SetDirty(false)

	g.Add(file)
	g.Add(cmd)
	g.AddDependency(cmd, file)

	path := filepath.Join(t.TempDir(), "state.bin")
	require.NoError(t, Save(path, g))

	restored, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, restored.Len())

	rfile := restored.Find(graph.KindFile, "doc.tex")
	rcmd := restored.Find(graph.KindCommand, "lualatex -pdf doc.tex")
	require.NotNil(t, rfile)
	require.NotNil(t, rcmd)

	assert.Equal(t, []byte{1, 2, 3}, rfile.Digest())
	assert.False(t, rfile.Dirty())
	assert.Equal(t, 0, rcmd.Status())
	assert.True(t, rcmd.HasDep(rfile))
	assert.Contains(t, rfile.Influences(), rcmd)
	require.Len(t, rcmd.Ignore(), 1)
	assert.Equal(t, `\.log$`, rcmd.Ignore()[0].String())
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.bin")

	doc := document{StateVersion: Version + 1}
	buf, err := json.Marshal(doc)
	require.NoError(t, err)

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write(buf)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	_, err = Load(path)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
