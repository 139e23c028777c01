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

package digest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.tex")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	d1 := Compute(path)
	d2 := Compute(path)
	require.Len(t, d1, Size)
	assert.True(t, Equal(d1, d2))
}

func TestComputeChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.tex")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	before := Compute(path)

	require.NoError(t, os.WriteFile(path, []byte("world"), 0o644))
	after := Compute(path)

	assert.False(t, Equal(before, after))
}

func TestComputeMissingFile(t *testing.T) {
	dir := t.TempDir()
	d := Compute(filepath.Join(dir, "missing.tex"))
	assert.Nil(t, d)
}

func TestEqualTreatsTwoNilsAsEqual(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.True(t, Equal([]byte{}, nil))
}
