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

// Package digest computes and compares content hashes of tracked files.
package digest

import (
	"crypto/sha256"
	"io"
	"os"
)

// Size is the length in bytes of a digest produced by Compute.
const Size = sha256.Size

// Compute reads path fully and returns its SHA-256 digest. On any I/O
// failure it returns nil, distinct from any real digest, rather than
// erroring out the whole round. A file that becomes unreadable therefore
// differs from its last real digest once; after that nil is stored, and
// Equal treats it as unchanged while it stays unreadable.
func Compute(path string) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil
	}
	return h.Sum(nil)
}

// Equal reports whether two digests represent the same content. Two nil
// (or empty) digests are considered equal so that two never-read files
// compare as unchanged.
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
