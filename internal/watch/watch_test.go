// Copyright 2025 Benny Powers. Adapted under the GNU General Public
// License, version 3 or later; see <http://www.gnu.org/licenses/>.

package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitWakesOnUnsuppressedChange(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.tex")
	require.NoError(t, os.WriteFile(target, []byte("v1"), 0o644))

	w, err := New(dir, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	woken := make(chan bool, 1)
	go func() { woken <- w.Wait() }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(target, []byte("v2"), 0o644))

	select {
	case ok := <-woken:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait never returned after an unsuppressed change")
	}
}

func TestSuppressedPathDoesNotWake(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.tex")
	require.NoError(t, os.WriteFile(target, []byte("v1"), 0o644))

	w, err := New(dir, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	w.Add(target)
	assert.True(t, w.IsSuppressed(target))

	woken := make(chan bool, 1)
	go func() { woken <- w.Wait() }()

	require.NoError(t, os.WriteFile(target, []byte("v2"), 0o644))

	select {
	case <-woken:
		t.Fatal("Wait returned for a suppressed write")
	case <-time.After(200 * time.Millisecond):
		// expected: no wakeup within the window
	}
}

func TestCloseReleasesWait(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 20*time.Millisecond)
	require.NoError(t, err)

	woken := make(chan bool, 1)
	go func() { woken <- w.Wait() }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, w.Close())

	select {
	case ok := <-woken:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait never returned after Close")
	}
}
