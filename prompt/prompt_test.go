package prompt

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/voiceweb/config"
)

func TestBuiltins(t *testing.T) {
	assert.Equal(t, []string{"builder", "editor", "ullim"}, Names())

	text, err := Builtin("ullim")
	require.NoError(t, err)
	assert.Contains(t, text, "storeQuestionAnswer")

	text, err = Builtin("builder")
	require.NoError(t, err)
	assert.Contains(t, text, "executeJS")

	_, err = Builtin("nope")
	assert.ErrorIs(t, err, ErrUnknownPrompt)
}

func TestNewLibrary_DefaultsToUllim(t *testing.T) {
	l, err := NewLibrary("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultName, l.Name())
	assert.False(t, l.Overridden())

	want, _ := Builtin(DefaultName)
	assert.Equal(t, want, l.Current())

	changed, err := l.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestNewLibrary_UnknownName(t *testing.T) {
	_, err := NewLibrary("poet", "", nil)
	assert.ErrorIs(t, err, ErrUnknownPrompt)
}

func TestLibrary_OverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.md")
	require.NoError(t, os.WriteFile(path, []byte("  You are terse.\n"), 0644))

	l, err := NewLibrary("editor", path, nil)
	require.NoError(t, err)
	assert.True(t, l.Overridden())
	assert.Equal(t, "You are terse.", l.Current())

	var got []string
	l.OnChange(func(s string) { got = append(got, s) })

	require.NoError(t, os.WriteFile(path, []byte("You are verbose."), 0644))
	changed, err := l.Reload()
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = l.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.Remove(path))
	changed, err = l.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, l.Overridden())

	editor, _ := Builtin("editor")
	assert.Equal(t, []string{"You are verbose.", editor}, got)
}

func TestLibrary_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.md")
	l, err := NewLibrary("builder", path, nil)
	require.NoError(t, err)

	var changes atomic.Int32
	l.OnChange(func(string) { changes.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := l.Watch(ctx, config.WithPollInterval(10*time.Millisecond), config.WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("Speak in haiku."), 0644))
	require.Eventually(t, func() bool { return l.Current() == "Speak in haiku." }, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, changes.Load())
}

func TestLibrary_WatchWithoutOverride(t *testing.T) {
	l, err := NewLibrary("", "", nil)
	require.NoError(t, err)
	w, err := l.Watch(context.Background())
	require.NoError(t, err)
	assert.Nil(t, w)
}
