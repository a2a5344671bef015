package prompt

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceweb/config"
)

//go:embed prompts/*.md
var builtin embed.FS

// DefaultName is used when no prompt is configured.
const DefaultName = "ullim"

// ErrUnknownPrompt is returned for a name with no built-in prompt.
var ErrUnknownPrompt = errors.New("unknown prompt")

// Names lists the built-in prompts.
func Names() []string {
	entries, err := builtin.ReadDir("prompts")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".md"))
	}
	sort.Strings(names)
	return names
}

// Builtin returns the built-in prompt called name.
func Builtin(name string) (string, error) {
	data, err := builtin.ReadFile("prompts/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("%w: %q (available: %s)", ErrUnknownPrompt, name, strings.Join(Names(), ", "))
	}
	return strings.TrimSpace(string(data)), nil
}

// Library holds the active system prompt. A non-empty override file
// replaces the built-in text; deleting or emptying the file restores it.
type Library struct {
	mu           sync.RWMutex
	name         string
	base         string
	override     string
	overridePath string
	listeners    []func(string)
	logger       *zap.Logger
}

// NewLibrary selects the built-in prompt name and loads overridePath if set.
func NewLibrary(name, overridePath string, logger *zap.Logger) (*Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if name == "" {
		name = DefaultName
	}
	base, err := Builtin(name)
	if err != nil {
		return nil, err
	}
	l := &Library{
		name:         name,
		base:         base,
		overridePath: overridePath,
		logger:       logger.With(zap.String("component", "prompt")),
	}
	if _, err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Name returns the selected built-in prompt.
func (l *Library) Name() string { return l.name }

// Current returns the override text when present, otherwise the built-in prompt.
func (l *Library) Current() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.override != "" {
		return l.override
	}
	return l.base
}

// Overridden reports whether an override file is in effect.
func (l *Library) Overridden() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.override != ""
}

// OnChange registers fn to receive the new prompt after a Reload changes it.
func (l *Library) OnChange(fn func(string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Reload re-reads the override file. It reports whether the active prompt
// changed. A missing file clears the override.
func (l *Library) Reload() (bool, error) {
	if l.overridePath == "" {
		return false, nil
	}

	var text string
	data, err := os.ReadFile(l.overridePath)
	switch {
	case err == nil:
		text = strings.TrimSpace(string(data))
	case errors.Is(err, os.ErrNotExist):
	default:
		return false, fmt.Errorf("read prompt override: %w", err)
	}

	l.mu.Lock()
	before := l.currentLocked()
	l.override = text
	after := l.currentLocked()
	listeners := slices.Clone(l.listeners)
	l.mu.Unlock()

	if before == after {
		return false, nil
	}
	l.logger.Info("system prompt changed",
		zap.String("path", l.overridePath),
		zap.Bool("overridden", text != ""),
		zap.Int("length", len(after)))
	for _, fn := range listeners {
		fn(after)
	}
	return true, nil
}

func (l *Library) currentLocked() string {
	if l.override != "" {
		return l.override
	}
	return l.base
}

// Watch reloads the override file whenever it changes until ctx ends.
// It is a no-op without an override path.
func (l *Library) Watch(ctx context.Context, opts ...config.WatcherOption) (*config.FileWatcher, error) {
	if l.overridePath == "" {
		return nil, nil
	}
	opts = append([]config.WatcherOption{config.WithWatcherLogger(l.logger)}, opts...)
	w, err := config.NewFileWatcher([]string{l.overridePath}, opts...)
	if err != nil {
		return nil, err
	}
	w.OnChange(func(config.FileEvent) {
		if _, err := l.Reload(); err != nil {
			l.logger.Warn("prompt reload failed", zap.Error(err))
		}
	})
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
