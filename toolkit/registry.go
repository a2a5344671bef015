package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/voiceweb/internal/ctxkeys"
	"github.com/BaSui01/voiceweb/types"
)

// DefaultTimeout bounds a tool call when its metadata sets none.
const DefaultTimeout = 30 * time.Second

// ToolFunc runs a tool with JSON arguments and returns JSON output.
type ToolFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// ToolMetadata describes a registered tool.
type ToolMetadata struct {
	Schema  types.ToolSchema
	Timeout time.Duration
	// RateLimit caps sustained calls per second; zero disables limiting.
	RateLimit rate.Limit
	Burst     int
}

// Recorder observes tool invocations.
type Recorder interface {
	RecordToolCall(name, outcome string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordToolCall(string, string, time.Duration) {}

type entry struct {
	fn      ToolFunc
	meta    ToolMetadata
	limiter *rate.Limiter
}

// Registry holds the tools advertised to the realtime model. Schemas are
// listed in registration order.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	tools    map[string]*entry
	recorder Recorder
	logger   *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRecorder reports every invocation to r.
func WithRecorder(r Recorder) RegistryOption {
	return func(reg *Registry) {
		if r != nil {
			reg.recorder = r
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		tools:    make(map[string]*entry),
		recorder: nopRecorder{},
		logger:   logger.With(zap.String("component", "toolkit")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. The schema name defaults to name and must match it.
func (r *Registry) Register(name string, fn ToolFunc, meta ToolMetadata) error {
	if name == "" || fn == nil {
		return fmt.Errorf("tool name and function are required")
	}
	if meta.Schema.Name == "" {
		meta.Schema.Name = name
	}
	if meta.Schema.Name != name {
		return fmt.Errorf("tool name mismatch: schema.Name=%s, register name=%s", meta.Schema.Name, name)
	}
	if meta.Schema.Type == "" {
		meta.Schema.Type = "function"
	}
	if meta.Timeout == 0 {
		meta.Timeout = DefaultTimeout
	}

	e := &entry{fn: fn, meta: meta}
	if meta.RateLimit > 0 {
		burst := meta.Burst
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(meta.RateLimit, burst)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = e
	r.order = append(r.order, name)

	r.logger.Debug("tool registered", zap.String("name", name), zap.Duration("timeout", meta.Timeout))
	return nil
}

// Unregister removes a tool.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return fmt.Errorf("tool %s not found", name)
	}
	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the tool function and metadata.
func (r *Registry) Get(name string) (ToolFunc, ToolMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]
	if !ok {
		return nil, ToolMetadata{}, fmt.Errorf("tool %s not found", name)
	}
	return e.fn, e.meta, nil
}

// Schemas returns the schemas of all tools in registration order.
func (r *Registry) Schemas() []types.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].meta.Schema)
	}
	return out
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Invoke runs a tool. Errors are *types.Error with code TOOL_NOT_FOUND,
// INVALID_REQUEST, RATE_LIMITED or TOOL_FAILED.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	start := time.Now()

	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		r.recorder.RecordToolCall(name, "not_found", time.Since(start))
		return nil, types.NewError(types.ErrToolNotFound, fmt.Sprintf("tool %s not found", name))
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if !json.Valid(args) {
		r.recorder.RecordToolCall(name, "invalid_arguments", time.Since(start))
		return nil, types.NewError(types.ErrInvalidRequest, "invalid arguments: not valid JSON")
	}

	if e.limiter != nil && !e.limiter.Allow() {
		r.recorder.RecordToolCall(name, "rate_limited", time.Since(start))
		return nil, types.NewError(types.ErrRateLimited, fmt.Sprintf("tool %s called too often", name)).
			WithRetryable(true)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.meta.Timeout)
	defer cancel()

	callID, _ := ctxkeys.CallID(ctx)
	out, err := e.fn(callCtx, args)
	d := time.Since(start)
	if err != nil {
		r.recorder.RecordToolCall(name, "error", d)
		r.logger.Warn("tool failed",
			zap.String("name", name),
			zap.String("call_id", callID),
			zap.Duration("duration", d),
			zap.Error(err))

		var te *types.Error
		if errors.As(err, &te) {
			return nil, te
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, types.NewError(types.ErrToolFailed, fmt.Sprintf("tool %s timed out after %s", name, e.meta.Timeout)).
				WithCause(err).WithRetryable(true)
		}
		return nil, types.NewError(types.ErrToolFailed, err.Error()).WithCause(err)
	}

	r.recorder.RecordToolCall(name, "ok", d)
	r.logger.Debug("tool completed", zap.String("name", name), zap.String("call_id", callID), zap.Duration("duration", d))
	return out, nil
}
