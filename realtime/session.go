package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceweb/internal/ctxkeys"
	"github.com/BaSui01/voiceweb/types"
)

// ToolInvoker resolves and runs the tools advertised to the model.
type ToolInvoker interface {
	Schemas() []types.ToolSchema
	Has(name string) bool
	Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Instructions string
	Voice        string
	Modalities   []string
	// ToolTimeout bounds a single tool invocation. Zero means no bound.
	ToolTimeout time.Duration
}

// DefaultModalities are requested when SessionOptions leaves them empty.
var DefaultModalities = []string{"text", "audio"}

// Session drives one realtime conversation: it configures the session, then
// answers function calls with tool output followed by a response trigger.
type Session struct {
	conn   Conn
	tools  ToolInvoker
	opts   SessionOptions
	logger *zap.Logger

	mu       sync.Mutex
	handlers map[string][]func(ServerEvent)
}

// NewSession binds conn to tools.
func NewSession(conn Conn, tools ToolInvoker, opts SessionOptions, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.Modalities) == 0 {
		opts.Modalities = DefaultModalities
	}
	return &Session{
		conn:     conn,
		tools:    tools,
		opts:     opts,
		logger:   logger.With(zap.String("component", "realtime_session")),
		handlers: make(map[string][]func(ServerEvent)),
	}
}

// Channel exposes the outbound half for components that push their own events.
func (s *Session) Channel() Channel { return s.conn }

// On registers fn for server events of the given type.
func (s *Session) On(eventType string, fn func(ServerEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[eventType] = append(s.handlers[eventType], fn)
}

// Configure sends session.update with instructions and tool schemas.
func (s *Session) Configure(ctx context.Context) error {
	s.mu.Lock()
	cfg := SessionConfig{
		Instructions: s.opts.Instructions,
		Modalities:   s.opts.Modalities,
		Voice:        s.opts.Voice,
	}
	s.mu.Unlock()
	if s.tools != nil {
		cfg.Tools = s.tools.Schemas()
	}
	if err := s.conn.Send(ctx, NewSessionUpdate(cfg)); err != nil {
		return &ConnectionError{Stage: StageSession, Err: err}
	}
	s.logger.Info("session configured", zap.Int("tools", len(cfg.Tools)))
	return nil
}

// UpdateInstructions replaces the system instructions and reconfigures the
// live session.
func (s *Session) UpdateInstructions(ctx context.Context, instructions string) error {
	s.mu.Lock()
	s.opts.Instructions = instructions
	s.mu.Unlock()
	return s.Configure(ctx)
}

// Run configures the session and processes server events until ctx ends or
// the connection fails.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Configure(ctx); err != nil {
		return err
	}
	for {
		ev, err := s.conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.conn.State() == StateClosed {
				return fmt.Errorf("realtime connection closed: %w", err)
			}
			s.logger.Warn("dropping unreadable event", zap.Error(err))
			continue
		}
		s.Dispatch(ctx, ev)
	}
}

// Dispatch handles one server event.
func (s *Session) Dispatch(ctx context.Context, ev ServerEvent) {
	switch ev.Type {
	case EventFunctionCallArgumentsDone:
		s.handleFunctionCall(ctx, ev)
	case EventError:
		if ev.Error != nil {
			s.logger.Error("realtime server error",
				zap.String("type", ev.Error.Type),
				zap.String("code", ev.Error.Code),
				zap.String("message", ev.Error.Message))
		}
	}

	s.mu.Lock()
	hs := slices.Clone(s.handlers[ev.Type])
	s.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (s *Session) handleFunctionCall(ctx context.Context, ev ServerEvent) {
	if s.tools == nil || !s.tools.Has(ev.Name) {
		s.logger.Warn("unknown function", zap.String("name", ev.Name), zap.String("call_id", ev.CallID))
		return
	}

	args := json.RawMessage(ev.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	if s.opts.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ToolTimeout)
		defer cancel()
	}

	start := time.Now()
	output, err := s.tools.Invoke(ctxkeys.WithCallID(ctx, ev.CallID), ev.Name, args)
	if err != nil {
		s.logger.Warn("tool call failed",
			zap.String("name", ev.Name),
			zap.String("call_id", ev.CallID),
			zap.Error(err))
		output = failureOutput(err)
	} else {
		s.logger.Info("tool call completed",
			zap.String("name", ev.Name),
			zap.String("call_id", ev.CallID),
			zap.Duration("duration", time.Since(start)))
	}

	if err := s.conn.Send(ctx, NewFunctionCallOutput(ev.CallID, string(output))); err != nil {
		s.logger.Error("send function output failed", zap.String("call_id", ev.CallID), zap.Error(err))
		return
	}
	if err := s.conn.Send(ctx, NewResponseCreate()); err != nil {
		s.logger.Error("send response trigger failed", zap.String("call_id", ev.CallID), zap.Error(err))
	}
}

func failureOutput(err error) json.RawMessage {
	msg := err.Error()
	var te *types.Error
	if errors.As(err, &te) {
		msg = te.Message
	}
	out, _ := json.Marshal(map[string]any{"success": false, "error": msg})
	return out
}
