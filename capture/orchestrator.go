package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/voiceweb/realtime"
)

// State is the orchestrator's position in the capture state machine.
type State string

const (
	StateIdle            State = "idle"
	StateAcquiring       State = "acquiring"
	StateCapturing       State = "capturing"
	StateEncoding        State = "encoding"
	StateDone            State = "done"
	StateFastPathFailed  State = "fast_path_failed"
	StateLegacyPrompting State = "legacy_prompting"
	StateLegacyCapturing State = "legacy_capturing"
	StateLegacyEncoding  State = "legacy_encoding"
	StateFailed          State = "failed"
)

// Recorder receives pipeline measurements. internal/metrics.Collector
// satisfies it.
type Recorder interface {
	RecordCapture(path, outcome string, duration time.Duration)
	RecordFallback(reason string)
	RecordEncode(quality float64, bytes, iterations int)
	RecordChannelSend(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCapture(string, string, time.Duration) {}
func (nopRecorder) RecordFallback(string)                       {}
func (nopRecorder) RecordEncode(float64, int, int)              {}
func (nopRecorder) RecordChannelSend(string)                    {}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// Orchestrator runs the fast path over the reusable source and degrades to
// a one-shot legacy capture when the fast path fails. Captures are
// serialized; the source is never shared between concurrent captures.
type Orchestrator struct {
	sources  *Manager
	budget   Budget
	logger   *zap.Logger
	recorder Recorder
	tracer   trace.Tracer

	runMu   sync.Mutex
	stateMu sync.RWMutex
	state   State
}

// NewOrchestrator creates an orchestrator that owns sources.
func NewOrchestrator(sources *Manager, budget Budget, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sources:  sources,
		budget:   budget,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer("voiceweb/capture"),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("component", "capture_orchestrator"))
	return o
}

// Sources exposes the source manager, e.g. for shutdown.
func (o *Orchestrator) Sources() *Manager { return o.sources }

// Budget returns the encode budget in force.
func (o *Orchestrator) Budget() Budget { return o.budget }

// State returns the current state.
func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.stateMu.Lock()
	prev := o.state
	o.state = s
	o.stateMu.Unlock()
	o.logger.Debug("state transition", zap.String("from", string(prev)), zap.String("to", string(s)))
}

// Capture produces one encoded frame, trying the fast path first and the
// legacy path once if the fast path falls back.
func (o *Orchestrator) Capture(ctx context.Context) *Result {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	ctx, span := o.tracer.Start(ctx, "capture.Capture")
	defer span.End()

	o.setState(StateIdle)
	start := time.Now()

	outcome := o.captureFast(ctx)
	if outcome.Succeeded() {
		o.finish(span, outcome.Result, start)
		return outcome.Result
	}

	o.setState(StateFastPathFailed)
	reason := kindName(outcome.Reason)
	o.recorder.RecordFallback(reason)
	span.AddEvent("fallback", trace.WithAttributes(attribute.String("reason", reason)))
	o.logger.Warn("fast capture failed, falling back to legacy capture",
		zap.String("reason", reason),
		zap.Error(outcome.Reason))

	result := o.captureLegacy(ctx)
	if result.Success {
		result.Note = "fast path unavailable (" + reason + "), used one-shot capture"
	}
	o.finish(span, result, start)
	return result
}

// CaptureFast runs only the fast path.
func (o *Orchestrator) CaptureFast(ctx context.Context) FastPathOutcome {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	return o.captureFast(ctx)
}

// CaptureLegacy runs only the legacy path.
func (o *Orchestrator) CaptureLegacy(ctx context.Context) *Result {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	return o.captureLegacy(ctx)
}

func (o *Orchestrator) captureFast(ctx context.Context) FastPathOutcome {
	o.setState(StateAcquiring)
	src, err := o.sources.Acquire(ctx)
	if err != nil {
		return Fallback(err)
	}

	o.setState(StateCapturing)
	frame, err := o.sources.GrabFrame(ctx, src)
	if err != nil {
		o.sources.Release(src)
		return Fallback(err)
	}

	o.setState(StateEncoding)
	img, err := Encode(frame, o.budget)
	if err != nil {
		o.sources.Release(src)
		return Fallback(err)
	}
	o.recorder.RecordEncode(img.Quality, img.Size, img.Iterations)

	o.setState(StateDone)
	return FastSuccess(successResult(img, PathFast))
}

func (o *Orchestrator) captureLegacy(ctx context.Context) *Result {
	fail := func(err error) *Result {
		o.setState(StateFailed)
		o.logger.Error("legacy capture failed", zap.String("kind", kindName(err)), zap.Error(err))
		return failureResult(err, PathLegacy)
	}

	o.setState(StateLegacyPrompting)
	src, err := o.sources.AcquireOnce(ctx)
	if err != nil {
		return fail(err)
	}
	defer o.sources.Release(src)

	o.setState(StateLegacyCapturing)
	frame, err := o.sources.GrabFrame(ctx, src)
	if err != nil {
		return fail(err)
	}

	o.setState(StateLegacyEncoding)
	img, err := Encode(frame, o.budget)
	if err != nil {
		return fail(err)
	}
	o.recorder.RecordEncode(img.Quality, img.Size, img.Iterations)

	o.setState(StateDone)
	return successResult(img, PathLegacy)
}

func (o *Orchestrator) finish(span trace.Span, r *Result, start time.Time) {
	outcome := "success"
	if !r.Success {
		outcome = r.Error
		span.SetStatus(codes.Error, r.Error)
		if r.Err != nil {
			span.RecordError(r.Err)
		}
	}
	span.SetAttributes(
		attribute.String("capture.path", string(r.Path)),
		attribute.Int("capture.width", r.Width),
		attribute.Int("capture.height", r.Height),
		attribute.Int("capture.bytes", r.FileSizeBytes),
		attribute.Float64("capture.quality", r.Quality),
	)
	o.recorder.RecordCapture(string(r.Path), outcome, time.Since(start))
	if r.Success {
		o.logger.Info("screenshot captured",
			zap.String("path", string(r.Path)),
			zap.Int("width", r.Width),
			zap.Int("height", r.Height),
			zap.Int("original_width", r.OriginalWidth),
			zap.Int("original_height", r.OriginalHeight),
			zap.Float64("quality", r.Quality),
			zap.Int("bytes", r.FileSizeBytes))
	}
}

// Send hands img to ch as a user message carrying message, then asks for a
// response. The channel's send primitive is never invoked when ch is not
// open. If the channel closes after the content item went out, the trigger
// is skipped and reported in Note; the content item is not rolled back.
func (o *Orchestrator) Send(ctx context.Context, img *EncodedImage, message string, ch realtime.Channel) SendReport {
	ctx, span := o.tracer.Start(ctx, "capture.Send")
	defer span.End()

	if message == "" {
		message = DefaultContextMessage
	}
	if ch == nil || ch.State() != realtime.StateOpen {
		err := newError("send", ErrChannelUnavailable, nil)
		o.recorder.RecordChannelSend("unavailable")
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn("data channel not available")
		return SendReport{Message: msgChannelDown, Error: kindName(err), Err: err}
	}
	if img == nil {
		err := newError("send", ErrEncodeFailed, errors.New("no image to send"))
		return SendReport{Message: msgSendFailedPrefix, Error: kindName(err), Err: err}
	}

	if err := ch.Send(ctx, realtime.NewImageMessage(message, img.DataURL())); err != nil {
		kind := ErrChannelUnavailable
		if ch.State() != realtime.StateOpen {
			kind = ErrChannelClosedMidSend
		}
		serr := newError("send", kind, err)
		o.recorder.RecordChannelSend("failed")
		span.SetStatus(codes.Error, serr.Error())
		o.logger.Error("send screenshot failed", zap.Error(serr))
		return SendReport{
			Message: fmt.Sprintf("%s: %v", msgSendFailedPrefix, err),
			Error:   kindName(serr),
			Err:     serr,
		}
	}

	report := SendReport{Success: true, Message: msgSent}

	if ch.State() != realtime.StateOpen {
		return o.triggerSkipped(span, report, newError("send", ErrChannelClosedMidSend, nil))
	}
	if err := ch.Send(ctx, realtime.NewResponseCreate()); err != nil {
		return o.triggerSkipped(span, report, newError("send", ErrChannelClosedMidSend, err))
	}

	report.TriggerSent = true
	o.recorder.RecordChannelSend("sent")
	o.logger.Info("screenshot sent", zap.Int("bytes", len(img.Data)))
	return report
}

func (o *Orchestrator) triggerSkipped(span trace.Span, report SendReport, err error) SendReport {
	report.Note = msgTriggerSkipped
	report.Err = err
	o.recorder.RecordChannelSend("trigger_skipped")
	span.AddEvent("trigger_skipped")
	o.logger.Warn("data channel closed before sending response trigger", zap.Error(err))
	return report
}

// CaptureAndSend captures a frame and, on success, sends it with message.
// The returned record combines both steps' messages.
func (o *Orchestrator) CaptureAndSend(ctx context.Context, message string, ch realtime.Channel) *Result {
	result := o.Capture(ctx)
	if !result.Success {
		return result
	}

	report := o.Send(ctx, result.Image, message, ch)
	result.Message = result.Message + ". " + report.Message
	if !report.Success {
		result.Success = false
		result.Error = report.Error
		result.Err = report.Err
		if report.Err != nil {
			result.Detail = report.Err.Error()
		}
	}
	if report.Note != "" {
		if result.Note != "" {
			result.Note += "; "
		}
		result.Note += report.Note
	}
	return result
}
