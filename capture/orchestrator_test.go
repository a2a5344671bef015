package capture

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/voiceweb/realtime"
)

// --- Helpers ---

// recordingChannel records sends. closeAfter closes the channel after that
// many successful sends; zero keeps it open.
type recordingChannel struct {
	mu         sync.Mutex
	state      realtime.ReadyState
	sent       []realtime.Event
	sendCalls  int
	closeAfter int
}

func openChannel() *recordingChannel {
	return &recordingChannel{state: realtime.StateOpen}
}

func (c *recordingChannel) State() realtime.ReadyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *recordingChannel) Send(_ context.Context, ev realtime.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendCalls++
	if c.state != realtime.StateOpen {
		return errors.New("channel closed")
	}
	c.sent = append(c.sent, ev)
	if c.closeAfter > 0 && len(c.sent) >= c.closeAfter {
		c.state = realtime.StateClosed
	}
	return nil
}

type countingRecorder struct {
	mu        sync.Mutex
	captures  []string
	fallbacks []string
	encodes   int
	sends     []string
}

func (r *countingRecorder) RecordCapture(path, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures = append(r.captures, path+":"+outcome)
}

func (r *countingRecorder) RecordFallback(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, reason)
}

func (r *countingRecorder) RecordEncode(float64, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encodes++
}

func (r *countingRecorder) RecordChannelSend(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, outcome)
}

func newTestOrchestrator(p SourceProvider, rec Recorder) *Orchestrator {
	m := NewManager(p, ManagerConfig{Constraints: Constraints{MaxWidth: 1920, MaxHeight: 1080}}, nil)
	return NewOrchestrator(m, DefaultBudget(), WithRecorder(rec))
}

// --- Capture ---

func TestOrchestrator_FastPathReusesSource(t *testing.T) {
	p := NewSyntheticProvider(3840, 2160, false)
	rec := &countingRecorder{}
	o := newTestOrchestrator(p, rec)
	ctx := context.Background()

	first := o.Capture(ctx)
	require.True(t, first.Success, first.Detail)
	second := o.Capture(ctx)
	require.True(t, second.Success, second.Detail)

	assert.Equal(t, PathFast, first.Path)
	assert.Equal(t, PathFast, second.Path)
	assert.Equal(t, 1, p.Requests())
	assert.Equal(t, 2, p.Last().Grabs())
	assert.Equal(t, 1920, first.Width)
	assert.Equal(t, 1080, first.Height)
	assert.Equal(t, 3840, first.OriginalWidth)
	assert.Equal(t, 2160, first.OriginalHeight)
	assert.Equal(t, StateDone, o.State())
	assert.Equal(t, []string{"fast:success", "fast:success"}, rec.captures)
	assert.Empty(t, rec.fallbacks)
	assert.Regexp(t, `^Screenshot captured \(1920x1080, \d+KB\)$`, first.Message)
}

func TestOrchestrator_FastDeniedFallsBackToLegacy(t *testing.T) {
	p := NewSyntheticProvider(800, 600, false)
	p.DenyNext(ErrPermissionDenied)
	rec := &countingRecorder{}
	o := newTestOrchestrator(p, rec)

	res := o.Capture(context.Background())

	require.True(t, res.Success, res.Detail)
	assert.Equal(t, PathLegacy, res.Path)
	assert.Equal(t, 2, p.Requests(), "legacy path issues a fresh consent request")
	assert.True(t, p.Last().Stopped(), "legacy source is released right after one shot")
	assert.Nil(t, o.Sources().Current())
	assert.Contains(t, res.Note, "PermissionDenied")
	assert.Equal(t, []string{"PermissionDenied"}, rec.fallbacks)
}

func TestOrchestrator_DoubleDenialIsTerminal(t *testing.T) {
	p := NewSyntheticProvider(800, 600, false)
	p.DenyNext(ErrPermissionDenied, ErrPermissionDenied)
	o := newTestOrchestrator(p, nil)

	res := o.Capture(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, "PermissionDenied", res.Error)
	assert.ErrorIs(t, res.Err, ErrPermissionDenied)
	assert.Equal(t, PathLegacy, res.Path)
	assert.Equal(t, 2, p.Requests(), "exactly one fallback, no retry loop")
	assert.Equal(t, StateFailed, o.State())

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"message": "Screenshot capture failed. Make sure you grant screen sharing permission.",
		"error": "PermissionDenied",
		"detail": "`+res.Detail+`",
		"path": "legacy"
	}`, string(out))
}

func TestOrchestrator_ResultJSONShape(t *testing.T) {
	tests := []struct {
		name    string
		deny    []error
		present []string
		absent  []string
		error   string
	}{
		{
			name: "success",
			present: []string{"success", "width", "height", "originalWidth", "originalHeight",
				"quality", "fileSizeBytes", "message"},
			absent: []string{"error", "detail"},
		},
		{
			name:    "double denial",
			deny:    []error{ErrPermissionDenied, ErrPermissionDenied},
			present: []string{"success", "message", "error"},
			absent:  []string{"width", "height", "fileSizeBytes"},
			error:   "PermissionDenied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewSyntheticProvider(2560, 1440, false)
			p.DenyNext(tt.deny...)
			res := newTestOrchestrator(p, nil).Capture(context.Background())

			raw, err := json.Marshal(res)
			require.NoError(t, err)
			var fields map[string]any
			require.NoError(t, json.Unmarshal(raw, &fields))

			for _, k := range tt.present {
				assert.Contains(t, fields, k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, fields, k)
			}
			assert.Equal(t, res.Success, fields["success"])
			assert.Equal(t, res.Message, fields["message"])
			if tt.error != "" {
				assert.Equal(t, tt.error, fields["error"])
				return
			}
			assert.EqualValues(t, 1920, fields["width"])
			assert.EqualValues(t, 1080, fields["height"])
			assert.EqualValues(t, 2560, fields["originalWidth"])
			assert.EqualValues(t, 1440, fields["originalHeight"])
			assert.EqualValues(t, res.Quality, fields["quality"])
			assert.EqualValues(t, res.FileSizeBytes, fields["fileSizeBytes"])
			assert.LessOrEqual(t, res.FileSizeBytes, DefaultTargetBytes)
		})
	}
}

func TestOrchestrator_GrabFailureReleasesAndFallsBack(t *testing.T) {
	p := NewSyntheticProvider(640, 480, false)
	o := newTestOrchestrator(p, nil)
	ctx := context.Background()

	require.True(t, o.Capture(ctx).Success)
	persistent := p.Last()

	p.FailNextGrab(errors.New("frame dropped"))
	res := o.Capture(ctx)

	require.True(t, res.Success, res.Detail)
	assert.Equal(t, PathLegacy, res.Path)
	assert.True(t, persistent.Stopped(), "failed fast source is released")
	assert.Nil(t, o.Sources().Current())
}

func TestOrchestrator_RevokedSourceFallsBack(t *testing.T) {
	p := NewSyntheticProvider(640, 480, false)
	o := newTestOrchestrator(p, nil)
	ctx := context.Background()

	require.True(t, o.Capture(ctx).Success)
	p.Last().Revoke()
	require.Eventually(t, func() bool { return o.Sources().Current() == nil }, time.Second, 5*time.Millisecond)

	res := o.Capture(ctx)
	require.True(t, res.Success)
	assert.Equal(t, PathFast, res.Path, "a revoked source is re-acquired on the next fast capture")
	assert.Equal(t, 2, p.Requests())
}

func TestOrchestrator_CaptureFastOutcome(t *testing.T) {
	p := NewSyntheticProvider(640, 480, false)
	p.DenyNext(ErrUserCancelled)
	o := newTestOrchestrator(p, nil)

	outcome := o.CaptureFast(context.Background())
	assert.False(t, outcome.Succeeded())
	assert.ErrorIs(t, outcome.Reason, ErrUserCancelled)

	outcome = o.CaptureFast(context.Background())
	require.True(t, outcome.Succeeded())
	assert.Equal(t, PathFast, outcome.Result.Path)
}

func TestOrchestrator_CaptureLegacyAlwaysPrompts(t *testing.T) {
	p := NewSyntheticProvider(640, 480, false)
	o := newTestOrchestrator(p, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res := o.CaptureLegacy(ctx)
		require.True(t, res.Success)
	}
	assert.Equal(t, 3, p.Requests())
	assert.Nil(t, o.Sources().Current())
}

// --- Send ---

func TestOrchestrator_SendOrdersContentThenTrigger(t *testing.T) {
	o := newTestOrchestrator(NewSyntheticProvider(320, 240, false), nil)
	res := o.Capture(context.Background())
	require.True(t, res.Success)

	ch := openChannel()
	report := o.Send(context.Background(), res.Image, "", ch)

	require.True(t, report.Success)
	assert.True(t, report.TriggerSent)
	assert.Equal(t, "Screenshot sent to AI", report.Message)
	require.Len(t, ch.sent, 2)

	item := ch.sent[0]
	assert.Equal(t, realtime.EventConversationItemCreate, item.Type)
	require.NotNil(t, item.Item)
	assert.Equal(t, realtime.RoleUser, item.Item.Role)
	require.Len(t, item.Item.Content, 2)
	assert.Equal(t, DefaultContextMessage, item.Item.Content[0].Text)
	assert.True(t, strings.HasPrefix(item.Item.Content[1].ImageURL, "data:image/jpeg;base64,"))
	assert.Equal(t, realtime.EventResponseCreate, ch.sent[1].Type)
}

func TestOrchestrator_SendOnClosedChannelDoesNotCallSend(t *testing.T) {
	o := newTestOrchestrator(NewSyntheticProvider(64, 48, false), nil)
	img, err := Encode(Gradient(64, 48, false, 1), DefaultBudget())
	require.NoError(t, err)

	for _, state := range []realtime.ReadyState{realtime.StateConnecting, realtime.StateClosing, realtime.StateClosed} {
		ch := &recordingChannel{state: state}
		report := o.Send(context.Background(), img, "hi", ch)

		assert.False(t, report.Success)
		assert.ErrorIs(t, report.Err, ErrChannelUnavailable)
		assert.Equal(t, "Cannot send screenshot - no connection to AI", report.Message)
		assert.Zero(t, ch.sendCalls, "state %s", state)
	}

	report := o.Send(context.Background(), img, "hi", nil)
	assert.ErrorIs(t, report.Err, ErrChannelUnavailable)
}

func TestOrchestrator_ChannelClosesBetweenSends(t *testing.T) {
	rec := &countingRecorder{}
	o := newTestOrchestrator(NewSyntheticProvider(64, 48, false), rec)
	img, err := Encode(Gradient(64, 48, false, 1), DefaultBudget())
	require.NoError(t, err)

	ch := openChannel()
	ch.closeAfter = 1
	report := o.Send(context.Background(), img, "look", ch)

	assert.True(t, report.Success, "the content item was delivered")
	assert.False(t, report.TriggerSent)
	assert.ErrorIs(t, report.Err, ErrChannelClosedMidSend)
	assert.NotEmpty(t, report.Note)
	assert.Equal(t, 1, ch.sendCalls, "trigger send is skipped")
	assert.Equal(t, []string{"trigger_skipped"}, rec.sends)
}

func TestOrchestrator_CaptureAndSend(t *testing.T) {
	o := newTestOrchestrator(NewSyntheticProvider(320, 240, false), nil)
	ch := openChannel()

	res := o.CaptureAndSend(context.Background(), "Analyze this layout", ch)

	require.True(t, res.Success)
	assert.Regexp(t, `^Screenshot captured \(320x240, \d+KB\)\. Screenshot sent to AI$`, res.Message)
	require.Len(t, ch.sent, 2)
	assert.Equal(t, "Analyze this layout", ch.sent[0].Item.Content[0].Text)
}

func TestOrchestrator_CaptureAndSendWithoutChannel(t *testing.T) {
	o := newTestOrchestrator(NewSyntheticProvider(320, 240, false), nil)

	res := o.CaptureAndSend(context.Background(), "", &recordingChannel{state: realtime.StateClosed})

	assert.False(t, res.Success)
	assert.Equal(t, "ChannelUnavailable", res.Error)
	assert.True(t, strings.HasSuffix(res.Message, ". Cannot send screenshot - no connection to AI"))
}
