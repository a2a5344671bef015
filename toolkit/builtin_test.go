package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/voiceweb/answers"
	"github.com/BaSui01/voiceweb/capture"
	"github.com/BaSui01/voiceweb/page"
	"github.com/BaSui01/voiceweb/realtime"
	"github.com/BaSui01/voiceweb/types"
)

type fakePage struct {
	js     []string
	styles [][2]string
	html   string
	err    error
}

func (p *fakePage) ExecuteJS(_ context.Context, js string) (*page.ExecResult, error) {
	p.js = append(p.js, js)
	if p.err != nil {
		return nil, p.err
	}
	return &page.ExecResult{Success: true, Message: "JavaScript executed successfully", CurrentDOM: "<div></div>"}, nil
}

func (p *fakePage) PageHTML(context.Context) (string, error) { return p.html, p.err }

func (p *fakePage) SetBodyStyle(_ context.Context, property, value string) error {
	p.styles = append(p.styles, [2]string{property, value})
	return p.err
}

type fakeCapturer struct {
	messages []string
	channels []realtime.Channel
}

func (c *fakeCapturer) CaptureAndSend(_ context.Context, message string, ch realtime.Channel) *capture.Result {
	c.messages = append(c.messages, message)
	c.channels = append(c.channels, ch)
	return &capture.Result{Success: true, Width: 1920, Height: 1080, Message: "Screenshot captured (1920x1080, 120KB). Screenshot sent to AI"}
}

type nopChannel struct{}

func (nopChannel) State() realtime.ReadyState                 { return realtime.StateOpen }
func (nopChannel) Send(context.Context, realtime.Event) error { return nil }

func fullRegistry(t *testing.T) (*Registry, *fakePage, *fakeCapturer) {
	t.Helper()
	p := &fakePage{html: "<html><body></body></html>"}
	c := &fakeCapturer{}
	r := NewRegistry(nil)
	require.NoError(t, RegisterBuiltins(r, Deps{
		Page:     p,
		Capturer: c,
		Channel:  func() realtime.Channel { return nopChannel{} },
		Answers:  answers.NewMemoryStore(),
	}))
	return r, p, c
}

func TestRegisterBuiltins_AllTools(t *testing.T) {
	r, _, _ := fullRegistry(t)

	var names []string
	for _, s := range r.Schemas() {
		names = append(names, s.Name)
		assert.Equal(t, "function", s.Type)
		assert.NotEmpty(t, s.Description)
		assert.True(t, json.Valid(s.Parameters), s.Name)
	}
	assert.Equal(t, []string{
		ToolCaptureScreenshot, ToolExecuteJS, ToolGetPageHTML,
		ToolChangeBackgroundColor, ToolChangeTextColor, ToolStoreQuestionAnswer,
	}, names)
}

func TestRegisterBuiltins_OnlyWhatDepsServe(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, RegisterBuiltins(r, Deps{Answers: answers.NewMemoryStore()}))
	assert.Equal(t, []string{ToolStoreQuestionAnswer}, []string{r.Schemas()[0].Name})
	assert.Len(t, r.Schemas(), 1)
}

func TestExecuteJSSchemaRequiresJS(t *testing.T) {
	r, _, _ := fullRegistry(t)
	_, meta, err := r.Get(ToolExecuteJS)
	require.NoError(t, err)

	var s types.JSONSchema
	require.NoError(t, json.Unmarshal(meta.Schema.Parameters, &s))
	assert.Equal(t, []string{"js"}, s.Required)
	assert.Equal(t, types.SchemaTypeString, s.Properties["js"].Type)
}

func TestCaptureScreenshotTool(t *testing.T) {
	r, _, c := fullRegistry(t)

	out, err := r.Invoke(context.Background(), ToolCaptureScreenshot, json.RawMessage(`{"message":"How does this look?"}`))
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Equal(t, true, res["success"])
	assert.EqualValues(t, 1920, res["width"])
	assert.Equal(t, []string{"How does this look?"}, c.messages)
	assert.NotNil(t, c.channels[0])
}

func TestExecuteJSTool(t *testing.T) {
	r, p, _ := fullRegistry(t)
	ctx := context.Background()

	out, err := r.Invoke(ctx, ToolExecuteJS, json.RawMessage(`{"js":"window.x = 1;"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"JavaScript executed successfully","currentDOM":"<div></div>"}`, string(out))
	assert.Equal(t, []string{"window.x = 1;"}, p.js)

	_, err = r.Invoke(ctx, ToolExecuteJS, json.RawMessage(`{}`))
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))

	p.err = errors.New("browser gone")
	_, err = r.Invoke(ctx, ToolExecuteJS, json.RawMessage(`{"js":"1"}`))
	assert.True(t, types.IsErrorCode(err, types.ErrToolFailed))
}

func TestGetPageHTMLTool(t *testing.T) {
	r, _, _ := fullRegistry(t)
	out, err := r.Invoke(context.Background(), ToolGetPageHTML, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"html":"<html><body></body></html>"}`, string(out))
}

func TestColorTools(t *testing.T) {
	r, p, _ := fullRegistry(t)
	ctx := context.Background()

	out, err := r.Invoke(ctx, ToolChangeBackgroundColor, json.RawMessage(`{"color":"#ff0000"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"color":"#ff0000"}`, string(out))

	_, err = r.Invoke(ctx, ToolChangeTextColor, json.RawMessage(`{"color":"#00ff00"}`))
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{"backgroundColor", "#ff0000"}, {"color", "#00ff00"}}, p.styles)

	_, err = r.Invoke(ctx, ToolChangeTextColor, json.RawMessage(`{"color":""}`))
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestStoreQuestionAnswerTool(t *testing.T) {
	r, _, _ := fullRegistry(t)
	ctx := context.Background()

	out, err := r.Invoke(ctx, ToolStoreQuestionAnswer, json.RawMessage(`{"question":"Favorite color?","answer":"blue"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"stored":1}`, string(out))

	out, err = r.Invoke(ctx, ToolStoreQuestionAnswer, json.RawMessage(`{"question":"Favorite color?","answer":"green"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"stored":1}`, string(out))

	out, err = r.Invoke(ctx, ToolStoreQuestionAnswer, json.RawMessage(`{"question":"Favorite animal?","answer":"owl"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"stored":2}`, string(out))

	_, err = r.Invoke(ctx, ToolStoreQuestionAnswer, json.RawMessage(`{"question":" ","answer":"x"}`))
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}
