package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/voiceweb/answers"
	"github.com/BaSui01/voiceweb/capture"
	"github.com/BaSui01/voiceweb/page"
	"github.com/BaSui01/voiceweb/realtime"
	"github.com/BaSui01/voiceweb/types"
)

// Tool names advertised to the model.
const (
	ToolCaptureScreenshot     = "captureScreenshot"
	ToolExecuteJS             = "executeJS"
	ToolGetPageHTML           = "getPageHTML"
	ToolChangeBackgroundColor = "changeBackgroundColor"
	ToolChangeTextColor       = "changeTextColor"
	ToolStoreQuestionAnswer   = "storeQuestionAnswer"
)

// Page is the browser surface the DOM tools act on.
type Page interface {
	ExecuteJS(ctx context.Context, js string) (*page.ExecResult, error)
	PageHTML(ctx context.Context) (string, error)
	SetBodyStyle(ctx context.Context, property, value string) error
}

// Capturer captures a screenshot and sends it over ch.
type Capturer interface {
	CaptureAndSend(ctx context.Context, message string, ch realtime.Channel) *capture.Result
}

// Deps wires the built-in tools. A tool is registered only when the
// dependencies it needs are present.
type Deps struct {
	Page     Page
	Capturer Capturer
	// Channel returns the live realtime channel at call time.
	Channel func() realtime.Channel
	Answers answers.Store
	// CaptureTimeout bounds captureScreenshot, which may wait on a consent prompt.
	CaptureTimeout time.Duration
}

// RegisterBuiltins registers every tool deps can serve.
func RegisterBuiltins(r *Registry, deps Deps) error {
	var regs []func(*Registry, Deps) error
	if deps.Capturer != nil && deps.Channel != nil {
		regs = append(regs, registerCapture)
	}
	if deps.Page != nil {
		regs = append(regs, registerPage)
	}
	if deps.Answers != nil {
		regs = append(regs, registerAnswers)
	}
	for _, reg := range regs {
		if err := reg(r, deps); err != nil {
			return err
		}
	}
	return nil
}

func schema(name, description string, params *types.JSONSchema) types.ToolSchema {
	raw, _ := params.ToJSON()
	return types.ToolSchema{Type: "function", Name: name, Description: description, Parameters: raw}
}

func decodeArgs(args json.RawMessage, dst any) error {
	if err := json.Unmarshal(args, dst); err != nil {
		return types.NewError(types.ErrInvalidRequest, "invalid arguments: "+err.Error())
	}
	return nil
}

func missing(field string) error {
	return types.NewError(types.ErrInvalidRequest, fmt.Sprintf("missing required argument %q", field))
}

func output(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool output: %w", err)
	}
	return data, nil
}

// --- captureScreenshot ---

func registerCapture(r *Registry, deps Deps) error {
	params := types.NewObjectSchema().
		AddProperty("message", types.NewStringSchema().WithDescription(
			`Optional message to send with the screenshot (e.g., "What do you see?", "Analyze this layout"). Default: "`+capture.DefaultContextMessage+`"`))

	timeout := deps.CaptureTimeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	return r.Register(ToolCaptureScreenshot, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			Message string `json:"message"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return output(deps.Capturer.CaptureAndSend(ctx, in.Message, deps.Channel()))
	}, ToolMetadata{
		Schema: schema(ToolCaptureScreenshot,
			"Capture a screenshot of the current page and send it for visual analysis. Automatically optimizes resolution and file size.",
			params),
		Timeout:   timeout,
		RateLimit: 1,
		Burst:     2,
	})
}

// --- page tools ---

func registerPage(r *Registry, deps Deps) error {
	p := deps.Page

	jsParams := types.NewObjectSchema().
		AddProperty("js", types.NewStringSchema().WithDescription(
			"JavaScript code to execute. Save variables on window and assign element IDs for later access.")).
		AddRequired("js")
	if err := r.Register(ToolExecuteJS, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			JS string `json:"js"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.JS) == "" {
			return nil, missing("js")
		}
		res, err := p.ExecuteJS(ctx, in.JS)
		if err != nil {
			return nil, err
		}
		return output(res)
	}, ToolMetadata{
		Schema: schema(ToolExecuteJS,
			"Execute JavaScript code to build or modify the current page. Returns the updated DOM and any runtime errors raised shortly after execution.",
			jsParams),
	}); err != nil {
		return err
	}

	if err := r.Register(ToolGetPageHTML, func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		html, err := p.PageHTML(ctx)
		if err != nil {
			return nil, err
		}
		return output(map[string]any{"success": true, "html": html})
	}, ToolMetadata{
		Schema: schema(ToolGetPageHTML, "Gets the HTML for the current page", types.NewObjectSchema()),
	}); err != nil {
		return err
	}

	for _, c := range []struct {
		name, property, description string
	}{
		{ToolChangeBackgroundColor, "backgroundColor", "Changes the background color of a web page"},
		{ToolChangeTextColor, "color", "Changes the text color of a web page"},
	} {
		params := types.NewObjectSchema().
			AddProperty("color", types.NewStringSchema().WithDescription("A hex value of the color")).
			AddRequired("color")
		if err := r.Register(c.name, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Color string `json:"color"`
			}
			if err := decodeArgs(args, &in); err != nil {
				return nil, err
			}
			if in.Color == "" {
				return nil, missing("color")
			}
			if err := p.SetBodyStyle(ctx, c.property, in.Color); err != nil {
				return nil, err
			}
			return output(map[string]any{"success": true, "color": in.Color})
		}, ToolMetadata{
			Schema:  schema(c.name, c.description, params),
			Timeout: 10 * time.Second,
		}); err != nil {
			return err
		}
	}
	return nil
}

// --- storeQuestionAnswer ---

func registerAnswers(r *Registry, deps Deps) error {
	params := types.NewObjectSchema().
		AddProperty("question", types.NewStringSchema().WithDescription("The question that was asked")).
		AddProperty("answer", types.NewStringSchema().WithDescription("The answer that was given")).
		AddRequired("question", "answer")

	return r.Register(ToolStoreQuestionAnswer, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		n, err := deps.Answers.Append(ctx, in.Question, in.Answer)
		if err != nil {
			if errors.Is(err, answers.ErrEmptyQuestion) {
				return nil, missing("question")
			}
			return nil, err
		}
		return output(map[string]any{"success": true, "stored": n})
	}, ToolMetadata{
		Schema:  schema(ToolStoreQuestionAnswer, "Stores a question-answer pair from the conversation", params),
		Timeout: 10 * time.Second,
	})
}
