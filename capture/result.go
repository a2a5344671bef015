package capture

import (
	"fmt"
	"math"
)

// Path identifies which capture path produced a result.
type Path string

const (
	PathFast   Path = "fast"
	PathLegacy Path = "legacy"
)

// DefaultContextMessage accompanies a screenshot when the caller gives none.
const DefaultContextMessage = "What do you see in this screenshot?"

const (
	msgCaptureFailed    = "Screenshot capture failed. Make sure you grant screen sharing permission."
	msgChannelDown      = "Cannot send screenshot - no connection to AI"
	msgSent             = "Screenshot sent to AI"
	msgTriggerSkipped   = "Data channel closed before sending response trigger"
	msgSendFailedPrefix = "Failed to send screenshot"
)

// Result is the status record returned across the tool-call boundary.
// Callers always receive this shape; failures never escape as panics or
// bare errors.
type Result struct {
	Success        bool    `json:"success"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	OriginalWidth  int     `json:"originalWidth,omitempty"`
	OriginalHeight int     `json:"originalHeight,omitempty"`
	Quality        float64 `json:"quality,omitempty"`
	FileSizeBytes  int     `json:"fileSizeBytes,omitempty"`
	Message        string  `json:"message"`
	Error          string  `json:"error,omitempty"`
	Detail         string  `json:"detail,omitempty"`
	Path           Path    `json:"path,omitempty"`
	Note           string  `json:"note,omitempty"`

	Image *EncodedImage `json:"-"`
	Err   error         `json:"-"`
}

func successResult(img *EncodedImage, path Path) *Result {
	return &Result{
		Success:        true,
		Width:          img.Width,
		Height:         img.Height,
		OriginalWidth:  img.OriginalWidth,
		OriginalHeight: img.OriginalHeight,
		Quality:        img.Quality,
		FileSizeBytes:  img.Size,
		Message:        fmt.Sprintf("Screenshot captured (%dx%d, %dKB)", img.Width, img.Height, kb(img.Size)),
		Path:           path,
		Image:          img,
	}
}

func failureResult(err error, path Path) *Result {
	return &Result{
		Success: false,
		Message: msgCaptureFailed,
		Error:   kindName(err),
		Detail:  err.Error(),
		Path:    path,
		Err:     err,
	}
}

func kb(n int) int {
	return int(math.Round(float64(n) / 1000))
}

// FastPathOutcome is the explicit result of the fast path: either a capture
// result or the reason the orchestrator must fall back.
type FastPathOutcome struct {
	Result *Result
	Reason error
}

// FastSuccess wraps a successful fast-path capture.
func FastSuccess(r *Result) FastPathOutcome { return FastPathOutcome{Result: r} }

// Fallback records why the fast path gave up.
func Fallback(reason error) FastPathOutcome { return FastPathOutcome{Reason: reason} }

// Succeeded reports whether the fast path produced a result.
func (o FastPathOutcome) Succeeded() bool { return o.Reason == nil && o.Result != nil }

// SendReport describes the outcome of handing an image to the channel.
// Success is true once the content item is sent, even when the response
// trigger was skipped; Note then explains the skip.
type SendReport struct {
	Success     bool   `json:"success"`
	TriggerSent bool   `json:"triggerSent"`
	Message     string `json:"message"`
	Note        string `json:"note,omitempty"`
	Error       string `json:"error,omitempty"`
	Err         error  `json:"-"`
}
