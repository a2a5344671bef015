package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config configures the browser driver.
type Config struct {
	Headless         bool          `yaml:"headless" json:"headless" env:"HEADLESS"`
	ViewportWidth    int           `yaml:"viewport_width" json:"viewport_width" env:"VIEWPORT_WIDTH"`
	ViewportHeight   int           `yaml:"viewport_height" json:"viewport_height" env:"VIEWPORT_HEIGHT"`
	UserAgent        string        `yaml:"user_agent" json:"user_agent" env:"USER_AGENT"`
	ProxyURL         string        `yaml:"proxy_url" json:"proxy_url" env:"PROXY_URL"`
	StartURL         string        `yaml:"start_url" json:"start_url" env:"START_URL"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
	SettleDelay      time.Duration `yaml:"settle_delay" json:"settle_delay" env:"SETTLE_DELAY"`
	MaxRuntimeErrors int           `yaml:"max_runtime_errors" json:"max_runtime_errors" env:"MAX_RUNTIME_ERRORS"`
	ErrorWindow      time.Duration `yaml:"error_window" json:"error_window" env:"ERROR_WINDOW"`
}

// DefaultConfig returns a headless 1920x1080 browser with a 500ms settle delay.
func DefaultConfig() Config {
	return Config{
		Headless:         true,
		ViewportWidth:    1920,
		ViewportHeight:   1080,
		Timeout:          30 * time.Second,
		SettleDelay:      500 * time.Millisecond,
		MaxRuntimeErrors: DefaultMaxRuntimeErrors,
		ErrorWindow:      DefaultErrorWindow,
	}
}

// ExecResult is what the executeJS tool reports back to the model.
type ExecResult struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message,omitempty"`
	CurrentDOM    string         `json:"currentDOM"`
	RuntimeErrors []RuntimeError `json:"runtimeErrors,omitempty"`
	Error         string         `json:"error,omitempty"`
	Stack         string         `json:"stack,omitempty"`
}

// settledResult reports runtime errors seen after the script ran; any error
// makes Success false.
func settledResult(dom string, errs []RuntimeError) *ExecResult {
	res := &ExecResult{
		Success:    true,
		Message:    "JavaScript executed successfully",
		CurrentDOM: dom,
	}
	if len(errs) > 0 {
		res.RuntimeErrors = errs
		res.Message += fmt.Sprintf(" (%d runtime error(s) detected)", len(errs))
		res.Success = false
	}
	return res
}

// thrownResult reports a script that threw synchronously.
func thrownResult(dom string, exp *runtime.ExceptionDetails, errs []RuntimeError) *ExecResult {
	return &ExecResult{
		Success:       false,
		Error:         exceptionMessage(exp),
		Stack:         stackOf(exp.StackTrace),
		CurrentDOM:    dom,
		RuntimeErrors: errs,
	}
}

// ChromeDriver drives one Chrome tab through chromedp.
type ChromeDriver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	config      Config
	errors      *ErrorLog
	logger      *zap.Logger
	mu          sync.Mutex

	detached   chan struct{}
	detachOnce sync.Once
	done       chan struct{}
}

// NewChromeDriver launches Chrome and opens StartURL when set.
func NewChromeDriver(config Config, logger *zap.Logger) (*ChromeDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(config.ProxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	d := &ChromeDriver{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		config:      config,
		errors:      NewErrorLog(config.MaxRuntimeErrors, config.ErrorWindow),
		logger:      logger.With(zap.String("component", "chrome_driver")),
		detached:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	chromedp.ListenTarget(ctx, d.onEvent)

	if err := chromedp.Run(ctx, runtime.Enable()); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	go d.watch()

	if config.StartURL != "" {
		if err := d.Navigate(ctx, config.StartURL); err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to open %s: %w", config.StartURL, err)
		}
	}

	d.logger.Info("chromedp browser started",
		zap.Bool("headless", config.Headless),
		zap.Int("viewport_w", config.ViewportWidth),
		zap.Int("viewport_h", config.ViewportHeight))

	return d, nil
}

// onEvent collects console.error calls and uncaught exceptions, and watches
// for the tab detaching.
func (d *ChromeDriver) onEvent(ev any) {
	switch e := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if e.Type != runtime.APITypeError {
			return
		}
		parts := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			parts = append(parts, describe(arg))
		}
		d.errors.Add(strings.Join(parts, " "), stackOf(e.StackTrace))
	case *runtime.EventExceptionThrown:
		if e.ExceptionDetails != nil {
			d.errors.Add(exceptionMessage(e.ExceptionDetails), stackOf(e.ExceptionDetails.StackTrace))
		}
	case *inspector.EventDetached:
		d.logger.Warn("page target detached", zap.String("reason", string(e.Reason)))
		d.detachOnce.Do(func() { close(d.detached) })
	}
}

func (d *ChromeDriver) watch() {
	select {
	case <-d.ctx.Done():
	case <-d.detached:
	}
	close(d.done)
}

// Done is closed when the browser exits or the tab detaches.
func (d *ChromeDriver) Done() <-chan struct{} { return d.done }

// run executes actions on the tab context while honouring the caller's ctx.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if d.config.Timeout > 0 {
		var tcancel context.CancelFunc
		runCtx, tcancel = context.WithTimeout(runCtx, d.config.Timeout)
		defer tcancel()
	}
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Debug("navigating", zap.String("url", url))
	return d.run(ctx, chromedp.Navigate(url))
}

// ExecuteJS evaluates js, waits SettleDelay and attaches the runtime errors
// raised in the meantime.
func (d *ChromeDriver) ExecuteJS(ctx context.Context, js string) (*ExecResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.errors.Reset()
	d.logger.Debug("executing script", zap.Int("bytes", len(js)))

	var obj *runtime.RemoteObject
	if err := d.run(ctx, chromedp.Evaluate(js, &obj)); err != nil {
		var exp *runtime.ExceptionDetails
		if !errors.As(err, &exp) {
			return nil, fmt.Errorf("evaluate script: %w", err)
		}
		dom, _ := d.bodyHTML(ctx)
		d.logger.Warn("script threw", zap.String("error", exceptionMessage(exp)))
		return thrownResult(dom, exp, d.errors.Recent()), nil
	}

	if d.config.SettleDelay > 0 {
		timer := time.NewTimer(d.config.SettleDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	dom, err := d.bodyHTML(ctx)
	if err != nil {
		return nil, err
	}
	return settledResult(dom, d.errors.Recent()), nil
}

// PageHTML returns document.documentElement.outerHTML.
func (d *ChromeDriver) PageHTML(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var html string
	if err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

func (d *ChromeDriver) bodyHTML(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerHTML : ""`, &html)); err != nil {
		return "", fmt.Errorf("failed to read body HTML: %w", err)
	}
	return html, nil
}

// SetBodyStyle sets document.body.style[property].
func (d *ChromeDriver) SetBodyStyle(ctx context.Context, property, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	js, err := bodyStyleScript(property, value)
	if err != nil {
		return err
	}
	d.logger.Debug("setting body style", zap.String("property", property), zap.String("value", value))
	return d.run(ctx, chromedp.Evaluate(js, nil))
}

func bodyStyleScript(property, value string) (string, error) {
	p, err := json.Marshal(property)
	if err != nil {
		return "", err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("document.body.style[%s] = %s;", p, v), nil
}

// Screenshot returns the current viewport as PNG.
func (d *ChromeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down.
func (d *ChromeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("closing chromedp browser")
	d.cancel()
	d.allocCancel()
	return nil
}

func describe(obj *runtime.RemoteObject) string {
	if obj == nil {
		return ""
	}
	if len(obj.Value) > 0 {
		var s string
		if err := json.Unmarshal(obj.Value, &s); err == nil {
			return s
		}
		return string(obj.Value)
	}
	if obj.Description != "" {
		return obj.Description
	}
	return string(obj.Type)
}

func exceptionMessage(exp *runtime.ExceptionDetails) string {
	if exp == nil {
		return ""
	}
	if exp.Exception != nil && exp.Exception.Description != "" {
		return exp.Exception.Description
	}
	return exp.Text
}

func stackOf(st *runtime.StackTrace) string {
	if st == nil || len(st.CallFrames) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range st.CallFrames {
		if i > 0 {
			b.WriteByte('\n')
		}
		name := f.FunctionName
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(&b, "at %s (%s:%d:%d)", name, f.URL, f.LineNumber+1, f.ColumnNumber+1)
	}
	return b.String()
}
