package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceweb/api"
	"github.com/BaSui01/voiceweb/internal/tlsutil"
	"github.com/BaSui01/voiceweb/types"
)

// maxUpstreamBytes 上游会话响应上限
const maxUpstreamBytes = 1 << 20

// SessionConfig 会话代理配置
type SessionConfig struct {
	UpstreamURL string
	APIKey      string
	Model       string
	Voice       string
	Timeout     time.Duration
}

// SessionHandler 代理实时会话创建：以服务端 API Key 调用上游，
// 把临时凭据原样包在 {"result": ...} 中返回给浏览器端
type SessionHandler struct {
	config SessionConfig
	client *http.Client
	logger *zap.Logger
}

// NewSessionHandler 创建会话代理。client 为 nil 时按 Timeout 新建
func NewSessionHandler(config SessionConfig, client *http.Client, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if client == nil {
		client = tlsutil.HTTPClient(config.Timeout)
	}
	return &SessionHandler{
		config: config,
		client: client,
		logger: logger.With(zap.String("component", "session_proxy")),
	}
}

// HandleSession 处理 GET /session
// @Summary 创建实时会话
// @Description 向实时服务申请临时客户端凭据
// @Tags 会话
// @Produce json
// @Success 200 {object} api.SessionResponse "上游会话"
// @Failure 502 {object} Response "上游失败"
// @Failure 503 {object} Response "未配置 API Key"
// @Router /session [get]
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if h.config.APIKey == "" {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable,
			"realtime API key is not configured", h.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
	defer cancel()

	result, apiErr := h.createSession(ctx)
	if apiErr != nil {
		WriteError(w, apiErr, h.logger)
		return
	}

	h.logger.Debug("session created", zap.String("model", h.config.Model))
	WriteJSON(w, http.StatusOK, api.SessionResponse{Result: result})
}

func (h *SessionHandler) createSession(ctx context.Context) (json.RawMessage, *types.Error) {
	body, err := json.Marshal(api.UpstreamSessionRequest{Model: h.config.Model, Voice: h.config.Voice})
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "encode session request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.config.UpstreamURL, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "build session request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, types.NewError(types.ErrUpstreamTimeout, "realtime session request timed out").
				WithCause(err).WithRetryable(true)
		}
		return nil, types.NewError(types.ErrUpstreamError, "realtime session request failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBytes))
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "read realtime session response").
			WithCause(err).WithRetryable(true)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("upstream session endpoint returned %d", resp.StatusCode)).
			WithCause(fmt.Errorf("%s", bytes.TrimSpace(raw))).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests)
	}

	if !json.Valid(raw) {
		return nil, types.NewError(types.ErrUpstreamError, "upstream session response is not JSON").
			WithHTTPStatus(http.StatusBadGateway)
	}
	return json.RawMessage(raw), nil
}
