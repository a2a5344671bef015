package api

import (
	"encoding/json"
	"time"
)

// =============================================================================
// 会话代理类型
// =============================================================================

// UpstreamSessionRequest 发往实时服务会话端点的请求体。
// @Description 上游会话创建请求
type UpstreamSessionRequest struct {
	// 实时模型
	Model string `json:"model" example:"gpt-realtime"`
	// 语音
	Voice string `json:"voice" example:"marin"`
}

// SessionResponse 包装上游返回的会话 JSON，客户端从
// result.client_secret.value 读取临时凭据。
// @Description 会话代理响应
type SessionResponse struct {
	Result json.RawMessage `json:"result" swaggertype:"object"`
}

// =============================================================================
// 问答记录类型
// =============================================================================

// AnswerRequest 追加一条问答。
// @Description 问答追加请求
type AnswerRequest struct {
	Question string `json:"question" example:"favourite colour"`
	Answer   string `json:"answer" example:"blue"`
}

// AnswerEntry 单条问答记录。
type AnswerEntry struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnswerListResponse 问答列表。
// @Description 问答列表响应
type AnswerListResponse struct {
	Answers []AnswerEntry `json:"answers"`
	Count   int           `json:"count"`
}

// AnswerStoredResponse 追加后的存储问题数。
type AnswerStoredResponse struct {
	Stored int `json:"stored"`
}

// =============================================================================
// 错误类型
// =============================================================================

// ErrorResponse 表示错误响应。
// @Description 错误响应结构
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail 表示错误详细信息。
// @Description 错误详细结构
type ErrorDetail struct {
	// 错误代码
	Code string `json:"code" example:"UPSTREAM_ERROR"`
	// 人类可读的错误消息
	Message string `json:"message" example:"upstream session endpoint returned 401"`
	// HTTP 状态码
	HTTPStatus int `json:"http_status,omitempty" example:"502"`
	// 请求是否可以重试
	Retryable bool `json:"retryable,omitempty" example:"false"`
}
