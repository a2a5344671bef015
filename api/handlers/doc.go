// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package handlers 提供 VoiceWeb HTTP API 的请求处理器实现。

# 核心类型

  - SessionHandler:  会话代理，用服务端 API Key 向实时服务申请临时凭据
  - AnswersHandler:  问答存储的列出、追加与清空
  - HealthHandler:   存活/就绪/版本端点，支持可插拔 HealthCheck
  - Response:        统一 JSON 响应结构（success + data + error + timestamp）
  - ResponseWriter:  包装 http.ResponseWriter 以捕获状态码与响应大小

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON
  - ErrorCode → HTTP 状态码映射（4xx/5xx）
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）
*/
package handlers
