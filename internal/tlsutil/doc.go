// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package tlsutil 为出站连接提供统一的 TLS 加固配置。

会话令牌代理、实时凭证客户端与实时 WebSocket 握手都从这里取客户端，
保证 TLS 1.2+ 与仅 AEAD 密码套件。

  - HTTPClient: 带总超时的请求/响应客户端
  - WebSocketClient: 无总超时的握手客户端，超时由 context 负责
*/
package tlsutil
