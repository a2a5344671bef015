// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 realtime 实现与实时语音模型之间的控制通道。

Channel 是只关心就绪状态与发送的出站接口，capture 仅依赖它；
WSChannel 基于 coder/websocket 实现完整的 Conn。CredentialClient
从会话端点获取短期凭证，Session 负责 session.update 配置与
函数调用分发：收到 response.function_call_arguments.done 后执行
工具，回写 function_call_output，再发送 response.create。
*/
package realtime
