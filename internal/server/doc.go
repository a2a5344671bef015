// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 VoiceWeb 的 HTTP 服务器生命周期，支持非阻塞启动、
上下文驱动的运行与优雅关闭。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Run/Shutdown 等生命周期方法。
  - Config：监听地址、读写超时、空闲超时、最大请求头大小与
    优雅关闭超时。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务。
  - 上下文运行：Run 阻塞到 ctx 取消或服务异常，随后优雅关闭，
    便于在 errgroup 中与其他组件一起编排。
  - 同一进程可以运行多个 Manager（业务端口与指标端口）。
*/
package server
