// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
VoiceWeb 命令行入口。

# 子命令

  - serve    会话代理：GET /session 用服务端 API Key 换取临时凭据；
    /answers 暴露问答存储；/health、/healthz、/ready、/version；
    独立端口上的 /metrics。
  - run      启动受控浏览器，获取凭据并连接实时通道，向模型注册
    captureScreenshot、executeJS、getPageHTML、changeBackgroundColor、
    changeTextColor、storeQuestionAnswer 工具并处理调用。提示词覆盖文件
    变化时推送新的 session.update。
  - capture  按预算执行一次捕获，写出 JPEG 并打印状态记录。
  - version  打印版本信息。
  - health   探测运行中服务的 /health。

配置按 默认值 → YAML → VOICEWEB_* 环境变量 的顺序叠加。
*/
package main
