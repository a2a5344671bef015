// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package testutil 提供 voiceweb 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertJSONEqual 按语义比较 JSON 响应体
  - 异步辅助: WaitForChannel 带超时地等待通道
  - 数据工具: MustJSON / MustParseJSON

# 子包

  - testutil/fixtures: 图像样例，包括纯色帧与 PNG 编码截图
  - testutil/mocks: Mock 实现，目前为可注入错误、可模拟标签页关闭的
    Screenshotter

子包不依赖 voiceweb 的业务包，任何包的内部测试都可以直接引用。
*/
package testutil
