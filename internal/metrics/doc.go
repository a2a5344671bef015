// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、
屏幕捕获与工具调用三个维度。

# 概述

Collector 通过 promauto 注册指标，按 namespace 隔离。它同时实现
capture.Recorder 与 toolkit.Recorder，可直接注入编排器与工具注册表。

# 主要能力

  - HTTP 指标：请求总数、耗时与响应大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 捕获指标：按路径与结果计数、耗时、回退原因、编码质量、
    编码字节数、编码迭代次数以及截图投递结果。
  - 工具指标：按工具名与结果计数，以及调用耗时。
*/
package metrics
