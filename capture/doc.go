// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 capture 实现屏幕截图管线：获取捕获源、抓取帧、按预算编码，并把
图片交给实时数据通道。

# 概述

capture 由三部分组成：Manager 管理可复用的捕获源（一次授权、多次
抓帧、用户撤销时立即失效）；Encode 把帧单次重采样到目标尺寸后逐级
降低 JPEG 质量直至满足字节上限或到达质量下限；Orchestrator 先走
快速路径（复用源），失败时显式回退到一次性的传统路径。

# 核心类型

  - SourceProvider / Track：平台捕获源抽象，测试中注入假实现
  - Manager：捕获源生命周期，Acquire 幂等，Release 可重复调用
  - Budget / SizeMetric：编码预算，SizeMetric 决定按二进制字节
    还是按 data URL 文本长度计量
  - FastPathOutcome：快速路径的二分结果（成功或回退原因）
  - Result / SendReport：跨工具调用边界返回的状态记录

# 内置提供者

  - DisplayProvider：基于 kbinani/screenshot 抓取本机显示器
  - SyntheticProvider：生成渐变帧，用于无显示环境与测试
  - page.TabProvider（位于 page 包）：基于 chromedp 抓取浏览器标签页

# 错误

所有失败都以 *Error 返回，Kind 为 ErrPermissionDenied、
ErrUserCancelled、ErrSourceInactive、ErrGrabFailed、ErrEncodeFailed、
ErrChannelUnavailable、ErrChannelClosedMidSend 之一，可用 errors.Is
判断，CodeOf 映射到 types.ErrorCode。
*/
package capture
