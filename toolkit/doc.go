// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 toolkit 定义实时模型可调用的函数工具，以及负责声明与执行工具的 Registry。

# 概述

RegisterBuiltins 把 captureScreenshot、executeJS、getPageHTML、
changeBackgroundColor、changeTextColor 与 storeQuestionAnswer
绑定到页面驱动、捕获编排器和问答存储。Registry 实现
realtime.ToolInvoker：按名称分发调用，为每次调用设置超时与限流，
失败统一归为 types.Error。
*/
package toolkit
