// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 voiceweb 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 capture、realtime、toolkit、
api 等上层模块提供统一的类型契约。

# 核心类型

  - Error / ErrorCode: 结构化错误体系，含 HTTP 状态码与 Retryable 标记
  - JSONSchema:        工具参数的 JSON Schema 子集与构建器
  - ToolSchema:        实时模型的函数工具定义
  - ToolResult:        工具执行结果
*/
package types
