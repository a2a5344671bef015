// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 answers 存储语音会话通过 storeQuestionAnswer 工具收集的问答。

# 概述

Store 有三种实现：MemoryStore 用于单进程；GormStore 基于
SQLite、Postgres 或 MySQL；RedisStore 供多个实例共享状态。
所有实现都以去除首尾空白后的问题为键，重复回答以 Separator
拼接，并在每次追加后返回不同问题的数量。
*/
package answers
