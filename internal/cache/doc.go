// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 管理 Redis 连接，供问答存储的 redis 后端使用。

# 概述

Manager 封装 go-redis 客户端：创建时探活，后台定时健康检查，
Close 后所有操作返回 ErrClosed。RunScript 以 EVALSHA 优先的方式
执行 Lua 脚本，保证多键更新的原子性。

# 核心类型

  - Manager：连接管理器，提供 Client/RunScript/Delete/Ping/Close。
  - Config：地址、密码、连接池大小、默认 TTL 与健康检查间隔。
*/
package cache
