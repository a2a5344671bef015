// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接池管理，供问答存储的
gorm 后端使用。

# 概述

Open 根据驱动名选择方言（纯 Go 的 glebarez/sqlite、postgres、mysql）
并构造 PoolManager。PoolManager 统一管理连接池参数，后台健康检查
定时探活，Close 时停止探活协程。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、Ping()、
    Stats()、Close() 以及事务执行方法。
  - PoolConfig：最大空闲/打开连接数、生命周期与健康检查间隔。
  - TransactionFunc：事务回调函数类型。

# 事务

WithTransaction 执行单次事务；WithTransactionRetry 在死锁、序列化
失败、SQLite 忙等可重试错误上指数退避重试。
*/
package database
