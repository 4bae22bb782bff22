// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 负责打开产物记录库的 GORM 连接并管理连接池。

# 概述

Open 按驱动名（sqlite / postgres / mysql）选择 GORM Dialector；
PoolManager 封装底层 sql.DB 的连接池参数、后台健康检查与统计上报。

# 核心类型

  - PoolManager：持有 GORM DB 与 sql.DB，提供 DB()、Ping()、Stats()、Close()。
  - PoolConfig：最大空闲/打开连接数、连接生命周期、健康检查间隔，
    以及可选的 StatsReporter（接入 metrics.Collector.RecordDBConnections）。
*/
package database
