// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 prompt 提供发送给实时模型的系统指令。

内置提示词通过 embed 打包；可选的覆盖文件会替换当前文本，
并可通过 Library.Watch 热重载。
*/
package prompt
