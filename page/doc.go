// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 page 通过 chromedp 控制被语音助手操作的网页。

# 概述

ChromeDriver 启动 Headless Chrome，提供脚本执行（ExecuteJS）、
DOM 读取（PageHTML）、样式修改（SetBodyStyle）与视口截图
（Screenshot）。驱动监听 console.error 与未捕获异常，ExecuteJS
在脚本执行后等待 SettleDelay，再附带窗口内最多
MaxRuntimeErrors 条运行时错误返回。

TabProvider 把同一标签页适配为 capture.SourceProvider，
浏览器退出或标签页分离时捕获轨道随之结束。
*/
package page
