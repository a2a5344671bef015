// Package config 提供 VoiceWeb 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（前缀 VOICEWEB）的顺序叠加，
// 并可附加校验器。FileWatcher 以轮询加防抖的方式监听文件变更，
// 用于热加载提示词覆盖文件。
package config
