// Package mocks 提供测试用的 Mock 实现。
package mocks

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockScreenshotter 模拟浏览器标签页截图驱动。
// 返回预置的 PNG 或错误；Close 模拟标签页被关闭
type MockScreenshotter struct {
	mu    sync.Mutex
	png   []byte
	err   error
	calls atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

// NewMockScreenshotter 创建截图 Mock
func NewMockScreenshotter() *MockScreenshotter {
	return &MockScreenshotter{done: make(chan struct{})}
}

// WithPNG 设置截图返回的 PNG 数据
func (m *MockScreenshotter) WithPNG(data []byte) *MockScreenshotter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.png = data
	return m
}

// WithError 设置截图返回的错误
func (m *MockScreenshotter) WithError(err error) *MockScreenshotter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Screenshot 返回预置结果
func (m *MockScreenshotter) Screenshot(ctx context.Context) ([]byte, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.png, nil
}

// Done 在 Close 后关闭
func (m *MockScreenshotter) Done() <-chan struct{} { return m.done }

// Close 模拟标签页关闭，可重复调用
func (m *MockScreenshotter) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// Calls 返回 Screenshot 被调用的次数
func (m *MockScreenshotter) Calls() int64 { return m.calls.Load() }
