package moonwire

import (
	"errors"
	"sync"
)

// ErrUnknownType 未注册的类型码。调用方据此计数并丢弃，不中断收包循环。
var ErrUnknownType = errors.New("unknown message type")

// Handler 帧处理函数
type Handler func(f *Frame) error

// Registry 类型码 -> 处理器 的分发表
type Registry struct {
	mu       sync.RWMutex
	handlers map[uint16]Handler
}

// NewRegistry 创建空分发表
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[uint16]Handler)}
}

// Register 注册处理器，重复注册覆盖
func (r *Registry) Register(typ uint16, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[typ] = h
}

// Dispatch 按类型码分发，未注册类型返回 ErrUnknownType
func (r *Registry) Dispatch(f *Frame) error {
	r.mu.RLock()
	h := r.handlers[f.Type]
	r.mu.RUnlock()
	if h == nil {
		return ErrUnknownType
	}
	return h(f)
}
