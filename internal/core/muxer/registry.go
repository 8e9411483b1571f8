package muxer

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/go-kadugu/pkg/interfaces"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// ============================================================================
//                              StreamRegistry
// ============================================================================

// StreamRegistry 连接上存活流的登记表
//
// 流在 Close 或 Reset 时自动移除；CloseAll 之后不再接受新流。
type StreamRegistry struct {
	mu      sync.Mutex
	streams map[*trackedStream]struct{}
	closed  bool
}

// NewStreamRegistry 创建流登记表
func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{
		streams: make(map[*trackedStream]struct{}),
	}
}

// Track 登记流并返回包装后的流
//
// 登记表已关闭时重置传入的流并返回 types.ErrTransportClosed。
func (r *StreamRegistry) Track(s interfaces.Stream) (interfaces.Stream, error) {
	ts := &trackedStream{Stream: s, registry: r}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = s.Reset()
		return nil, types.ErrTransportClosed
	}
	r.streams[ts] = struct{}{}
	r.mu.Unlock()

	return ts, nil
}

// Len 返回存活流数量
func (r *StreamRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}

// CloseAll 重置所有存活流
func (r *StreamRegistry) CloseAll() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	streams := make([]*trackedStream, 0, len(r.streams))
	for s := range r.streams {
		streams = append(streams, s)
	}
	r.streams = make(map[*trackedStream]struct{})
	r.mu.Unlock()

	var err error
	for _, s := range streams {
		err = multierr.Append(err, s.Stream.Reset())
	}
	return err
}

func (r *StreamRegistry) remove(s *trackedStream) {
	r.mu.Lock()
	delete(r.streams, s)
	r.mu.Unlock()
}

// trackedStream 在关闭时从登记表移除自身
type trackedStream struct {
	interfaces.Stream
	registry *StreamRegistry
	once     sync.Once
}

func (s *trackedStream) Close() error {
	s.once.Do(func() { s.registry.remove(s) })
	return s.Stream.Close()
}

func (s *trackedStream) Reset() error {
	s.once.Do(func() { s.registry.remove(s) })
	return s.Stream.Reset()
}
