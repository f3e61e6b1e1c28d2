package hwcodec

import (
	"sync"
	"sync/atomic"
)

// sinkRegistry routes native frame callbacks to the FrameSink of the decode
// call in flight. The native side only ever sees an integer key, never a Go
// pointer. A key is live from the start of a decode call until it returns.
type sinkRegistry struct {
	mu      sync.RWMutex
	next    uintptr
	sinks   map[uintptr]FrameSink
	dropped atomic.Uint64
}

func newSinkRegistry() *sinkRegistry {
	return &sinkRegistry{sinks: make(map[uintptr]FrameSink)}
}

// Global callback state for native decode calls.
var frameSinks = newSinkRegistry()

// register returns a non-zero key for sink.
func (r *sinkRegistry) register(sink FrameSink) uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	if r.next == 0 {
		r.next = 1
	}
	key := r.next
	r.sinks[key] = sink
	return key
}

func (r *sinkRegistry) unregister(key uintptr) {
	r.mu.Lock()
	delete(r.sinks, key)
	r.mu.Unlock()
}

// dispatch delivers one frame. Callbacks for keys that are no longer live are
// a backend contract violation; they are dropped and counted.
func (r *sinkRegistry) dispatch(key uintptr, texture Texture) bool {
	r.mu.RLock()
	sink, ok := r.sinks[key]
	r.mu.RUnlock()

	if !ok || sink == nil {
		r.dropped.Add(1)
		return false
	}
	sink.AppendFrame(texture)
	return true
}

func (r *sinkRegistry) live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

// DroppedCallbacks returns how many native frame callbacks arrived after
// their decode call had returned.
func DroppedCallbacks() uint64 {
	return frameSinks.dropped.Load()
}
