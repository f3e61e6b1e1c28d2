package hwcodec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkRegistry_Dispatch(t *testing.T) {
	r := newSinkRegistry()
	a, b := NewFrameBuffer(0), NewFrameBuffer(0)

	ka := r.register(a)
	kb := r.register(b)
	require.NotZero(t, ka)
	require.NotZero(t, kb)
	require.NotEqual(t, ka, kb)
	assert.Equal(t, 2, r.live())

	assert.True(t, r.dispatch(kb, 2))
	assert.True(t, r.dispatch(ka, 1))
	assert.True(t, r.dispatch(kb, 3))

	assert.Equal(t, []DecodeFrame{{1}}, a.Frames())
	assert.Equal(t, []DecodeFrame{{2}, {3}}, b.Frames())
}

func TestSinkRegistry_StaleKeyDropped(t *testing.T) {
	r := newSinkRegistry()
	buf := NewFrameBuffer(0)

	key := r.register(buf)
	r.unregister(key)
	assert.Equal(t, 0, r.live())

	assert.False(t, r.dispatch(key, 9))
	assert.False(t, r.dispatch(12345, 9))
	assert.Equal(t, 0, buf.Len())
	assert.EqualValues(t, 2, r.dropped.Load())
}

func TestSinkRegistry_Concurrent(t *testing.T) {
	r := newSinkRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := NewFrameBuffer(0)
			key := r.register(buf)
			for j := 0; j < 100; j++ {
				r.dispatch(key, Texture(j))
			}
			r.unregister(key)
			assert.Equal(t, 100, buf.Len())
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.live())
}
