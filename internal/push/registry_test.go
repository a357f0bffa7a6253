package push

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct {
	name string
}

func (s *stubConn) Send(context.Context, string, any) error { return nil }

func TestMemoryRegistry_RegisterLookup(t *testing.T) {
	r := NewMemoryRegistry()
	c := &stubConn{name: "a"}

	_, ok := r.Lookup("u1")
	assert.False(t, ok)

	r.Register("u1", c)
	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, r.Len())
}

func TestMemoryRegistry_StaleUnregisterKeepsNewerConn(t *testing.T) {
	r := NewMemoryRegistry()
	old, newer := &stubConn{name: "old"}, &stubConn{name: "new"}

	r.Register("u1", old)
	r.Register("u1", newer)
	r.Unregister("u1", old)

	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, newer, got)

	r.Unregister("u1", newer)
	_, ok = r.Lookup("u1")
	assert.False(t, ok)
}

func TestMemoryRegistry_Concurrent(t *testing.T) {
	r := NewMemoryRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := fmt.Sprintf("u%d", i%5)
		go func() {
			defer wg.Done()
			c := &stubConn{}
			r.Register(id, c)
			r.Unregister(id, c)
		}()
		go func() {
			defer wg.Done()
			r.Lookup(id)
		}()
	}
	wg.Wait()
	assert.Zero(t, r.Len())
}
