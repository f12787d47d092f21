package hsa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalDrainsToZeroAfterDecrements(t *testing.T) {
	s := NewSignal()
	s.Add(3)
	assert.Equal(t, int64(3), s.Value())

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	s.Decrement()
	s.Decrement()
	select {
	case <-done:
		t.Fatal("Wait returned before signal reached zero")
	case <-time.After(20 * time.Millisecond):
	}

	s.Decrement()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after signal reached zero")
	}
	assert.Equal(t, int64(0), s.Value())
}
